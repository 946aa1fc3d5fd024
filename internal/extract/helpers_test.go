package extract

import (
	"context"
	"strings"

	"github.com/inodb/codon-counter/internal/alignment"
	"github.com/inodb/codon-counter/internal/reference"
)

// testRef repeats ACGTA, so every position divisible by 5 is an A.
var testRef = reference.NewContig("ref1", strings.Repeat("ACGTA", 60))

// read builds a fully aligned pileup read with its base at qp on the column.
func read(seq string, qp int) alignment.PileupRead {
	return alignment.PileupRead{
		Name:           seq,
		QueryPosition:  qp,
		AlignmentStart: 0,
		AlignmentEnd:   len(seq),
		Sequence:       []byte(seq),
	}
}

func indelRead(seq string, qp, indel int) alignment.PileupRead {
	r := read(seq, qp)
	r.Indel = indel
	return r
}

func repeatRead(r alignment.PileupRead, n int) []alignment.PileupRead {
	out := make([]alignment.PileupRead, n)
	for i := range out {
		out[i] = r
	}
	return out
}

type fakeSource struct {
	refs   []string
	cols   []alignment.Column
	closed bool
}

func (f *fakeSource) References() []string { return f.refs }

func (f *fakeSource) HasReference(name string) bool {
	for _, r := range f.refs {
		if r == name {
			return true
		}
	}
	return false
}

func (f *fakeSource) Pileup(_ string, start, end int, _ alignment.Filter) ([]alignment.Column, error) {
	var out []alignment.Column
	for _, c := range f.cols {
		if c.Pos >= start && c.Pos < end {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeSource) Close() error {
	f.closed = true
	return nil
}

type fakeCandidates struct {
	rows []CandidateRow
	err  error
}

func (f fakeCandidates) Candidates(context.Context, string, Region) ([]CandidateRow, error) {
	return f.rows, f.err
}

func testThresholds() Thresholds {
	t := DefaultThresholds()
	t.MinSeqDepth = 5
	t.AltNucFraction = 0.05
	return t
}

var testRegion = Region{RefName: "ref1", Start: 1, End: 300}
