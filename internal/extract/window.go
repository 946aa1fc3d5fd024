package extract

import (
	"strings"

	"github.com/inodb/codon-counter/internal/reference"
)

// Reference is random access to the reference contig of a run.
type Reference interface {
	Base(pos int) byte
	Slice(start, end int) string
}

// CodonWindow is the local sequence context of one read event. It is a
// comparable value and is used directly as an aggregation key.
type CodonWindow struct {
	Position    int // 0-based column
	Depth       int
	IndelLength int
	Reference   string
	Read        string
}

// FramePreserving reports whether an indel keeps the downstream codons in frame.
func FramePreserving(length int) bool {
	return length%3 == 0
}

// SubstitutionWindow builds the 5-base window (2 before, anchor, 2 after)
// around a substitution event.
func SubstitutionWindow(ref Reference, pos, depth int, ev ReadEvent) CodonWindow {
	q := ev.Obs.QueryPosition
	return CodonWindow{
		Position:  pos,
		Depth:     depth,
		Reference: ref.Slice(pos-2, pos+3),
		Read:      readWindow(ev.Obs, q-2, q+3, ev.LeftDeficit, ev.RightDeficit),
	}
}

// IndelWindow builds the window of an indel event: three bases on each side
// of the indel boundary. The reference side of a deletion is widened by the
// deleted length; the read side of an insertion by the inserted length.
func IndelWindow(ref Reference, pos, depth int, ev ReadEvent) CodonWindow {
	q := ev.Obs.QueryPosition
	n := ev.Obs.IndelLength
	w := CodonWindow{Position: pos, Depth: depth, IndelLength: n}

	// The window holds two read bases before the anchor, one fewer than the
	// left deficit counts.
	leftPad := clampZero(ev.LeftDeficit - 1)

	if n < 0 {
		w.Reference = ref.Slice(pos-2, pos+4-n)
		w.Read = readWindow(ev.Obs, q-2, q+4, leftPad, ev.RightDeficit)
		return w
	}

	w.Reference = ref.Slice(pos-2, pos+4)
	w.Read = readWindow(ev.Obs, q-2, q+4+n, leftPad, clampZero(4+n-ev.Obs.RightFlank))
	return w
}

// readWindow returns the read bases in [start, end) with the first
// leftPad and last rightPad positions replaced by gaps. Positions outside
// the aligned part of the read are gaps too, so the result always has
// end-start characters.
func readWindow(obs ReadObservation, start, end, leftPad, rightPad int) string {
	if end <= start {
		return ""
	}
	var b strings.Builder
	b.Grow(end - start)
	for i := start; i < end; i++ {
		if i < start+leftPad || i >= end-rightPad || !inRead(obs, i) {
			b.WriteByte(reference.Gap)
			continue
		}
		b.WriteByte(obs.Sequence[i])
	}
	return b.String()
}

func inRead(obs ReadObservation, i int) bool {
	return i >= obs.AlignmentStart && i < obs.AlignmentEnd && i >= 0 && i < len(obs.Sequence)
}
