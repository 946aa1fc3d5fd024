// Package alignment builds pileup columns from aligned reads.
package alignment

import (
	"github.com/biogo/hts/sam"
)

// missingQual marks a base without a quality score in BAM records.
const missingQual = 0xff

// excludedFlags are never part of a pileup.
const excludedFlags = sam.Unmapped | sam.Secondary | sam.QCFail | sam.Duplicate

// Filter holds the per-read policy applied while building a column.
type Filter struct {
	MinMappingQuality int
	MinBaseQuality    int
	MaxDepth          int // 0 means unlimited
	IgnoreOverlaps    bool
	IgnoreOrphans     bool
}

// PileupRead is one read's view of a pileup column.
type PileupRead struct {
	Name string

	// QueryPosition is the index into Sequence aligned to the column, or -1
	// when the read has a deletion or reference skip there.
	QueryPosition int

	// Indel is the length of the indel that immediately follows the column
	// in this read: positive for insertions, negative for deletions.
	Indel int

	IsDel     bool
	IsRefSkip bool

	// AlignmentStart and AlignmentEnd delimit the aligned (non soft-clipped)
	// part of Sequence, end exclusive.
	AlignmentStart int
	AlignmentEnd   int

	Sequence []byte
}

// HasQueryPosition reports whether the read has a base aligned to the column.
func (r *PileupRead) HasQueryPosition() bool {
	return r.QueryPosition >= 0
}

// Column is the set of reads covering one reference position.
type Column struct {
	Pos   int // 0-based reference position
	N     int // number of reads covering Pos after read-level filters
	Reads []PileupRead
}

// BuildColumn computes the column at pos from records sorted by start.
// Reads removed by mapping quality, flag, orphan or depth filters do not
// count towards N. Reads failing the base quality check, or the second mate
// of an overlapping pair when overlaps are ignored, count towards N but are
// not returned in Reads.
func BuildColumn(records []*sam.Record, pos int, f Filter) Column {
	col := Column{Pos: pos}
	var seen map[string]bool
	if f.IgnoreOverlaps {
		seen = make(map[string]bool)
	}

	for _, rec := range records {
		if rec.Pos > pos || rec.End() <= pos {
			continue
		}
		if !passesRecordFilter(rec, f) {
			continue
		}
		pr, ok := readAt(rec, pos)
		if !ok {
			continue
		}
		if f.MaxDepth > 0 && col.N >= f.MaxDepth {
			break
		}
		col.N++

		if pr.HasQueryPosition() && f.MinBaseQuality > 0 && pr.QueryPosition < len(rec.Qual) {
			if q := rec.Qual[pr.QueryPosition]; q != missingQual && int(q) < f.MinBaseQuality {
				continue
			}
		}
		if seen != nil {
			if seen[rec.Name] {
				continue
			}
			seen[rec.Name] = true
		}
		col.Reads = append(col.Reads, pr)
	}

	return col
}

func passesRecordFilter(rec *sam.Record, f Filter) bool {
	if rec.Flags&excludedFlags != 0 {
		return false
	}
	if int(rec.MapQ) < f.MinMappingQuality {
		return false
	}
	if f.IgnoreOrphans && rec.Flags&sam.Paired != 0 && rec.Flags&sam.ProperPair == 0 {
		return false
	}
	return true
}

// readAt walks the CIGAR of rec to find what it aligns to reference pos.
func readAt(rec *sam.Record, pos int) (PileupRead, bool) {
	seq := rec.Seq.Expand()
	start, end := alignedBounds(rec.Cigar, len(seq))
	pr := PileupRead{
		Name:           rec.Name,
		QueryPosition:  -1,
		AlignmentStart: start,
		AlignmentEnd:   end,
		Sequence:       seq,
	}

	refPos := rec.Pos
	queryPos := 0
	for i, co := range rec.Cigar {
		n := co.Len()
		switch co.Type() {
		case sam.CigarMatch, sam.CigarEqual, sam.CigarMismatch:
			if pos < refPos+n {
				pr.QueryPosition = queryPos + pos - refPos
				if pos == refPos+n-1 {
					pr.Indel = followingIndel(rec.Cigar[i+1:])
				}
				return pr, true
			}
			refPos += n
			queryPos += n
		case sam.CigarDeletion, sam.CigarSkipped:
			if pos < refPos+n {
				pr.IsDel = co.Type() == sam.CigarDeletion
				pr.IsRefSkip = co.Type() == sam.CigarSkipped
				return pr, true
			}
			refPos += n
		case sam.CigarInsertion, sam.CigarSoftClipped:
			queryPos += n
		}
	}
	return pr, false
}

// followingIndel returns the signed length of an insertion or deletion that
// directly follows an aligned block, skipping padding.
func followingIndel(rest sam.Cigar) int {
	for _, co := range rest {
		switch co.Type() {
		case sam.CigarPadded:
			continue
		case sam.CigarInsertion:
			return co.Len()
		case sam.CigarDeletion:
			return -co.Len()
		}
		return 0
	}
	return 0
}

// alignedBounds returns the query range left after removing soft clips.
func alignedBounds(cigar sam.Cigar, seqLen int) (start, end int) {
	end = seqLen
	for _, co := range cigar {
		if co.Type() == sam.CigarHardClipped {
			continue
		}
		if co.Type() == sam.CigarSoftClipped {
			start += co.Len()
			continue
		}
		break
	}
	for i := len(cigar) - 1; i >= 0; i-- {
		co := cigar[i]
		if co.Type() == sam.CigarHardClipped {
			continue
		}
		if co.Type() == sam.CigarSoftClipped {
			end -= co.Len()
			continue
		}
		break
	}
	return start, end
}
