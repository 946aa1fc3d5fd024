package extract

import (
	"github.com/inodb/codon-counter/internal/alignment"
)

// EventKind tags what a read contributes at a site.
type EventKind int

const (
	// EventIgnored reads only count towards depth.
	EventIgnored EventKind = iota
	// EventSubstitution is a clean aligned base at a substitution site.
	EventSubstitution
	// EventIndel is an insertion or deletion at an indel site.
	EventIndel
)

func (k EventKind) String() string {
	switch k {
	case EventSubstitution:
		return "substitution"
	case EventIndel:
		return "indel"
	default:
		return "ignored"
	}
}

// ReadObservation is a read's alignment state at a column.
type ReadObservation struct {
	QueryPosition    int
	LeftFlank        int // aligned bases before QueryPosition
	RightFlank       int // aligned bases from QueryPosition to the alignment end
	IndelLength      int
	IsDeletionOrSkip bool
	Sequence         []byte
	AlignmentStart   int
	AlignmentEnd     int
}

// ReadEvent is the classified contribution of one read.
type ReadEvent struct {
	Kind EventKind
	Obs  ReadObservation
	Base byte // aligned base, substitutions only

	// LeftDeficit and RightDeficit are the clamped number of window
	// positions that fall outside the read's aligned bases.
	LeftDeficit  int
	RightDeficit int

	// Overhang is the unclamped right flank, indels only.
	Overhang int
}

// Observe converts a pileup read into an observation.
func Observe(r *alignment.PileupRead) ReadObservation {
	obs := ReadObservation{
		QueryPosition:    r.QueryPosition,
		IndelLength:      r.Indel,
		IsDeletionOrSkip: r.IsDel || r.IsRefSkip,
		Sequence:         r.Sequence,
		AlignmentStart:   r.AlignmentStart,
		AlignmentEnd:     r.AlignmentEnd,
	}
	if r.HasQueryPosition() {
		obs.LeftFlank = r.QueryPosition - r.AlignmentStart
		obs.RightFlank = r.AlignmentEnd - r.QueryPosition
	}
	return obs
}

// Classify decides what a read contributes at a site.
func Classify(r *alignment.PileupRead, isIndelSite bool) ReadEvent {
	if !r.HasQueryPosition() {
		return ReadEvent{Kind: EventIgnored}
	}
	obs := Observe(r)

	if isIndelSite {
		if obs.IndelLength == 0 {
			return ReadEvent{Kind: EventIgnored, Obs: obs}
		}
		return ReadEvent{
			Kind:         EventIndel,
			Obs:          obs,
			LeftDeficit:  clampZero(3 - obs.LeftFlank),
			RightDeficit: clampZero(4 - obs.RightFlank),
			Overhang:     obs.RightFlank,
		}
	}

	if obs.IsDeletionOrSkip || obs.QueryPosition >= len(obs.Sequence) {
		return ReadEvent{Kind: EventIgnored, Obs: obs}
	}
	return ReadEvent{
		Kind:         EventSubstitution,
		Obs:          obs,
		Base:         obs.Sequence[obs.QueryPosition],
		LeftDeficit:  clampZero(2 - obs.LeftFlank),
		RightDeficit: clampZero(3 - obs.RightFlank),
	}
}

func clampZero(n int) int {
	if n < 0 {
		return 0
	}
	return n
}
