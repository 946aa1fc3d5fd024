package extract

import "sort"

// ReadsToRemove counts, per 0-based position, the deletion reads that end
// inside the deletion, keyed by their overhang.
type ReadsToRemove map[int]map[int]int

// Add records one flagged read.
func (r ReadsToRemove) Add(pos, overhang int) {
	m, ok := r[pos]
	if !ok {
		m = make(map[int]int)
		r[pos] = m
	}
	m[overhang]++
}

// Positions returns the flagged positions in increasing order.
func (r ReadsToRemove) Positions() []int {
	positions := make([]int, 0, len(r))
	for pos := range r {
		positions = append(positions, pos)
	}
	sort.Ints(positions)
	return positions
}

// Overhangs returns the overhangs recorded at pos in increasing order.
func (r ReadsToRemove) Overhangs(pos int) []int {
	overhangs := make([]int, 0, len(r[pos]))
	for o := range r[pos] {
		overhangs = append(overhangs, o)
	}
	sort.Ints(overhangs)
	return overhangs
}

// RetentionPolicy flags deletion reads whose alignment stops within the
// deleted span: such a read does not witness the whole deletion.
type RetentionPolicy struct {
	// Exclude keeps flagged reads out of the indel windows.
	Exclude bool
}

// Flag reports whether the event's read should be removed from downstream
// coverage. Only deletions are ever flagged, whatever their length.
func (p RetentionPolicy) Flag(ev ReadEvent) bool {
	n := ev.Obs.IndelLength
	if ev.Kind != EventIndel || n >= 0 {
		return false
	}
	return ev.Overhang <= -n
}
