package extract

import (
	"sort"
)

// BaseCount tallies one nucleotide observed at a site.
type BaseCount struct {
	Count   int
	Windows map[CodonWindow]int
}

// SiteResult holds the bases kept at a substitution site.
type SiteResult struct {
	Coordinate int // 0-based
	RefBase    byte
	ReadDepth  int
	Bases      map[byte]*BaseCount
}

// SortedBases returns the observed bases in byte order.
func (s *SiteResult) SortedBases() []byte {
	bases := make([]byte, 0, len(s.Bases))
	for b := range s.Bases {
		bases = append(bases, b)
	}
	sort.Slice(bases, func(i, j int) bool { return bases[i] < bases[j] })
	return bases
}

// WindowCount is one aggregated window with its number of reads.
type WindowCount struct {
	Window CodonWindow
	Count  int
}

// SortedWindows returns the windows of base ordered by read window.
func (s *SiteResult) SortedWindows(base byte) []WindowCount {
	bc, ok := s.Bases[base]
	if !ok {
		return nil
	}
	return sortedCounts(bc.Windows)
}

// siteAccumulator collects the substitution events of a single site. It is
// owned by the scan of that site and discarded once pruned.
type siteAccumulator struct {
	site SiteResult
}

func newSiteAccumulator(pos, depth int, refBase byte) *siteAccumulator {
	return &siteAccumulator{site: SiteResult{
		Coordinate: pos,
		RefBase:    refBase,
		ReadDepth:  depth,
		Bases:      make(map[byte]*BaseCount),
	}}
}

func (a *siteAccumulator) add(base byte, w CodonWindow) {
	bc, ok := a.site.Bases[base]
	if !ok {
		bc = &BaseCount{Windows: make(map[CodonWindow]int)}
		a.site.Bases[base] = bc
	}
	bc.Count++
	bc.Windows[w]++
}

// prune drops non-reference bases seen in fewer than altFraction × depth
// reads. The site is kept only if a non-reference base survives.
func (a *siteAccumulator) prune(altFraction float64) (*SiteResult, bool) {
	minCount := altFraction * float64(a.site.ReadDepth)
	kept := false
	for base, bc := range a.site.Bases {
		if base == a.site.RefBase {
			continue
		}
		if float64(bc.Count) < minCount {
			delete(a.site.Bases, base)
			continue
		}
		kept = true
	}
	if !kept {
		return nil, false
	}
	return &a.site, true
}

// IndelTable counts identical indel windows. The window key carries the
// position, column depth, signed length and both sequences.
type IndelTable map[CodonWindow]int

// Sorted returns the entries ordered by position, length and sequences.
func (t IndelTable) Sorted() []WindowCount {
	return sortedCounts(t)
}

func sortedCounts(m map[CodonWindow]int) []WindowCount {
	out := make([]WindowCount, 0, len(m))
	for w, n := range m {
		out = append(out, WindowCount{Window: w, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i].Window, out[j].Window
		if a.Position != b.Position {
			return a.Position < b.Position
		}
		if a.IndelLength != b.IndelLength {
			return a.IndelLength < b.IndelLength
		}
		if a.Reference != b.Reference {
			return a.Reference < b.Reference
		}
		if a.Read != b.Read {
			return a.Read < b.Read
		}
		return a.Depth < b.Depth
	})
	return out
}
