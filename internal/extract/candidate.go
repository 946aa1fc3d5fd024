package extract

import (
	"sort"
)

// CandidateRow is one record of the variant caller's per-position table.
type CandidateRow struct {
	Pos     int   // 1-based position as reported by the caller
	Support []int // read support per allele, reference allele first
	IsIndel bool
}

// CandidateSite is a position worth inspecting at read level.
type CandidateSite struct {
	Coordinate      int // 0-based
	IsIndel         bool
	TotalDepth      int
	AlleleFractions []float64 // non-reference alleles only
	Support         []int
}

// DepthRow is the total read support reported for one position.
type DepthRow struct {
	Pos   int // 1-based
	Depth int
}

// FilterCandidates reduces caller rows to candidate sites. Rows with a
// summed support below MinSeqDepth are dropped; the remaining rows are kept
// when at least one non-reference allele fraction exceeds AltNucFraction.
// A position yields at most one substitution site and one indel site; of
// several kept rows of the same kind, the one with the largest total wins.
// The depth table holds the largest total seen for every position, before
// any filtering.
func FilterCandidates(rows []CandidateRow, t Thresholds) ([]CandidateSite, []DepthRow) {
	type siteKey struct {
		pos     int
		isIndel bool
	}
	maxDepth := make(map[int]int)
	seen := make(map[siteKey]int)
	var sites []CandidateSite

	for _, row := range rows {
		total := 0
		for _, n := range row.Support {
			total += n
		}
		if d, ok := maxDepth[row.Pos]; !ok || total > d {
			maxDepth[row.Pos] = total
		}

		if total == 0 || total < t.MinSeqDepth || len(row.Support) < 2 {
			continue
		}

		fractions := make([]float64, len(row.Support)-1)
		keep := false
		for i, n := range row.Support[1:] {
			fractions[i] = float64(n) / float64(total)
			if fractions[i] > t.AltNucFraction {
				keep = true
			}
		}
		if !keep {
			continue
		}

		site := CandidateSite{
			Coordinate:      row.Pos - 1,
			IsIndel:         row.IsIndel,
			TotalDepth:      total,
			AlleleFractions: fractions,
			Support:         row.Support,
		}
		key := siteKey{row.Pos, row.IsIndel}
		if i, ok := seen[key]; ok {
			if total > sites[i].TotalDepth {
				sites[i] = site
			}
			continue
		}
		seen[key] = len(sites)
		sites = append(sites, site)
	}

	sort.SliceStable(sites, func(i, j int) bool { return sites[i].Coordinate < sites[j].Coordinate })

	depth := make([]DepthRow, 0, len(maxDepth))
	for pos, d := range maxDepth {
		depth = append(depth, DepthRow{Pos: pos, Depth: d})
	}
	sort.Slice(depth, func(i, j int) bool { return depth[i].Pos < depth[j].Pos })

	return sites, depth
}
