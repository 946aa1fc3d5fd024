// Package extract scans read pileups at candidate sites and collects the
// codon-level sequence context of substitutions and indels.
package extract

import (
	"errors"
	"fmt"

	"github.com/inodb/codon-counter/internal/alignment"
)

// Thresholds bundles the quality, depth and frequency parameters of a run.
// It is created once and shared read-only by every component.
type Thresholds struct {
	MinMappingQuality int     `mapstructure:"min_mapping_quality"`
	MinBaseQuality    int     `mapstructure:"min_base_quality"`
	MinSeqDepth       int     `mapstructure:"min_seq_depth"`
	MaxSeqDepth       int     `mapstructure:"max_seq_depth"`
	AltNucFraction    float64 `mapstructure:"alt_nuc_fraction"`
	IgnoreOverlaps    bool    `mapstructure:"ignore_overlaps"`
	IgnoreOrphans     bool    `mapstructure:"ignore_orphans"`

	// ExcludeFlaggedReads keeps deletion reads flagged by the retention
	// policy out of the indel table. The reads-to-remove bookkeeping is
	// reported either way.
	ExcludeFlaggedReads bool `mapstructure:"exclude_flagged_reads"`
}

// DefaultThresholds returns the thresholds used when nothing is configured.
func DefaultThresholds() Thresholds {
	return Thresholds{
		MinMappingQuality: 0,
		MinBaseQuality:    0,
		MinSeqDepth:       10,
		MaxSeqDepth:       1000000,
		AltNucFraction:    0.03,
		IgnoreOverlaps:    true,
		IgnoreOrphans:     true,
	}
}

// Validate checks that the thresholds are usable.
func (t Thresholds) Validate() error {
	var errs []error
	if t.MinMappingQuality < 0 {
		errs = append(errs, fmt.Errorf("min mapping quality must be >= 0, got %d", t.MinMappingQuality))
	}
	if t.MinBaseQuality < 0 {
		errs = append(errs, fmt.Errorf("min base quality must be >= 0, got %d", t.MinBaseQuality))
	}
	if t.MinSeqDepth < 0 {
		errs = append(errs, fmt.Errorf("min sequencing depth must be >= 0, got %d", t.MinSeqDepth))
	}
	if t.MaxSeqDepth < 0 {
		errs = append(errs, fmt.Errorf("max sequencing depth must be >= 0, got %d", t.MaxSeqDepth))
	}
	if t.MaxSeqDepth > 0 && t.MaxSeqDepth < t.MinSeqDepth {
		errs = append(errs, fmt.Errorf("max sequencing depth %d is below min sequencing depth %d", t.MaxSeqDepth, t.MinSeqDepth))
	}
	if t.AltNucFraction < 0 || t.AltNucFraction > 1 {
		errs = append(errs, fmt.Errorf("alternative nucleotide fraction must be in [0, 1], got %g", t.AltNucFraction))
	}
	return errors.Join(errs...)
}

func (t Thresholds) pileupFilter() alignment.Filter {
	return alignment.Filter{
		MinMappingQuality: t.MinMappingQuality,
		MinBaseQuality:    t.MinBaseQuality,
		MaxDepth:          t.MaxSeqDepth,
		IgnoreOverlaps:    t.IgnoreOverlaps,
		IgnoreOrphans:     t.IgnoreOrphans,
	}
}
