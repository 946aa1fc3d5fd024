package vcf

import (
	"fmt"
	"strconv"
	"strings"
)

// Variant represents a single record of an mpileup VCF.
type Variant struct {
	Chrom   string            // Reference name (e.g., "NC_045512.2")
	Pos     int64             // 1-based genomic position
	ID      string            // Variant identifier
	Ref     string            // Reference allele
	Alt     string            // Alternate alleles, comma separated ("<*>" for the gVCF block)
	Qual    float64           // Quality score
	Filter  string            // Filter status
	Info    map[string]string // INFO values, "" for flags
	Format  []string          // FORMAT keys (e.g., PL, AD)
	Samples [][]string        // per-sample values, aligned with Format
}

// IsIndel reports whether bcftools flagged the record as an indel.
func (v *Variant) IsIndel() bool {
	_, ok := v.Info["INDEL"]
	return ok
}

// FormatValue returns the raw FORMAT value for key in the given sample.
func (v *Variant) FormatValue(sample int, key string) (string, bool) {
	if sample < 0 || sample >= len(v.Samples) {
		return "", false
	}
	for i, k := range v.Format {
		if k != key {
			continue
		}
		values := v.Samples[sample]
		if i >= len(values) {
			return "", false
		}
		return values[i], true
	}
	return "", false
}

// AlleleDepths parses the AD (per-allele read support) field of a sample.
// The first entry is the reference allele.
func (v *Variant) AlleleDepths(sample int) ([]int, error) {
	raw, ok := v.FormatValue(sample, "AD")
	if !ok {
		return nil, fmt.Errorf("%s:%d: %w: no AD value", v.Chrom, v.Pos, ErrMalformedSupport)
	}

	parts := strings.Split(raw, ",")
	depths := make([]int, len(parts))
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("%s:%d: %w: %q", v.Chrom, v.Pos, ErrMalformedSupport, raw)
		}
		if n < 0 {
			return nil, fmt.Errorf("%s:%d: %w: negative depth in %q", v.Chrom, v.Pos, ErrMalformedSupport, raw)
		}
		depths[i] = n
	}
	return depths, nil
}
