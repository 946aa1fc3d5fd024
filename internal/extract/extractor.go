package extract

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/inodb/codon-counter/internal/alignment"
)

// Region is the reference range a run covers, 1-based and inclusive as
// bcftools expects it.
type Region struct {
	RefName string
	Start   int
	End     int
}

func (r Region) String() string {
	return fmt.Sprintf("%s:%d-%d", r.RefName, r.Start, r.End)
}

// PileupSource yields pileup columns for one alignment file.
type PileupSource interface {
	References() []string
	HasReference(name string) bool
	Pileup(ref string, start, end int, f alignment.Filter) ([]alignment.Column, error)
	Close() error
}

// CandidateProvider supplies the variant caller's table for one alignment file.
type CandidateProvider interface {
	Candidates(ctx context.Context, bamPath string, region Region) ([]CandidateRow, error)
}

// Opener opens the pileup source stored at path.
type Opener func(path string) (PileupSource, error)

// SourceResult is everything extracted from one alignment file.
type SourceResult struct {
	Sample  string
	Source  string
	Skipped bool // the reference was not in the alignment header

	Substitutions []*SiteResult
	Indels        IndelTable
	ReadsToRemove ReadsToRemove
	Depth         []DepthRow
}

// Extractor runs the site scan for alignment files against one reference
// region. It holds only read-only state and may be shared by workers.
type Extractor struct {
	thresholds Thresholds
	region     Region
	ref        Reference
	candidates CandidateProvider
	retention  RetentionPolicy
	open       Opener
	logger     *zap.Logger
}

// NewExtractor creates an extractor. ref must hold the contig named by region.
func NewExtractor(t Thresholds, region Region, ref Reference, candidates CandidateProvider) *Extractor {
	return &Extractor{
		thresholds: t,
		region:     region,
		ref:        ref,
		candidates: candidates,
		retention:  RetentionPolicy{Exclude: t.ExcludeFlaggedReads},
		open: func(path string) (PileupSource, error) {
			return alignment.Open(path)
		},
		logger: zap.NewNop(),
	}
}

// SetLogger sets the logger for warning and info messages.
func (e *Extractor) SetLogger(l *zap.Logger) {
	e.logger = l
}

// SetOpener replaces how alignment files are opened.
func (e *Extractor) SetOpener(o Opener) {
	e.open = o
}

// SampleName derives the sample name from an alignment file path.
func SampleName(path string) string {
	base := filepath.Base(path)
	if i := strings.Index(base, ".bam"); i > 0 {
		return base[:i]
	}
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// Run processes one alignment file. When the file does not contain the
// region's reference, the returned result is marked skipped and the error
// wraps alignment.ErrReferenceNotFound.
func (e *Extractor) Run(ctx context.Context, path string) (*SourceResult, error) {
	e.logger.Info("analysing alignment", zap.String("path", path))

	src, err := e.open(path)
	if err != nil {
		return nil, err
	}
	defer src.Close()

	res := &SourceResult{Sample: SampleName(path), Source: path}

	if !src.HasReference(e.region.RefName) {
		e.logger.Warn("reference not in alignment, ignoring",
			zap.String("path", path),
			zap.String("reference", e.region.RefName),
			zap.Strings("available", src.References()))
		res.Skipped = true
		return res, fmt.Errorf("%s: %w: %s", path, alignment.ErrReferenceNotFound, e.region.RefName)
	}

	rows, err := e.candidates.Candidates(ctx, path, e.region)
	if err != nil {
		return nil, fmt.Errorf("%s: candidate sites: %w", path, err)
	}

	if err := e.analyze(ctx, src, rows, res); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return res, nil
}

// Analyze scans candidate rows against an already opened source.
func (e *Extractor) Analyze(ctx context.Context, src PileupSource, rows []CandidateRow) (*SourceResult, error) {
	res := &SourceResult{}
	if err := e.analyze(ctx, src, rows, res); err != nil {
		return nil, err
	}
	return res, nil
}

func (e *Extractor) analyze(ctx context.Context, src PileupSource, rows []CandidateRow, res *SourceResult) error {
	sites, depth := FilterCandidates(rows, e.thresholds)
	res.Depth = depth
	res.Indels = make(IndelTable)
	res.ReadsToRemove = make(ReadsToRemove)

	e.logger.Debug("candidate sites",
		zap.Int("rows", len(rows)),
		zap.Int("sites", len(sites)))

	for _, site := range sites {
		if err := ctx.Err(); err != nil {
			return err
		}

		col, ok, err := e.scanColumn(src, site.Coordinate)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}

		if sr, kept := e.processSite(site, col, res); kept {
			res.Substitutions = append(res.Substitutions, sr)
		}
	}
	return nil
}

// scanColumn returns the first pileup column at exactly pos.
func (e *Extractor) scanColumn(src PileupSource, pos int) (alignment.Column, bool, error) {
	cols, err := src.Pileup(e.region.RefName, pos, pos+1, e.thresholds.pileupFilter())
	if err != nil {
		return alignment.Column{}, false, fmt.Errorf("pileup at %d: %w", pos, err)
	}
	for _, col := range cols {
		if col.Pos == pos {
			return col, true, nil
		}
	}
	return alignment.Column{}, false, nil
}

// processSite aggregates the reads of one column. It returns the
// substitution result when the site keeps a non-reference base.
func (e *Extractor) processSite(site CandidateSite, col alignment.Column, res *SourceResult) (*SiteResult, bool) {
	pos := site.Coordinate
	acc := newSiteAccumulator(pos, col.N, e.ref.Base(pos))

	for i := range col.Reads {
		ev := Classify(&col.Reads[i], site.IsIndel)

		switch ev.Kind {
		case EventIndel:
			flagged := e.retention.Flag(ev)
			if flagged {
				res.ReadsToRemove.Add(pos, ev.Overhang)
			}
			if !FramePreserving(ev.Obs.IndelLength) {
				continue
			}
			if flagged && e.retention.Exclude {
				continue
			}
			res.Indels[IndelWindow(e.ref, pos, col.N, ev)]++

		case EventSubstitution:
			acc.add(ev.Base, SubstitutionWindow(e.ref, pos, col.N, ev))
		}
	}

	if site.IsIndel {
		return nil, false
	}
	sr, kept := acc.prune(e.thresholds.AltNucFraction)
	if !kept {
		e.logger.Debug("site dropped", zap.Int("pos", pos), zap.Int("depth", col.N))
	}
	return sr, kept
}
