// Package mpileup produces the per-position candidate table of an alignment
// file by running bcftools mpileup and reading its allelic depths.
package mpileup

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/inodb/codon-counter/internal/extract"
	"github.com/inodb/codon-counter/internal/vcf"
)

// ErrMalformedCandidate is returned when a caller record has an unreadable
// support vector.
var ErrMalformedCandidate = errors.New("malformed candidate row")

// Runner runs an external command to completion.
type Runner func(ctx context.Context, name string, args ...string) error

// ExecRunner runs the command with os/exec. Stderr is attached to the error.
func ExecRunner(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			return fmt.Errorf("%s: %w", name, err)
		}
		return fmt.Errorf("%s: %w: %s", name, err, msg)
	}
	return nil
}

// Bcftools calls variants-per-position with bcftools mpileup.
type Bcftools struct {
	Binary     string // defaults to "bcftools"
	Reference  string // FASTA path, must be faidx indexed
	TmpDir     string // where intermediate VCFs are written, "" for os.TempDir
	Thresholds extract.Thresholds

	run    Runner
	logger *zap.Logger
}

// NewBcftools creates a provider that runs bcftools against the reference.
func NewBcftools(reference, tmpDir string, t extract.Thresholds) *Bcftools {
	return &Bcftools{
		Binary:     "bcftools",
		Reference:  reference,
		TmpDir:     tmpDir,
		Thresholds: t,
		run:        ExecRunner,
		logger:     zap.NewNop(),
	}
}

// SetLogger sets the logger.
func (b *Bcftools) SetLogger(l *zap.Logger) {
	b.logger = l
}

// SetRunner replaces how bcftools is executed.
func (b *Bcftools) SetRunner(r Runner) {
	b.run = r
}

// Args returns the mpileup arguments that write the table for bamPath to out.
func (b *Bcftools) Args(bamPath string, region extract.Region, out string) []string {
	t := b.Thresholds
	depth := strconv.Itoa(t.MaxSeqDepth)
	args := []string{
		"mpileup",
		"--annotate", "FORMAT/AD",
		"-d", depth,
		"-L", depth,
		"-m", "1",
		"-e", "40",
		"--open-prob", "40",
		"-B",
		"-q", strconv.Itoa(t.MinMappingQuality),
		"-C0",
		"-Q", strconv.Itoa(t.MinBaseQuality),
		"-r", region.String(),
		"--no-BAQ",
		"-f", b.Reference,
		"-o", out,
		bamPath,
	}
	if t.IgnoreOverlaps {
		args = append(args, "-x")
	}
	if !t.IgnoreOrphans {
		args = append(args, "-A")
	}
	return args
}

// Candidates runs bcftools for one alignment file and returns its rows.
func (b *Bcftools) Candidates(ctx context.Context, bamPath string, region extract.Region) ([]extract.CandidateRow, error) {
	tmp, err := os.CreateTemp(b.TmpDir, extract.SampleName(bamPath)+"-*.vcf")
	if err != nil {
		return nil, fmt.Errorf("create mpileup output: %w", err)
	}
	out := tmp.Name()
	tmp.Close()
	defer os.Remove(out)

	args := b.Args(bamPath, region, out)
	b.logger.Debug("running bcftools",
		zap.String("binary", b.Binary),
		zap.Strings("args", args))

	if err := b.run(ctx, b.Binary, args...); err != nil {
		return nil, fmt.Errorf("bcftools mpileup: %w", err)
	}

	return ReadFile(out)
}

// ReadFile reads candidate rows from an mpileup VCF file.
func ReadFile(path string) ([]extract.CandidateRow, error) {
	p, err := vcf.NewParser(path)
	if err != nil {
		return nil, err
	}
	defer p.Close()
	return readRows(p)
}

// ReadRows reads candidate rows from an mpileup VCF stream.
func ReadRows(r io.Reader) ([]extract.CandidateRow, error) {
	p, err := vcf.NewParserFromReader(r)
	if err != nil {
		return nil, err
	}
	return readRows(p)
}

// readRows takes the support of the first sample of every record.
func readRows(p vcf.VariantParser) ([]extract.CandidateRow, error) {
	var rows []extract.CandidateRow
	for {
		v, err := p.Next()
		if err != nil {
			return nil, err
		}
		if v == nil {
			return rows, nil
		}

		ad, err := v.AlleleDepths(0)
		if err != nil {
			return nil, fmt.Errorf("%w at line %d: %w", ErrMalformedCandidate, p.LineNumber(), err)
		}
		rows = append(rows, extract.CandidateRow{
			Pos:     int(v.Pos),
			Support: ad,
			IsIndel: v.IsIndel(),
		})
	}
}

// Static serves fixed rows, keyed by sample name.
type Static map[string][]extract.CandidateRow

// Candidates returns the rows stored for the sample of bamPath.
func (s Static) Candidates(_ context.Context, bamPath string, _ extract.Region) ([]extract.CandidateRow, error) {
	return s[extract.SampleName(bamPath)], nil
}

var (
	_ extract.CandidateProvider = (*Bcftools)(nil)
	_ extract.CandidateProvider = Static(nil)
)
