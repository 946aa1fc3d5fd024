package output

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/inodb/codon-counter/internal/extract"
)

// Table file names inside an output directory.
const (
	SubstitutionsFile = "substitutions.tsv"
	CodonWindowsFile  = "codon_windows.tsv"
	IndelsFile        = "indels.tsv"
	DepthFile         = "depth.tsv"
	ReadsToRemoveFile = "reads_to_remove.tsv"
)

// Tables writes the results of all samples of a run into one directory.
type Tables struct {
	files   []*os.File
	writers []headerWriter

	subs    *SubstitutionWriter
	windows *WindowWriter
	indels  *IndelWriter
	depth   *DepthWriter
	removal *RemovalWriter
}

type headerWriter interface {
	WriteHeader() error
	Flush() error
}

// CreateTables creates dir and the table files inside it, headers included.
func CreateTables(dir string) (*Tables, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}

	t := &Tables{}
	create := func(name string, newWriter func(f *os.File) headerWriter) error {
		f, err := os.Create(filepath.Join(dir, name))
		if err != nil {
			return fmt.Errorf("create %s: %w", name, err)
		}
		t.files = append(t.files, f)
		w := newWriter(f)
		t.writers = append(t.writers, w)
		return w.WriteHeader()
	}

	err := errors.Join(
		create(SubstitutionsFile, func(f *os.File) headerWriter { t.subs = NewSubstitutionWriter(f); return t.subs }),
		create(CodonWindowsFile, func(f *os.File) headerWriter { t.windows = NewWindowWriter(f); return t.windows }),
		create(IndelsFile, func(f *os.File) headerWriter { t.indels = NewIndelWriter(f); return t.indels }),
		create(DepthFile, func(f *os.File) headerWriter { t.depth = NewDepthWriter(f); return t.depth }),
		create(ReadsToRemoveFile, func(f *os.File) headerWriter { t.removal = NewRemovalWriter(f); return t.removal }),
	)
	if err != nil {
		t.Close()
		return nil, err
	}
	return t, nil
}

// Write appends the result of one alignment file. Skipped results are ignored.
func (t *Tables) Write(res *extract.SourceResult) error {
	if res == nil || res.Skipped {
		return nil
	}
	for _, s := range res.Substitutions {
		if err := t.subs.Write(res.Sample, s); err != nil {
			return err
		}
		if err := t.windows.Write(res.Sample, s); err != nil {
			return err
		}
	}
	if err := t.indels.Write(res.Sample, res.Indels); err != nil {
		return err
	}
	if err := t.depth.Write(res.Sample, res.Depth); err != nil {
		return err
	}
	return t.removal.Write(res.Sample, res.ReadsToRemove)
}

// Close flushes all tables and closes their files.
func (t *Tables) Close() error {
	var errs []error
	for _, w := range t.writers {
		errs = append(errs, w.Flush())
	}
	for _, f := range t.files {
		errs = append(errs, f.Close())
	}
	return errors.Join(errs...)
}
