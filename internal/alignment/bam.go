package alignment

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/biogo/hts/bam"
	"github.com/biogo/hts/bgzf/index"
	"github.com/biogo/hts/sam"
)

// ErrReferenceNotFound is returned when a reference name is not in the BAM header.
var ErrReferenceNotFound = errors.New("reference not in alignment header")

// BAM is a pileup source backed by a BAM file. A BAM is owned by a single
// goroutine for its whole lifetime.
type BAM struct {
	path string
	f    *os.File
	r    *bam.Reader
	idx  *bam.Index
	refs map[string]*sam.Reference

	// cached holds all records of one reference when no index is available.
	cached    []*sam.Record
	cachedRef string
}

// Open opens a BAM file and its index (path + ".bai") when present. Without
// an index, the records of a queried reference are read once and kept in
// memory.
func Open(path string) (*BAM, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open bam file: %w", err)
	}

	r, err := bam.NewReader(f, 1)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("read bam header: %w", err)
	}
	r.Omit(bam.AuxTags)

	b := &BAM{
		path: path,
		f:    f,
		r:    r,
		refs: make(map[string]*sam.Reference),
	}
	for _, ref := range r.Header().Refs() {
		b.refs[ref.Name()] = ref
	}

	idx, err := readIndex(path + ".bai")
	if err != nil {
		b.Close()
		return nil, err
	}
	if idx != nil && idx.NumRefs() > len(b.refs) {
		b.Close()
		return nil, fmt.Errorf("bam index %s.bai has %d references, header has %d", path, idx.NumRefs(), len(b.refs))
	}
	b.idx = idx

	return b, nil
}

func readIndex(path string) (*bam.Index, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open bam index: %w", err)
	}
	defer f.Close()

	idx, err := bam.ReadIndex(f)
	if err != nil {
		return nil, fmt.Errorf("read bam index: %w", err)
	}
	return idx, nil
}

// References returns the reference names in header order.
func (b *BAM) References() []string {
	refs := b.r.Header().Refs()
	names := make([]string, len(refs))
	for i, ref := range refs {
		names[i] = ref.Name()
	}
	return names
}

// HasReference reports whether name is a reference in the BAM header.
func (b *BAM) HasReference(name string) bool {
	_, ok := b.refs[name]
	return ok
}

// Pileup returns the non-empty columns for positions in [start, end) of ref.
func (b *BAM) Pileup(ref string, start, end int, f Filter) ([]Column, error) {
	records, err := b.fetch(ref, start, end)
	if err != nil {
		return nil, err
	}

	var cols []Column
	for pos := start; pos < end; pos++ {
		col := BuildColumn(records, pos, f)
		if col.N > 0 {
			cols = append(cols, col)
		}
	}
	return cols, nil
}

// fetch returns the records of ref overlapping [start, end), sorted by start.
func (b *BAM) fetch(ref string, start, end int) ([]*sam.Record, error) {
	r, ok := b.refs[ref]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrReferenceNotFound, ref)
	}

	if b.idx == nil {
		if err := b.loadAll(ref); err != nil {
			return nil, err
		}
		return overlapping(b.cached, start, end), nil
	}

	chunks, err := b.idx.Chunks(r, start, end)
	switch {
	case errors.Is(err, index.ErrNoReference), errors.Is(err, index.ErrInvalid):
		// Nothing is indexed for this reference or past its last read.
		return nil, nil
	case err != nil:
		return nil, fmt.Errorf("query bam index for %s:%d-%d: %w", ref, start, end, err)
	}
	it, err := bam.NewIterator(b.r, chunks)
	if err != nil {
		return nil, fmt.Errorf("create bam iterator for %s:%d-%d: %w", ref, start, end, err)
	}

	var records []*sam.Record
	for it.Next() {
		rec := it.Record()
		if rec.Ref == nil || rec.Ref.Name() != ref {
			continue
		}
		if rec.Pos < end && rec.End() > start {
			records = append(records, rec)
		}
	}
	if err := it.Close(); err != nil {
		return nil, fmt.Errorf("iterate bam records: %w", err)
	}
	return records, nil
}

func (b *BAM) loadAll(ref string) error {
	if b.cachedRef == ref && b.cached != nil {
		return nil
	}

	f, err := os.Open(b.path)
	if err != nil {
		return fmt.Errorf("open bam file: %w", err)
	}
	defer f.Close()

	r, err := bam.NewReader(f, 1)
	if err != nil {
		return fmt.Errorf("read bam header: %w", err)
	}
	defer r.Close()
	r.Omit(bam.AuxTags)

	var records []*sam.Record
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("read bam record: %w", err)
		}
		if rec.Ref != nil && rec.Ref.Name() == ref {
			records = append(records, rec)
		}
	}
	sort.SliceStable(records, func(i, j int) bool { return records[i].Pos < records[j].Pos })

	b.cached = records
	b.cachedRef = ref
	return nil
}

func overlapping(records []*sam.Record, start, end int) []*sam.Record {
	var out []*sam.Record
	for _, rec := range records {
		if rec.Pos >= end {
			break
		}
		if rec.End() > start {
			out = append(out, rec)
		}
	}
	return out
}

// Close releases the underlying file.
func (b *BAM) Close() error {
	if b.r != nil {
		b.r.Close()
	}
	return b.f.Close()
}
