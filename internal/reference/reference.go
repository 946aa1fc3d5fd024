// Package reference provides random access to reference contigs.
package reference

import (
	"bufio"
	"bytes"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/biogo/hts/fai"
)

// Gap pads window positions that fall outside a sequence.
const Gap = '-'

// ErrContigNotFound is returned when the requested contig is not in the FASTA.
var ErrContigNotFound = errors.New("contig not found")

// Contig is an in-memory reference sequence. It is never mutated after
// loading and is safe to share between goroutines.
type Contig struct {
	Name string
	seq  []byte
}

// NewContig creates a contig from a literal sequence.
func NewContig(name, seq string) *Contig {
	return &Contig{Name: name, seq: bytes.ToUpper([]byte(seq))}
}

// Len returns the contig length.
func (c *Contig) Len() int {
	return len(c.seq)
}

// Base returns the base at 0-based pos, or Gap when pos is outside the contig.
func (c *Contig) Base(pos int) byte {
	if pos < 0 || pos >= len(c.seq) {
		return Gap
	}
	return c.seq[pos]
}

// Slice returns the half-open range [start, end). Positions outside the
// contig are returned as Gap so the result always has end-start characters.
func (c *Contig) Slice(start, end int) string {
	if end <= start {
		return ""
	}
	out := make([]byte, end-start)
	for i := range out {
		out[i] = c.Base(start + i)
	}
	return string(out)
}

// Load reads a single contig from a FASTA file. Plain files are accessed
// through their faidx index (path + ".fai"), which is built in memory when
// missing. Gzipped files are streamed.
func Load(path, name string) (*Contig, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open FASTA file: %w", err)
	}
	defer f.Close()

	if strings.HasSuffix(path, ".gz") {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("open gzip reader: %w", err)
		}
		defer gz.Close()
		return parseFASTA(gz, name)
	}

	idx, err := readIndex(path, f)
	if err != nil {
		return nil, err
	}
	return fromIndex(f, idx, name)
}

// FromReader builds the faidx index for an uncompressed FASTA held in r and
// extracts the named contig.
func FromReader(r io.ReaderAt, size int64, name string) (*Contig, error) {
	idx, err := fai.NewIndex(io.NewSectionReader(r, 0, size))
	if err != nil {
		return nil, fmt.Errorf("index FASTA: %w", err)
	}
	return fromIndex(r, idx, name)
}

func readIndex(path string, f *os.File) (fai.Index, error) {
	idxFile, err := os.Open(path + ".fai")
	if err == nil {
		defer idxFile.Close()
		idx, err := fai.ReadFrom(idxFile)
		if err != nil {
			return nil, fmt.Errorf("read FASTA index: %w", err)
		}
		return idx, nil
	}
	if !os.IsNotExist(err) {
		return nil, fmt.Errorf("open FASTA index: %w", err)
	}

	idx, err := fai.NewIndex(f)
	if err != nil {
		return nil, fmt.Errorf("index FASTA: %w", err)
	}
	return idx, nil
}

func fromIndex(r io.ReaderAt, idx fai.Index, name string) (*Contig, error) {
	rec, ok := lookup(idx, name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrContigNotFound, name)
	}

	seq, err := fai.NewFile(r, idx).SeqRange(rec.Name, 0, rec.Length)
	if err != nil {
		return nil, fmt.Errorf("read contig %s: %w", name, err)
	}
	b, err := io.ReadAll(seq)
	if err != nil {
		return nil, fmt.Errorf("read contig %s: %w", name, err)
	}
	return &Contig{Name: name, seq: bytes.ToUpper(b)}, nil
}

// lookup finds a contig by its identifier, also when the index keys
// records by their full header line.
func lookup(idx fai.Index, name string) (fai.Record, bool) {
	if rec, ok := idx[name]; ok {
		return rec, true
	}
	for key, rec := range idx {
		if parseHeader(">"+key) == name {
			return rec, true
		}
	}
	return fai.Record{}, false
}

// parseFASTA scans a FASTA stream and returns the named record.
func parseFASTA(r io.Reader, name string) (*Contig, error) {
	scanner := bufio.NewScanner(r)
	// Increase buffer size for long sequences
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 10*1024*1024)

	var (
		inRecord bool
		found    bool
		seq      bytes.Buffer
	)

	for scanner.Scan() {
		line := scanner.Text()

		if strings.HasPrefix(line, ">") {
			if found {
				break
			}
			inRecord = parseHeader(line) == name
			found = inRecord
			continue
		}
		if inRecord {
			seq.WriteString(strings.TrimSpace(line))
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan FASTA: %w", err)
	}
	if !found {
		return nil, fmt.Errorf("%w: %s", ErrContigNotFound, name)
	}

	return &Contig{Name: name, seq: bytes.ToUpper(seq.Bytes())}, nil
}

// parseHeader extracts the sequence name from a FASTA header, matching the
// faidx convention of using the first whitespace-delimited word.
func parseHeader(header string) string {
	header = strings.TrimPrefix(header, ">")
	if fields := strings.Fields(header); len(fields) > 0 {
		return fields[0]
	}
	return ""
}
