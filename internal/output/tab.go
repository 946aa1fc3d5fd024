// Package output writes extraction results as tab-delimited tables.
package output

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/inodb/codon-counter/internal/extract"
)

// tabWriter writes rows of a fixed set of columns.
type tabWriter struct {
	w       *bufio.Writer
	columns []string
}

func newTabWriter(w io.Writer, columns ...string) tabWriter {
	return tabWriter{w: bufio.NewWriter(w), columns: columns}
}

// WriteHeader writes the header line.
func (tw *tabWriter) WriteHeader() error {
	_, err := tw.w.WriteString(strings.Join(tw.columns, "\t") + "\n")
	return err
}

func (tw *tabWriter) writeRow(values ...string) error {
	if len(values) != len(tw.columns) {
		return fmt.Errorf("row has %d values, want %d", len(values), len(tw.columns))
	}
	_, err := tw.w.WriteString(strings.Join(values, "\t") + "\n")
	return err
}

// Flush flushes any buffered data to the underlying writer.
func (tw *tabWriter) Flush() error {
	return tw.w.Flush()
}

// SubstitutionWriter writes one row per kept substitution site.
type SubstitutionWriter struct {
	tabWriter
}

// NewSubstitutionWriter creates a substitution table writer.
func NewSubstitutionWriter(w io.Writer) *SubstitutionWriter {
	return &SubstitutionWriter{newTabWriter(w,
		"sample", "pos", "ref_base", "read_count", "base_count", "base_pt")}
}

// Write writes a site. Base counts are listed as "A:9,T:1" and their
// shares of the read depth as whole percentages.
func (sw *SubstitutionWriter) Write(sample string, s *extract.SiteResult) error {
	bases := s.SortedBases()
	counts := make([]string, len(bases))
	pts := make([]string, len(bases))
	for i, b := range bases {
		n := s.Bases[b].Count
		counts[i] = fmt.Sprintf("%c:%d", b, n)
		pts[i] = fmt.Sprintf("%c:%s", b, percent(n, s.ReadDepth, 0))
	}
	return sw.writeRow(
		sample,
		strconv.Itoa(s.Coordinate+1),
		string(s.RefBase),
		strconv.Itoa(s.ReadDepth),
		strings.Join(counts, ","),
		strings.Join(pts, ","),
	)
}

// WindowWriter writes the codon windows seen for each base of a site.
type WindowWriter struct {
	tabWriter
}

// NewWindowWriter creates a codon window table writer.
func NewWindowWriter(w io.Writer) *WindowWriter {
	return &WindowWriter{newTabWriter(w,
		"sample", "pos", "base", "ref_window", "read_window", "count")}
}

// Write writes every window of every base kept at the site.
func (ww *WindowWriter) Write(sample string, s *extract.SiteResult) error {
	pos := strconv.Itoa(s.Coordinate + 1)
	for _, b := range s.SortedBases() {
		for _, wc := range s.SortedWindows(b) {
			err := ww.writeRow(sample, pos, string(b),
				wc.Window.Reference, wc.Window.Read, strconv.Itoa(wc.Count))
			if err != nil {
				return err
			}
		}
	}
	return nil
}

// IndelWriter writes aggregated indel windows.
type IndelWriter struct {
	tabWriter
}

// NewIndelWriter creates an indel table writer.
func NewIndelWriter(w io.Writer) *IndelWriter {
	return &IndelWriter{newTabWriter(w,
		"sample", "pos", "depth", "indel", "ref", "read", "count", "indel_read_pt")}
}

// Write writes all entries of the table, ordered by position.
func (iw *IndelWriter) Write(sample string, t extract.IndelTable) error {
	for _, wc := range t.Sorted() {
		w := wc.Window
		err := iw.writeRow(
			sample,
			strconv.Itoa(w.Position+1),
			strconv.Itoa(w.Depth),
			strconv.Itoa(w.IndelLength),
			w.Reference,
			w.Read,
			strconv.Itoa(wc.Count),
			percent(wc.Count, w.Depth, 2),
		)
		if err != nil {
			return err
		}
	}
	return nil
}

// DepthWriter writes the caller's total depth per position.
type DepthWriter struct {
	tabWriter
}

// NewDepthWriter creates a depth table writer.
func NewDepthWriter(w io.Writer) *DepthWriter {
	return &DepthWriter{newTabWriter(w, "sample", "pos", "depth")}
}

// Write writes the depth rows, which are already 1-based.
func (dw *DepthWriter) Write(sample string, rows []extract.DepthRow) error {
	for _, r := range rows {
		if err := dw.writeRow(sample, strconv.Itoa(r.Pos), strconv.Itoa(r.Depth)); err != nil {
			return err
		}
	}
	return nil
}

// RemovalWriter writes the reads-to-remove bookkeeping.
type RemovalWriter struct {
	tabWriter
}

// NewRemovalWriter creates a reads-to-remove table writer.
func NewRemovalWriter(w io.Writer) *RemovalWriter {
	return &RemovalWriter{newTabWriter(w, "sample", "pos", "overhang", "count")}
}

// Write writes one row per position and overhang.
func (rw *RemovalWriter) Write(sample string, r extract.ReadsToRemove) error {
	for _, pos := range r.Positions() {
		for _, o := range r.Overhangs(pos) {
			err := rw.writeRow(sample, strconv.Itoa(pos+1), strconv.Itoa(o), strconv.Itoa(r[pos][o]))
			if err != nil {
				return err
			}
		}
	}
	return nil
}

// percent formats n as a percentage of total.
func percent(n, total, prec int) string {
	if total == 0 {
		return "-"
	}
	return strconv.FormatFloat(float64(n)*100/float64(total), 'f', prec, 64)
}
