package duckdb

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"

	goduckdb "github.com/marcboeker/go-duckdb"

	"github.com/inodb/codon-counter/internal/extract"
)

// SubstitutionRow is one base kept at a substitution site.
type SubstitutionRow struct {
	Sample    string
	Pos       int64
	RefBase   string
	ReadCount int64
	Base      string
	BaseCount int64
}

// IndelRow is one aggregated indel window.
type IndelRow struct {
	Sample     string
	Pos        int64
	Depth      int64
	Indel      int64
	RefWindow  string
	ReadWindow string
	Count      int64
}

// WriteResult replaces everything stored for the result's sample. The old
// rows are deleted first; the new rows are appended in one transaction.
// Skipped results only record their source.
func (s *Store) WriteResult(res *extract.SourceResult, fp FileFingerprint) error {
	ctx := context.Background()
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("get connection: %w", err)
	}
	defer conn.Close()

	if err := clearSample(ctx, conn, res.Sample); err != nil {
		return err
	}

	if _, err := conn.ExecContext(ctx, "BEGIN TRANSACTION"); err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := writeResult(conn, res, fp); err != nil {
		if _, rbErr := conn.ExecContext(ctx, "ROLLBACK"); rbErr != nil {
			return errors.Join(err, fmt.Errorf("rollback: %w", rbErr))
		}
		return fmt.Errorf("write %s: %w", res.Sample, err)
	}
	if _, err := conn.ExecContext(ctx, "COMMIT"); err != nil {
		return fmt.Errorf("commit %s: %w", res.Sample, err)
	}
	return nil
}

// writeResult appends the result tables and then the sources row, so a
// source is only marked as stored once its tables are complete.
func writeResult(conn *sql.Conn, res *extract.SourceResult, fp FileFingerprint) error {
	if !res.Skipped {
		if err := appendTables(conn, res); err != nil {
			return err
		}
	}

	return appendRows(conn, "sources", func(a *goduckdb.Appender) error {
		return a.AppendRow(res.Sample, fp.Path, fp.Size, fp.ModTime, res.Skipped)
	})
}

func appendTables(conn *sql.Conn, res *extract.SourceResult) error {
	if err := appendRows(conn, "substitutions", func(a *goduckdb.Appender) error {
		for _, site := range res.Substitutions {
			for _, b := range site.SortedBases() {
				if err := a.AppendRow(res.Sample, int64(site.Coordinate+1), string(site.RefBase),
					int64(site.ReadDepth), string(b), int64(site.Bases[b].Count)); err != nil {
					return err
				}
			}
		}
		return nil
	}); err != nil {
		return err
	}

	if err := appendRows(conn, "codon_windows", func(a *goduckdb.Appender) error {
		for _, site := range res.Substitutions {
			for _, b := range site.SortedBases() {
				for _, wc := range site.SortedWindows(b) {
					if err := a.AppendRow(res.Sample, int64(site.Coordinate+1), string(b),
						wc.Window.Reference, wc.Window.Read, int64(wc.Count)); err != nil {
						return err
					}
				}
			}
		}
		return nil
	}); err != nil {
		return err
	}

	if err := appendRows(conn, "indels", func(a *goduckdb.Appender) error {
		for _, wc := range res.Indels.Sorted() {
			w := wc.Window
			if err := a.AppendRow(res.Sample, int64(w.Position+1), int64(w.Depth), int64(w.IndelLength),
				w.Reference, w.Read, int64(wc.Count)); err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		return err
	}

	if err := appendRows(conn, "depth", func(a *goduckdb.Appender) error {
		for _, d := range res.Depth {
			if err := a.AppendRow(res.Sample, int64(d.Pos), int64(d.Depth)); err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		return err
	}

	return appendRows(conn, "reads_to_remove", func(a *goduckdb.Appender) error {
		for _, pos := range res.ReadsToRemove.Positions() {
			for _, o := range res.ReadsToRemove.Overhangs(pos) {
				if err := a.AppendRow(res.Sample, int64(pos+1), int64(o),
					int64(res.ReadsToRemove[pos][o])); err != nil {
					return err
				}
			}
		}
		return nil
	})
}

// appendRows batch-inserts into table using the Appender API on conn.
func appendRows(conn *sql.Conn, table string, fill func(a *goduckdb.Appender) error) error {
	var appender *goduckdb.Appender
	if err := conn.Raw(func(driverConn any) error {
		var err error
		appender, err = goduckdb.NewAppenderFromConn(driverConn.(driver.Conn), "", table)
		return err
	}); err != nil {
		return fmt.Errorf("create appender for %s: %w", table, err)
	}

	if err := fill(appender); err != nil {
		appender.Close()
		return fmt.Errorf("append %s: %w", table, err)
	}
	if err := appender.Close(); err != nil {
		return fmt.Errorf("flush %s: %w", table, err)
	}
	return nil
}

// ClearSample removes every row stored for sample.
func (s *Store) ClearSample(sample string) error {
	ctx := context.Background()
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("get connection: %w", err)
	}
	defer conn.Close()
	return clearSample(ctx, conn, sample)
}

func clearSample(ctx context.Context, conn *sql.Conn, sample string) error {
	for _, table := range tables {
		if _, err := conn.ExecContext(ctx, "DELETE FROM "+table+" WHERE sample=?", sample); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}
	return nil
}

// SubstitutionsFor returns the bases stored for sample, ordered by position and base.
func (s *Store) SubstitutionsFor(sample string) ([]SubstitutionRow, error) {
	rows, err := s.db.Query(`SELECT sample, pos, ref_base, read_count, base, base_count
		FROM substitutions
		WHERE sample=?
		ORDER BY pos, base`, sample)
	if err != nil {
		return nil, fmt.Errorf("query substitutions: %w", err)
	}
	defer rows.Close()

	var out []SubstitutionRow
	for rows.Next() {
		var r SubstitutionRow
		if err := rows.Scan(&r.Sample, &r.Pos, &r.RefBase, &r.ReadCount, &r.Base, &r.BaseCount); err != nil {
			return nil, fmt.Errorf("scan substitution: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate substitutions: %w", err)
	}
	return out, nil
}

// IndelsAt returns the indel windows of all samples at a 1-based position.
func (s *Store) IndelsAt(pos int64) ([]IndelRow, error) {
	rows, err := s.db.Query(`SELECT sample, pos, depth, indel, ref_window, read_window, count
		FROM indels
		WHERE pos=?
		ORDER BY sample, indel, read_window`, pos)
	if err != nil {
		return nil, fmt.Errorf("query indels: %w", err)
	}
	defer rows.Close()

	var out []IndelRow
	for rows.Next() {
		var r IndelRow
		if err := rows.Scan(&r.Sample, &r.Pos, &r.Depth, &r.Indel, &r.RefWindow, &r.ReadWindow, &r.Count); err != nil {
			return nil, fmt.Errorf("scan indel: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate indels: %w", err)
	}
	return out, nil
}

// Count returns the number of rows of table stored for sample.
func (s *Store) Count(table, sample string) (int, error) {
	known := false
	for _, t := range tables {
		known = known || t == table
	}
	if !known {
		return 0, fmt.Errorf("unknown table %q", table)
	}
	var n int
	err := s.db.QueryRow("SELECT count(*) FROM "+table+" WHERE sample=?", sample).Scan(&n)
	return n, err
}
