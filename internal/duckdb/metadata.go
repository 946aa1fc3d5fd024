package duckdb

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"time"
)

// FileFingerprint holds stat-based identity for an alignment file.
type FileFingerprint struct {
	Path    string
	Size    int64
	ModTime time.Time
}

// StatFile creates a FileFingerprint from an on-disk file. The modification
// time is kept at the microsecond precision of a DuckDB TIMESTAMP.
func StatFile(path string) (FileFingerprint, error) {
	info, err := os.Stat(path)
	if err != nil {
		return FileFingerprint{}, err
	}
	return FileFingerprint{
		Path:    path,
		Size:    info.Size(),
		ModTime: info.ModTime().Truncate(time.Microsecond).UTC(),
	}, nil
}

// Source is the stored provenance of one sample.
type Source struct {
	Sample      string
	Fingerprint FileFingerprint
	Skipped     bool
}

// Sources returns the provenance of every stored sample, ordered by name.
func (s *Store) Sources() ([]Source, error) {
	rows, err := s.db.Query(`SELECT sample, path, size, mod_time, skipped
		FROM sources ORDER BY sample`)
	if err != nil {
		return nil, fmt.Errorf("query sources: %w", err)
	}
	defer rows.Close()

	var out []Source
	for rows.Next() {
		var src Source
		if err := rows.Scan(&src.Sample, &src.Fingerprint.Path, &src.Fingerprint.Size,
			&src.Fingerprint.ModTime, &src.Skipped); err != nil {
			return nil, fmt.Errorf("scan source: %w", err)
		}
		out = append(out, src)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sources: %w", err)
	}
	return out, nil
}

// UpToDate reports whether sample was stored from a file with the same fingerprint.
func (s *Store) UpToDate(sample string, fp FileFingerprint) (bool, error) {
	var size int64
	var modTime time.Time
	err := s.db.QueryRow(`SELECT size, mod_time FROM sources WHERE sample=? AND path=?`,
		sample, fp.Path).Scan(&size, &modTime)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("query source %s: %w", sample, err)
	}
	return size == fp.Size && modTime.Equal(fp.ModTime), nil
}
