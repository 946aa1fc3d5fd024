// Package duckdb persists extraction results in DuckDB so that runs over
// many samples can be queried together.
package duckdb

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/marcboeker/go-duckdb"
)

// Store manages a DuckDB connection holding result tables.
type Store struct {
	db *sql.DB
}

// Open opens or creates a DuckDB database at the given path.
// Use an empty string for an in-memory database.
func Open(path string) (*Store, error) {
	if path != "" {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, fmt.Errorf("open duckdb: %w", err)
	}

	s := &Store{db: db}
	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// tables lists the per-sample tables, in schema order.
var tables = []string{"sources", "substitutions", "codon_windows", "indels", "depth", "reads_to_remove"}

// ensureSchema creates tables if they don't exist. Positions are 1-based.
func (s *Store) ensureSchema() error {
	for _, stmt := range []string{
		`CREATE TABLE IF NOT EXISTS sources (
			sample VARCHAR,
			path VARCHAR,
			size BIGINT,
			mod_time TIMESTAMP,
			skipped BOOLEAN,
			PRIMARY KEY (sample)
		)`,
		`CREATE TABLE IF NOT EXISTS substitutions (
			sample VARCHAR,
			pos BIGINT,
			ref_base VARCHAR,
			read_count BIGINT,
			base VARCHAR,
			base_count BIGINT,
			PRIMARY KEY (sample, pos, base)
		)`,
		`CREATE TABLE IF NOT EXISTS codon_windows (
			sample VARCHAR,
			pos BIGINT,
			base VARCHAR,
			ref_window VARCHAR,
			read_window VARCHAR,
			count BIGINT
		)`,
		`CREATE TABLE IF NOT EXISTS indels (
			sample VARCHAR,
			pos BIGINT,
			depth BIGINT,
			indel BIGINT,
			ref_window VARCHAR,
			read_window VARCHAR,
			count BIGINT
		)`,
		`CREATE TABLE IF NOT EXISTS depth (
			sample VARCHAR,
			pos BIGINT,
			depth BIGINT,
			PRIMARY KEY (sample, pos)
		)`,
		`CREATE TABLE IF NOT EXISTS reads_to_remove (
			sample VARCHAR,
			pos BIGINT,
			overhang BIGINT,
			count BIGINT,
			PRIMARY KEY (sample, pos, overhang)
		)`,
	} {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}
