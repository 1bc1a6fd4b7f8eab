// Package table persists the climate time series as a delimited tabular
// file: a fixed header whose statistic columns depend on the display unit,
// followed by one row per processed raster in processing order.
package table

import (
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/districtwater/gridclim/internal/domain"
)

// Store writes and rewrites one time-series CSV file. It implements
// pipeline.TableAppender and pipeline.TableRewriter.
type Store struct {
	path   string
	header []string
	logger *slog.Logger
}

// NewStore creates (or overwrites) the destination file and writes the
// header for the given display unit. Failure to create the directory or the
// file is fatal to the run.
func NewStore(dir, file, unit string, logger *slog.Logger) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create table directory: %w", err)
	}
	s := &Store{
		path:   filepath.Join(dir, file),
		header: domain.TableHeader(unit),
		logger: logger,
	}

	f, err := os.Create(s.path)
	if err != nil {
		return nil, fmt.Errorf("create time-series table: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(s.header); err != nil {
		return nil, fmt.Errorf("write table header: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("write table header: %w", err)
	}
	logger.Info("time-series table created", "path", s.path, "columns", len(s.header))
	return s, nil
}

// Path returns the table's file path.
func (s *Store) Path() string { return s.path }

// Append adds one statistics row. Any write failure propagates and aborts
// the remaining rows.
func (s *Store) Append(rec domain.StatisticsRecord) error {
	f, err := os.OpenFile(s.path, os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open time-series table: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(rec.Row()); err != nil {
		return fmt.Errorf("append row for %q: %w", rec.Filename, err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("append row for %q: %w", rec.Filename, err)
	}
	return nil
}

// ReadAll returns the header and every data row of the store's table.
func (s *Store) ReadAll() (header []string, rows [][]string, err error) {
	return ReadAll(s.path)
}

// Rewrite replaces the store's table with a new header and rows.
func (s *Store) Rewrite(header []string, rows [][]string) error {
	return Rewrite(s.path, header, rows)
}

// ReadAll returns the header and every data row of the table at path. Used
// by the antecedent-index pass, which re-reads the completed table.
func ReadAll(path string) (header []string, rows [][]string, err error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open time-series table: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	all, err := r.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("read time-series table: %w", err)
	}
	if len(all) == 0 {
		return nil, nil, fmt.Errorf("time-series table %q is empty", path)
	}
	return all[0], all[1:], nil
}

// Rewrite replaces the table at path with a new header and rows. The write
// goes through a temporary file in the same directory and renames over the
// original, so a failed rewrite never leaves a truncated table.
func Rewrite(path string, header []string, rows [][]string) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temporary table: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	w := csv.NewWriter(tmp)
	if err := w.Write(header); err != nil {
		tmp.Close()
		return fmt.Errorf("rewrite table header: %w", err)
	}
	if err := w.WriteAll(rows); err != nil {
		tmp.Close()
		return fmt.Errorf("rewrite table rows: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		tmp.Close()
		return fmt.Errorf("rewrite table: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temporary table: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("replace time-series table: %w", err)
	}
	return nil
}
