// Package dataset reads and writes the aggregated feature table as CSV.
package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"

	"github.com/pable/cs-round-features/internal/aggregator"
	"github.com/pable/cs-round-features/internal/model"
	"github.com/pable/cs-round-features/internal/validate"
)

// ErrMissingColumn means the header lacks a required column.
var ErrMissingColumn = errors.New("missing column")

const (
	matchIDColumn = "match_id"
	validColumn   = "is_valid"
)

// WriteCSV writes a header of aggregator.Columns and one line per record.
func WriteCSV(w io.Writer, ds aggregator.Dataset) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(aggregator.Columns()); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for i, r := range ds.Rows {
		if err := cw.Write(r.Strings()); err != nil {
			return fmt.Errorf("write row %d: %w", i, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteFile writes ds to path, replacing any existing file.
func WriteFile(path string, ds aggregator.Dataset) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := WriteCSV(f, ds); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// ReadCSV parses a table written by WriteCSV. Columns may come in any order;
// unknown columns are ignored. Every feature column and match_id must be
// present; is_valid is optional.
func ReadCSV(r io.Reader) (aggregator.Dataset, error) {
	cr := csv.NewReader(r)
	header, err := cr.Read()
	if err != nil {
		return aggregator.Dataset{}, fmt.Errorf("read header: %w", err)
	}

	cols := aggregator.Columns()
	for _, c := range cols {
		if c != validColumn && !slices.Contains(header, c) {
			return aggregator.Dataset{}, fmt.Errorf("%w %q", ErrMissingColumn, c)
		}
	}

	var ds aggregator.Dataset
	seen := make(map[string]bool)
	for line := 2; ; line++ {
		cells, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return aggregator.Dataset{}, fmt.Errorf("read line %d: %w", line, err)
		}

		var rec aggregator.Record
		for i, name := range header {
			switch {
			case name == matchIDColumn:
				rec.MatchID = cells[i]
			case name == validColumn:
				rec.Valid = cells[i] == "1" || cells[i] == "true"
			case slices.Contains(cols, name):
				if err := rec.SetColumn(name, cells[i]); err != nil {
					return aggregator.Dataset{}, fmt.Errorf("line %d: %w", line, err)
				}
			}
		}
		if !seen[rec.MatchID] {
			seen[rec.MatchID] = true
			ds.Matches = append(ds.Matches, rec.MatchID)
		}
		ds.Rows = append(ds.Rows, rec)
	}
	return ds, nil
}

// ReadFile reads the table at path.
func ReadFile(path string) (aggregator.Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return aggregator.Dataset{}, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return ReadCSV(f)
}

// Revalidate reruns validation on every match of ds, in match order. Flags
// from a previous run are discarded.
func Revalidate(ds aggregator.Dataset, lim validate.Limits) []aggregator.MatchTable {
	out := make([]aggregator.MatchTable, 0, len(ds.Matches))
	for _, id := range ds.Matches {
		var rows []model.FeatureRow
		for _, r := range ds.Rows {
			if r.MatchID == id {
				rows = append(rows, r.FeatureRow)
			}
		}
		out = append(out, aggregator.MatchTable{MatchID: id, Table: validate.Validate(rows, lim)})
	}
	return out
}
