package aggregator

import (
	"errors"
	"fmt"
	"sort"
	"strconv"

	"github.com/pable/cs-round-features/internal/model"
	"github.com/pable/cs-round-features/internal/validate"
)

// ErrEmptyMatchID rejects a table that has no match id.
var ErrEmptyMatchID = errors.New("empty match id")

// DuplicateMatchError means two tables share one match id. The whole
// aggregation fails; nothing is merged.
type DuplicateMatchError struct {
	MatchID       string
	First, Second int // input positions
}

func (e *DuplicateMatchError) Error() string {
	return fmt.Sprintf("duplicate match id %q at inputs %d and %d", e.MatchID, e.First, e.Second)
}

// MatchTable is the validated output of one match.
type MatchTable struct {
	MatchID string
	Table   validate.Table
}

// Record is one row of the dataset.
type Record struct {
	MatchID string
	validate.Row
}

// Strings formats the record in Columns order.
func (r Record) Strings() []string {
	out := make([]string, 0, len(model.Columns())+2)
	out = append(out, r.MatchID)
	out = append(out, r.FeatureRow.Strings()...)
	valid := 0
	if r.Valid {
		valid = 1
	}
	return append(out, strconv.Itoa(valid))
}

// Dataset is the concatenation of many matches.
type Dataset struct {
	Matches []string // match ids in input order
	Rows    []Record
}

// Columns is the dataset header: match_id, the row columns, then is_valid.
func Columns() []string {
	cols := []string{"match_id"}
	cols = append(cols, model.Columns()...)
	return append(cols, "is_valid")
}

// ValidRows counts the rows no error-severity check flagged.
func (d Dataset) ValidRows() int {
	n := 0
	for _, r := range d.Rows {
		if r.Valid {
			n++
		}
	}
	return n
}

// Aggregate concatenates tables into one dataset. Matches keep their input
// order; rows inside a match are ordered by round number.
func Aggregate(tables []MatchTable) (Dataset, error) {
	seen := make(map[string]int, len(tables))
	for i, t := range tables {
		if t.MatchID == "" {
			return Dataset{}, fmt.Errorf("aggregate input %d: %w", i, ErrEmptyMatchID)
		}
		if first, ok := seen[t.MatchID]; ok {
			return Dataset{}, &DuplicateMatchError{MatchID: t.MatchID, First: first, Second: i}
		}
		seen[t.MatchID] = i
	}

	var ds Dataset
	for _, t := range tables {
		rows := append([]validate.Row(nil), t.Table.Rows...)
		sort.SliceStable(rows, func(i, j int) bool { return rows[i].RoundNum < rows[j].RoundNum })

		ds.Matches = append(ds.Matches, t.MatchID)
		for _, r := range rows {
			ds.Rows = append(ds.Rows, Record{MatchID: t.MatchID, Row: r})
		}
	}
	return ds, nil
}
