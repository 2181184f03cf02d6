package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/pable/cs-round-features/internal/aggregator"
	"github.com/pable/cs-round-features/internal/model"
	"github.com/pable/cs-round-features/internal/validate"
)

var featureColumns = strings.Join(model.Columns(), ", ")

// InsertRun records an extract run. Uses INSERT OR REPLACE for idempotency.
func (db *DB) InsertRun(r Run) error {
	_, err := db.conn.Exec(`
		INSERT OR REPLACE INTO runs(id, started_at, finished_at, sources, accepted, rejected, row_count, valid_rows)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.StartedAt.UTC().Format(timeLayout), r.FinishedAt.UTC().Format(timeLayout),
		r.Sources, r.Accepted, r.Rejected, r.Rows, r.ValidRows,
	)
	if err != nil {
		return fmt.Errorf("insert run %s: %w", r.ID, err)
	}
	return nil
}

// ListRuns returns all runs, newest first.
func (db *DB) ListRuns() ([]Run, error) {
	rows, err := db.conn.Query(`
		SELECT id, started_at, finished_at, sources, accepted, rejected, row_count, valid_rows
		FROM runs ORDER BY started_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		var r Run
		var started, finished string
		if err := rows.Scan(&r.ID, &started, &finished, &r.Sources, &r.Accepted, &r.Rejected, &r.Rows, &r.ValidRows); err != nil {
			return nil, err
		}
		r.StartedAt, _ = time.Parse(timeLayout, started)
		r.FinishedAt, _ = time.Parse(timeLayout, finished)
		out = append(out, r)
	}
	return out, rows.Err()
}

// MatchExists returns true if a match with the given id is already stored.
func (db *DB) MatchExists(id string) (bool, error) {
	var count int
	err := db.conn.QueryRow("SELECT COUNT(1) FROM matches WHERE match_id = ?", id).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// SaveMatch stores a match, its rows and its check results in one
// transaction, replacing anything stored earlier under the same id.
func (db *DB) SaveMatch(m Match, table validate.Table) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := deleteMatch(tx, m.MatchID); err != nil {
		return err
	}
	if err := insertMatch(tx, m); err != nil {
		return err
	}
	if err := insertFeatureRows(tx, m.MatchID, table.Rows); err != nil {
		return err
	}
	if err := insertValidationChecks(tx, m.MatchID, table.Report.Checks); err != nil {
		return err
	}
	return tx.Commit()
}

func insertMatch(tx *sql.Tx, m Match) error {
	_, err := tx.Exec(`
		INSERT OR REPLACE INTO matches(match_id, run_id, map_name, source, rounds, valid_rounds,
			skipped_rounds, dropped_records, errors, warnings, duration_ms, processed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		m.MatchID, m.RunID, m.MapName, m.Source, m.Rounds, m.ValidRounds,
		m.SkippedRounds, m.DroppedRecords, m.Errors, m.Warnings,
		m.Duration.Milliseconds(), m.ProcessedAt.UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("insert match %s: %w", m.MatchID, err)
	}
	return nil
}

func insertFeatureRows(tx *sql.Tx, matchID string, rows []validate.Row) error {
	n := len(model.Columns()) + 3
	placeholders := strings.TrimSuffix(strings.Repeat("?,", n), ",")
	stmt, err := tx.Prepare(fmt.Sprintf(`
		INSERT OR REPLACE INTO round_features(match_id, %s, is_valid, failed_checks)
		VALUES (%s)`, featureColumns, placeholders))
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, r := range rows {
		args := make([]any, 0, n)
		args = append(args, matchID)
		args = append(args, r.Cells()...)
		args = append(args, boolInt(r.Valid), strings.Join(r.Failed, ","))
		if _, err := stmt.Exec(args...); err != nil {
			return fmt.Errorf("insert round_features %s round %d: %w", matchID, r.RoundNum, err)
		}
	}
	return nil
}

func insertValidationChecks(tx *sql.Tx, matchID string, checks []validate.CheckResult) error {
	stmt, err := tx.Prepare(`
		INSERT OR REPLACE INTO validation_checks(match_id, check_name, description, severity, passed, failures, rounds)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, c := range checks {
		_, err := stmt.Exec(matchID, c.Name, c.Description, string(c.Severity),
			boolInt(c.Passed), c.Failures, joinInts(c.Rounds))
		if err != nil {
			return fmt.Errorf("insert validation_checks %s/%s: %w", matchID, c.Name, err)
		}
	}
	return nil
}

const matchColumns = `match_id, run_id, map_name, source, rounds, valid_rounds,
	skipped_rounds, dropped_records, errors, warnings, duration_ms, processed_at`

func scanMatch(sc interface{ Scan(...any) error }) (Match, error) {
	var m Match
	var ms int64
	var processed string
	err := sc.Scan(&m.MatchID, &m.RunID, &m.MapName, &m.Source, &m.Rounds, &m.ValidRounds,
		&m.SkippedRounds, &m.DroppedRecords, &m.Errors, &m.Warnings, &ms, &processed)
	if err != nil {
		return Match{}, err
	}
	m.Duration = time.Duration(ms) * time.Millisecond
	m.ProcessedAt, _ = time.Parse(timeLayout, processed)
	return m, nil
}

// ListMatches returns all stored matches, most recently processed first.
func (db *DB) ListMatches() ([]Match, error) {
	rows, err := db.conn.Query(`SELECT ` + matchColumns + ` FROM matches ORDER BY processed_at DESC, match_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Match
	for rows.Next() {
		m, err := scanMatch(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// GetMatchByPrefix finds the first match whose id starts with the given
// prefix. It returns nil when none does.
func (db *DB) GetMatchByPrefix(prefix string) (*Match, error) {
	m, err := scanMatch(db.conn.QueryRow(
		`SELECT `+matchColumns+` FROM matches WHERE match_id LIKE ? ORDER BY match_id LIMIT 1`, prefix+"%"))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// GetFeatureRows returns the rows of a match in round order.
func (db *DB) GetFeatureRows(matchID string) ([]validate.Row, error) {
	rows, err := db.conn.Query(fmt.Sprintf(`
		SELECT %s, is_valid, failed_checks
		FROM round_features WHERE match_id = ?
		ORDER BY round_num`, featureColumns), matchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []validate.Row
	for rows.Next() {
		r, err := scanFeatureRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func scanFeatureRow(rows *sql.Rows, extra ...any) (validate.Row, error) {
	var r validate.Row
	var valid int
	var failed string
	dest := append(extra, r.ScanTargets()...)
	dest = append(dest, &valid, &failed)
	if err := rows.Scan(dest...); err != nil {
		return validate.Row{}, fmt.Errorf("scan round_features: %w", err)
	}
	r.Valid = valid != 0
	if failed != "" {
		r.Failed = strings.Split(failed, ",")
	}
	return r, nil
}

// Dataset returns every stored row as one dataset, matches ordered by id.
func (db *DB) Dataset() (aggregator.Dataset, error) {
	rows, err := db.conn.Query(fmt.Sprintf(`
		SELECT match_id, %s, is_valid, failed_checks
		FROM round_features ORDER BY match_id, round_num`, featureColumns))
	if err != nil {
		return aggregator.Dataset{}, err
	}
	defer rows.Close()

	var ds aggregator.Dataset
	for rows.Next() {
		var id string
		r, err := scanFeatureRow(rows, &id)
		if err != nil {
			return aggregator.Dataset{}, err
		}
		if len(ds.Matches) == 0 || ds.Matches[len(ds.Matches)-1] != id {
			ds.Matches = append(ds.Matches, id)
		}
		ds.Rows = append(ds.Rows, aggregator.Record{MatchID: id, Row: r})
	}
	return ds, rows.Err()
}

// GetValidationChecks returns the check results of a match in check order.
func (db *DB) GetValidationChecks(matchID string) ([]validate.CheckResult, error) {
	rows, err := db.conn.Query(`
		SELECT check_name, description, severity, passed, failures, rounds
		FROM validation_checks WHERE match_id = ?`, matchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	byName := make(map[string]validate.CheckResult)
	for rows.Next() {
		var c validate.CheckResult
		var severity, rounds string
		var passed int
		if err := rows.Scan(&c.Name, &c.Description, &severity, &passed, &c.Failures, &rounds); err != nil {
			return nil, err
		}
		c.Severity = validate.Severity(severity)
		c.Passed = passed != 0
		if c.Rounds, err = splitInts(rounds); err != nil {
			return nil, fmt.Errorf("check %s rounds: %w", c.Name, err)
		}
		byName[c.Name] = c
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	var out []validate.CheckResult
	for _, name := range validate.CheckNames() {
		if c, ok := byName[name]; ok {
			out = append(out, c)
		}
	}
	return out, nil
}

// DeleteMatch removes a match and everything stored for it.
func (db *DB) DeleteMatch(matchID string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if err := deleteMatch(tx, matchID); err != nil {
		return err
	}
	return tx.Commit()
}

func deleteMatch(tx *sql.Tx, matchID string) error {
	for _, table := range []string{"validation_checks", "round_features", "matches"} {
		if _, err := tx.Exec("DELETE FROM "+table+" WHERE match_id = ?", matchID); err != nil {
			return fmt.Errorf("delete %s of %s: %w", table, matchID, err)
		}
	}
	return nil
}

// QueryRaw runs an arbitrary query and returns its columns and rows as text.
func (db *DB) QueryRaw(query string) ([]string, [][]string, error) {
	rows, err := db.conn.Query(query)
	if err != nil {
		return nil, nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, nil, err
	}
	var out [][]string
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, nil, err
		}
		row := make([]string, len(cols))
		for i, v := range vals {
			row[i] = formatValue(v)
		}
		out = append(out, row)
	}
	return cols, out, rows.Err()
}

func formatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return "NULL"
	case []byte:
		return string(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	default:
		return fmt.Sprint(x)
	}
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func joinInts(xs []int) string {
	parts := make([]string, len(xs))
	for i, x := range xs {
		parts[i] = strconv.Itoa(x)
	}
	return strings.Join(parts, ",")
}

func splitInts(s string) ([]int, error) {
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	out := make([]int, len(parts))
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return nil, err
		}
		out[i] = n
	}
	return out, nil
}
