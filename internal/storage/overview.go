package storage

import "fmt"

// Overview is a high-level summary of the database.
type Overview struct {
	Runs          int
	Matches       int
	Rows          int
	ValidRows     int
	SkippedRounds int
	Earliest      string
	Latest        string
}

// MapStat is the round outcome breakdown of one map.
type MapStat struct {
	MapName string
	Matches int
	Rounds  int
	CTWins  int
	TWins   int
}

// GetOverview returns database-wide totals. Earliest and Latest are empty
// when no match is stored.
func (db *DB) GetOverview() (Overview, error) {
	var ov Overview
	if err := db.conn.QueryRow(`SELECT COUNT(*) FROM runs`).Scan(&ov.Runs); err != nil {
		return ov, fmt.Errorf("count runs: %w", err)
	}
	err := db.conn.QueryRow(`
		SELECT COUNT(*), COALESCE(SUM(skipped_rounds), 0),
		       COALESCE(MIN(processed_at), ''), COALESCE(MAX(processed_at), '')
		FROM matches`).Scan(&ov.Matches, &ov.SkippedRounds, &ov.Earliest, &ov.Latest)
	if err != nil {
		return ov, fmt.Errorf("summarise matches: %w", err)
	}
	err = db.conn.QueryRow(`
		SELECT COUNT(*), COALESCE(SUM(is_valid), 0) FROM round_features`).Scan(&ov.Rows, &ov.ValidRows)
	if err != nil {
		return ov, fmt.Errorf("summarise rows: %w", err)
	}
	return ov, nil
}

// GetMapStats returns per-map round outcomes, busiest map first.
func (db *DB) GetMapStats() ([]MapStat, error) {
	rows, err := db.conn.Query(`
		SELECT map_name,
		       COUNT(DISTINCT match_id),
		       COUNT(*),
		       SUM(CASE WHEN round_winner = 'CT' THEN 1 ELSE 0 END),
		       SUM(CASE WHEN round_winner = 'T' THEN 1 ELSE 0 END)
		FROM round_features
		GROUP BY map_name
		ORDER BY COUNT(*) DESC, map_name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []MapStat
	for rows.Next() {
		var s MapStat
		if err := rows.Scan(&s.MapName, &s.Matches, &s.Rounds, &s.CTWins, &s.TWins); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
