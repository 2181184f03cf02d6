package storage

import (
	"database/sql"
	_ "embed"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaSQL string

const timeLayout = time.RFC3339

// DB wraps a sql.DB for the feature store.
type DB struct {
	conn *sql.DB
}

// Open opens (or creates) the SQLite database at the given path and applies the schema.
func Open(path string) (*DB, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", path)
	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// An in-memory database lives on a single connection.
	conn.SetMaxOpenConns(1)
	if _, err := conn.Exec(schemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &DB{conn: conn}, nil
}

// Close closes the underlying connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Run is one extract invocation.
type Run struct {
	ID         string
	StartedAt  time.Time
	FinishedAt time.Time
	Sources    int
	Accepted   int
	Rejected   int
	Rows       int
	ValidRows  int
}

// Match is the stored summary of one processed match.
type Match struct {
	MatchID        string
	RunID          string
	MapName        string
	Source         string
	Rounds         int
	ValidRounds    int
	SkippedRounds  int
	DroppedRecords int
	Errors         int
	Warnings       int
	Duration       time.Duration
	ProcessedAt    time.Time
}
