// Package database provides database access for the quiz host.
package database

import (
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"           // PostgreSQL driver
	_ "github.com/mattn/go-sqlite3" // SQLite driver for single-host and test deployments
)

// DB wraps the SQL database connection
type DB struct {
	*sql.DB
}

// New creates a new database connection. Supported drivers are "postgres"
// and "sqlite3"; queries use $n placeholders, which both drivers accept.
func New(driver, dsn string) (*DB, error) {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{DB: db}, nil
}

// Migrate creates all required tables. Column types stay in the portable
// subset both drivers understand.
func (db *DB) Migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS players (
		id TEXT PRIMARY KEY,
		nickname VARCHAR(64) NOT NULL,
		created_at TIMESTAMP NOT NULL
	);

	CREATE TABLE IF NOT EXISTS play_sessions (
		id TEXT PRIMARY KEY,
		player_id TEXT NOT NULL REFERENCES players(id),
		started_at TIMESTAMP NOT NULL,
		ended_at TIMESTAMP,
		status VARCHAR(20) NOT NULL DEFAULT 'active',
		rounds_played INTEGER NOT NULL DEFAULT 0,
		correct_count INTEGER NOT NULL DEFAULT 0,
		score BIGINT NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS rankings (
		id TEXT PRIMARY KEY,
		player_id TEXT NOT NULL REFERENCES players(id),
		session_id TEXT NOT NULL REFERENCES play_sessions(id),
		score BIGINT NOT NULL,
		correct_count INTEGER NOT NULL,
		rounds_played INTEGER NOT NULL,
		recorded_at TIMESTAMP NOT NULL
	);

	CREATE TABLE IF NOT EXISTS events (
		id TEXT PRIMARY KEY,
		type VARCHAR(100) NOT NULL,
		severity VARCHAR(20) NOT NULL,
		timestamp TIMESTAMP NOT NULL,
		player_id TEXT,
		session_id TEXT,
		description TEXT NOT NULL,
		data TEXT,
		component VARCHAR(100) NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_play_sessions_player ON play_sessions(player_id);
	CREATE INDEX IF NOT EXISTS idx_rankings_score ON rankings(score);
	CREATE INDEX IF NOT EXISTS idx_rankings_player ON rankings(player_id);
	CREATE INDEX IF NOT EXISTS idx_events_timestamp ON events(timestamp);
	CREATE INDEX IF NOT EXISTS idx_events_type ON events(type);
	`

	_, err := db.Exec(schema)
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// Reset drops all tables (for testing)
func (db *DB) Reset() error {
	_, err := db.Exec(`
		DROP TABLE IF EXISTS events;
		DROP TABLE IF EXISTS rankings;
		DROP TABLE IF EXISTS play_sessions;
		DROP TABLE IF EXISTS players;
	`)
	return err
}

// CleanData deletes all rows without dropping tables (for testing). DELETE
// is used instead of TRUNCATE because SQLite has no TRUNCATE statement.
func (db *DB) CleanData() error {
	_, err := db.Exec(`
		DELETE FROM events;
		DELETE FROM rankings;
		DELETE FROM play_sessions;
		DELETE FROM players;
	`)
	return err
}
