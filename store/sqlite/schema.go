package sqlite

import (
	"database/sql"
	"fmt"
)

// initDB enables WAL and foreign keys and creates the tables.
// PRE: db is a valid database connection
// POST: all tables exist
func initDB(db *sql.DB) error {
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return fmt.Errorf("failed to enable WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		return fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	schema := `
	CREATE TABLE IF NOT EXISTS access_grant (
		kind INTEGER PRIMARY KEY,
		status TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS calendar (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		color TEXT NOT NULL DEFAULT '',
		kind INTEGER NOT NULL
	);

	-- override = 0 marks a series master or single entity; overrides set
	-- override = 1 and keep the RECURRENCE-ID they replace in recurrence_id.
	CREATE TABLE IF NOT EXISTS entity (
		uid TEXT NOT NULL,
		kind INTEGER NOT NULL,
		override INTEGER NOT NULL DEFAULT 0,
		recurrence_id INTEGER NOT NULL DEFAULT 0,
		calendar_id TEXT NOT NULL,
		start_at TEXT NOT NULL DEFAULT '',
		end_at TEXT NOT NULL DEFAULT '',
		recurring INTEGER NOT NULL DEFAULT 0,
		completed INTEGER NOT NULL DEFAULT 0,
		ics TEXT NOT NULL,
		PRIMARY KEY (uid, kind, override, recurrence_id),
		FOREIGN KEY (calendar_id) REFERENCES calendar(id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_entity_kind_calendar ON entity(kind, calendar_id);
	`
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}
