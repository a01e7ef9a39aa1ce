package store

import (
	"context"
	"fmt"

	entsql "entgo.io/ent/dialect/sql"
)

const (
	tableRecords = "study_records"
	tableMetrics = "metrics_snapshots"
	tableReviews = "review_events"
)

// Column names shared by the repositories.
const (
	colWordType      = "word_type"
	colRussian       = "russian"
	colEnglish       = "english"
	colLevel         = "level"
	colLastEncounter = "last_encounter"
	colHistory       = "history"
	colUpdatedAt     = "updated_at"

	colDate      = "date"
	colData      = "data"
	colCreatedAt = "created_at"

	colSequence    = "sequence"
	colSessionID   = "session_id"
	colKnewIt      = "knew_it"
	colLevelBefore = "level_before"
	colLevelAfter  = "level_after"
	colScore       = "score"
	colRep         = "rep"
	colTimestamp   = "timestamp"
)

// Timestamps are stored as Unix nanoseconds so records round-trip exactly.
var ddl = []string{
	`CREATE TABLE IF NOT EXISTS study_records (
		word_type TEXT NOT NULL,
		russian TEXT NOT NULL,
		english TEXT NOT NULL,
		level INTEGER NOT NULL DEFAULT 0,
		last_encounter INTEGER,
		history TEXT NOT NULL DEFAULT '',
		updated_at INTEGER NOT NULL,
		PRIMARY KEY (word_type, russian, english)
	)`,
	`CREATE TABLE IF NOT EXISTS metrics_snapshots (
		date TEXT PRIMARY KEY,
		data TEXT NOT NULL,
		created_at INTEGER NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS review_events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		sequence INTEGER NOT NULL UNIQUE,
		session_id TEXT NOT NULL,
		word_type TEXT NOT NULL,
		russian TEXT NOT NULL,
		english TEXT NOT NULL,
		knew_it INTEGER NOT NULL,
		level_before INTEGER NOT NULL,
		level_after INTEGER NOT NULL,
		score REAL NOT NULL,
		rep INTEGER NOT NULL,
		timestamp INTEGER NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS review_events_session ON review_events (session_id)`,
	`CREATE INDEX IF NOT EXISTS review_events_timestamp ON review_events (timestamp)`,
}

// migrate creates missing tables. Statements are idempotent.
func migrate(ctx context.Context, drv *entsql.Driver) error {
	for _, stmt := range ddl {
		if err := drv.Exec(ctx, stmt, []any{}, nil); err != nil {
			return fmt.Errorf("exec ddl: %w", err)
		}
	}
	return nil
}
