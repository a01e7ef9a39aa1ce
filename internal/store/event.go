package store

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	"github.com/samber/lo"
)

// sequenceCounter manages the global monotonic sequence number assigned to
// every appended event. Auto-increment IDs are per table and may be reused
// after deletes, so events carry their own sequence to keep a stable order
// across exports and resets.
//
// Uses raw SQL because the increment must be atomic at the database level.
// The mutex serializes within the process; the RETURNING clause makes the
// increment atomic in SQLite.
type sequenceCounter struct {
	mu sync.Mutex
	db *sql.DB
}

// newSequenceCounter creates a counter and ensures the tracking table exists.
func newSequenceCounter(db *sql.DB) (*sequenceCounter, error) {
	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS global_sequence (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		next_val INTEGER NOT NULL DEFAULT 1
	)`)
	if err != nil {
		return nil, fmt.Errorf("create sequence table: %w", err)
	}

	_, err = db.Exec(`INSERT OR IGNORE INTO global_sequence (id, next_val) VALUES (1, 1)`)
	if err != nil {
		return nil, fmt.Errorf("seed sequence: %w", err)
	}

	return &sequenceCounter{db: db}, nil
}

// Next atomically returns the next sequence number and increments the counter.
func (sc *sequenceCounter) Next(ctx context.Context) (int64, error) {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	var seq int64
	err := sc.db.QueryRowContext(ctx,
		`UPDATE global_sequence SET next_val = next_val + 1 WHERE id = 1 RETURNING next_val - 1`,
	).Scan(&seq)
	if err != nil {
		return 0, fmt.Errorf("next sequence: %w", err)
	}
	return seq, nil
}

// eventRepo implements EventRepo.
type eventRepo struct {
	drv *entsql.Driver
	seq *sequenceCounter
}

func (r *eventRepo) AppendReview(ctx context.Context, data ReviewEventData) error {
	seqNum, err := r.seq.Next(ctx)
	if err != nil {
		return fmt.Errorf("next sequence: %w", err)
	}

	ts := data.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}

	query, args := entsql.Dialect(dialect.SQLite).
		Insert(tableReviews).
		Columns(colSequence, colSessionID, colWordType, colRussian, colEnglish,
			colKnewIt, colLevelBefore, colLevelAfter, colScore, colRep, colTimestamp).
		Values(seqNum, data.SessionID, data.WordType, data.Russian, data.English,
			lo.Ternary(data.KnewIt, 1, 0), data.LevelBefore, data.LevelAfter, data.Score, data.Rep, ts.UnixNano()).
		Query()
	if err := r.drv.Exec(ctx, query, args, nil); err != nil {
		return fmt.Errorf("save review event: %w", err)
	}
	return nil
}

func (r *eventRepo) QueryReviews(ctx context.Context, opts QueryOpts) ([]ReviewEvent, error) {
	sel := entsql.Dialect(dialect.SQLite).
		Select(colSequence, colSessionID, colWordType, colRussian, colEnglish,
			colKnewIt, colLevelBefore, colLevelAfter, colScore, colRep, colTimestamp).
		From(entsql.Table(tableReviews)).
		OrderBy(colSequence)

	if opts.After > 0 {
		sel.Where(entsql.GT(colSequence, opts.After))
	}
	if opts.Before > 0 {
		sel.Where(entsql.LT(colSequence, opts.Before))
	}
	if !opts.From.IsZero() {
		sel.Where(entsql.GTE(colTimestamp, opts.From.UnixNano()))
	}
	if !opts.To.IsZero() {
		sel.Where(entsql.LTE(colTimestamp, opts.To.UnixNano()))
	}
	if opts.SessionID != "" {
		sel.Where(entsql.EQ(colSessionID, opts.SessionID))
	}
	if opts.Limit > 0 {
		sel.Limit(opts.Limit)
	}

	query, args := sel.Query()
	var rows entsql.Rows
	if err := r.drv.Query(ctx, query, args, &rows); err != nil {
		return nil, fmt.Errorf("query review events: %w", err)
	}
	defer rows.Close()

	var out []ReviewEvent
	for rows.Next() {
		var (
			e      ReviewEvent
			knewIt int64
			ts     int64
		)
		err := rows.Scan(&e.Sequence, &e.SessionID, &e.WordType, &e.Russian, &e.English,
			&knewIt, &e.LevelBefore, &e.LevelAfter, &e.Score, &e.Rep, &ts)
		if err != nil {
			return nil, fmt.Errorf("scan review event: %w", err)
		}
		e.KnewIt = knewIt != 0
		e.Timestamp = time.Unix(0, ts).UTC()
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate review events: %w", err)
	}
	return out, nil
}

func (r *eventRepo) SessionSummaries(ctx context.Context, limit int) ([]SessionSummary, error) {
	sel := entsql.Dialect(dialect.SQLite).
		Select(
			colSessionID,
			entsql.As(entsql.Count("*"), "reviews"),
			entsql.As(entsql.Sum(colKnewIt), "known"),
			entsql.As(entsql.Min(colTimestamp), "started"),
			entsql.As(entsql.Max(colTimestamp), "ended"),
		).
		From(entsql.Table(tableReviews)).
		GroupBy(colSessionID).
		OrderBy(entsql.Desc("ended"))
	if limit > 0 {
		sel.Limit(limit)
	}

	query, args := sel.Query()
	var rows entsql.Rows
	if err := r.drv.Query(ctx, query, args, &rows); err != nil {
		return nil, fmt.Errorf("query session summaries: %w", err)
	}
	defer rows.Close()

	var out []SessionSummary
	for rows.Next() {
		var (
			s              SessionSummary
			started, ended int64
		)
		if err := rows.Scan(&s.SessionID, &s.Reviews, &s.Known, &started, &ended); err != nil {
			return nil, fmt.Errorf("scan session summary: %w", err)
		}
		s.Started = time.Unix(0, started).UTC()
		s.Ended = time.Unix(0, ended).UTC()
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate session summaries: %w", err)
	}
	return out, nil
}
