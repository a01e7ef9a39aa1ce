package store

import (
	"context"
	"time"

	"github.com/abhisek/cardstudy/internal/metrics"
)

// QueryOpts configures event queries with filtering and pagination.
type QueryOpts struct {
	Limit     int       // max results (0 = unlimited)
	After     int64     // sequence > After
	Before    int64     // sequence < Before
	From      time.Time // timestamp >= From
	To        time.Time // timestamp <= To
	SessionID string    // exact session match
}

// RecordRow is the persisted form of one card's study record, keyed by the
// card identity.
type RecordRow struct {
	WordType      string
	Russian       string
	English       string
	Level         int
	LastEncounter *time.Time
	// History is the compact bit string, most recent first.
	History string
}

// RecordRepo persists study records.
type RecordRepo interface {
	// All returns every stored record ordered by identity.
	All(ctx context.Context) ([]RecordRow, error)

	// Upsert inserts or replaces rows in a single transaction.
	Upsert(ctx context.Context, rows []RecordRow) error

	// DeleteAll removes every stored record.
	DeleteAll(ctx context.Context) error
}

// MetricsRepo stores one metrics snapshot per calendar day.
type MetricsRepo interface {
	// Save stores m under m.Date, replacing an existing snapshot for that day.
	Save(ctx context.Context, m metrics.Metrics) error

	// Get returns the snapshot for a date key, or nil if none exists.
	Get(ctx context.Context, date string) (*metrics.Metrics, error)

	// List returns up to limit snapshots, newest first (0 = unlimited).
	List(ctx context.Context, limit int) ([]metrics.Metrics, error)
}

// ReviewEventData captures one mark made during a study session.
type ReviewEventData struct {
	SessionID   string
	WordType    string
	Russian     string
	English     string
	KnewIt      bool
	LevelBefore int
	LevelAfter  int
	Score       float64
	Rep         int
	Timestamp   time.Time
}

// ReviewEvent is a stored review with its global sequence number.
type ReviewEvent struct {
	Sequence int64
	ReviewEventData
}

// SessionSummary aggregates the review events of one session.
type SessionSummary struct {
	SessionID string
	Reviews   int
	Known     int
	Started   time.Time
	Ended     time.Time
}

// Accuracy returns the share of known reviews, or 0 for an empty session.
func (s SessionSummary) Accuracy() float64 {
	if s.Reviews == 0 {
		return 0
	}
	return float64(s.Known) / float64(s.Reviews)
}

// EventRepo provides append and query access to review events.
type EventRepo interface {
	// AppendReview records a review event.
	AppendReview(ctx context.Context, data ReviewEventData) error

	// QueryReviews returns review events in sequence order.
	QueryReviews(ctx context.Context, opts QueryOpts) ([]ReviewEvent, error)

	// SessionSummaries returns up to limit sessions, most recent first.
	SessionSummaries(ctx context.Context, limit int) ([]SessionSummary, error)
}
