package session

import (
	"time"

	"github.com/sirupsen/logrus"

	"github.com/abhisek/cardstudy/internal/cards"
	"github.com/abhisek/cardstudy/internal/query"
	"github.com/abhisek/cardstudy/internal/spacedrep"
	"github.com/abhisek/cardstudy/internal/store"
	"github.com/abhisek/cardstudy/internal/study"
)

// Phase represents the current phase of the session.
type Phase int

const (
	PhaseActive   Phase = iota // Serving cards
	PhaseFeedback              // Card answered, waiting for the next one
	PhaseEnded                 // Working set exhausted, limit reached or time expired
)

// EndReason explains why a session stopped serving cards.
type EndReason string

const (
	EndExhausted EndReason = "exhausted"
	EndLimit     EndReason = "limit"
	EndTimeout   EndReason = "timeout"
	EndQuit      EndReason = "quit"
)

// Options configures a study session.
type Options struct {
	// Query selects the working set from the pool.
	Query query.Query
	// Scheduler configures card ordering. A nil InitialAge ranks active
	// cards by when they were last seen.
	Scheduler spacedrep.Config
	// MaxReviews ends the session after this many answers. 0 = unlimited.
	MaxReviews int
	// Duration ends the session once elapsed. 0 = unlimited.
	Duration time.Duration
	// Events receives one review event per answer. Optional.
	Events store.EventRepo
	Logger logrus.FieldLogger
	Clock  func() time.Time
}

// Prompt is a card ready to show, with enough context to render it.
type Prompt struct {
	Card   cards.Card
	Record study.Record
	// Age is the number of reps since the card was last answered; -1 for new cards.
	Age int
	// ScoreIfKnown and ScoreIfUnknown preview the history score after answering.
	ScoreIfKnown   float64
	ScoreIfUnknown float64
}

// IsNew reports whether the card has never been answered.
func (p Prompt) IsNew() bool { return p.Record.IsNew() }

// Result describes the effect of one answer.
type Result struct {
	Card       cards.Card
	Before     study.Record
	After      study.Record
	Transition study.Transition
	// Streak is the run of consecutive known answers ending with this one.
	Streak int
}

// Milestone reports whether this answer completed a streak milestone.
func (r Result) Milestone() bool { return IsStreakMilestone(r.Streak) }

// TypeResult holds per word type counters for the summary.
type TypeResult struct {
	Type     cards.WordType
	Reviewed int
	Known    int
}
