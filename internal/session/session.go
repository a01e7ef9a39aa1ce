package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/abhisek/cardstudy/internal/cards"
	"github.com/abhisek/cardstudy/internal/query"
	"github.com/abhisek/cardstudy/internal/spacedrep"
	"github.com/abhisek/cardstudy/internal/store"
	"github.com/abhisek/cardstudy/internal/study"
	"github.com/abhisek/cardstudy/internal/studydb"
)

// ErrNoPrompt is returned by Answer when no card is awaiting an answer.
var ErrNoPrompt = errors.New("session: no card awaiting an answer")

// Session runs one study session over a working set. It is not safe for
// concurrent use.
type Session struct {
	ID string

	db     *studydb.DB
	sched  *spacedrep.Scheduler
	events store.EventRepo
	log    logrus.FieldLogger
	clock  func() time.Time

	working    []cards.Card
	maxReviews int
	duration   time.Duration

	start     time.Time
	phase     Phase
	endReason EndReason
	current   *Prompt

	reviewed   int
	known      int
	introduced int
	levelUps   int
	levelDowns int
	streak     int
	bestStreak int
	byType     map[cards.WordType]*TypeResult
	typeOrder  []cards.WordType
}

// Start selects the working set from pool and prepares the scheduler.
func Start(pool *cards.Pool, db *studydb.DB, opts Options) (*Session, error) {
	if opts.Logger == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		opts.Logger = l
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}

	working := query.Select(opts.Query, pool, db)

	cfg := opts.Scheduler
	if cfg.ProficiencyLevels == 0 {
		cfg.ProficiencyLevels = db.ProficiencyLevels()
	}
	if cfg.InitialAge == nil {
		cfg.InitialAge = spacedrep.RecencyAge(working, db, cfg.LevelIntervals)
	}
	sched, err := spacedrep.New(working, db, cfg)
	if err != nil {
		return nil, fmt.Errorf("create scheduler: %w", err)
	}

	id := uuid.New().String()
	s := &Session{
		ID:         id,
		db:         db,
		sched:      sched,
		events:     opts.Events,
		log:        opts.Logger.WithField("session", id),
		clock:      opts.Clock,
		working:    working,
		maxReviews: opts.MaxReviews,
		duration:   opts.Duration,
		start:      opts.Clock(),
		byType:     make(map[cards.WordType]*TypeResult),
	}
	s.log.WithFields(logrus.Fields{
		"cards":  len(working),
		"new":    sched.NewCount(),
		"active": sched.ActiveCount(),
	}).Info("session started")
	return s, nil
}

// WorkingSet returns the cards selected for this session.
func (s *Session) WorkingSet() []cards.Card { return s.working }

// Scheduler exposes the underlying scheduler for progress displays.
func (s *Session) Scheduler() *spacedrep.Scheduler { return s.sched }

// Phase returns the current session phase.
func (s *Session) Phase() Phase { return s.phase }

// EndReason returns why the session ended, or "" while it is running.
func (s *Session) EndReason() EndReason { return s.endReason }

// Elapsed returns the time since the session started.
func (s *Session) Elapsed() time.Duration { return s.clock().Sub(s.start) }

// Next returns the next card to show. It returns false once the session ended.
// Calling Next again before answering returns the same prompt.
func (s *Session) Next() (Prompt, bool) {
	if s.phase == PhaseEnded {
		return Prompt{}, false
	}
	if s.current != nil {
		return *s.current, true
	}
	if s.maxReviews > 0 && s.reviewed >= s.maxReviews {
		s.end(EndLimit)
		return Prompt{}, false
	}
	if s.duration > 0 && s.Elapsed() >= s.duration {
		s.end(EndTimeout)
		return Prompt{}, false
	}

	card, ok := s.sched.Next()
	if !ok {
		s.end(EndExhausted)
		return Prompt{}, false
	}

	rec := s.db.Record(card)
	age, active := s.sched.Age(card)
	if !active {
		age = -1
	}
	maxHistory := s.db.MaxHistorySize()
	p := Prompt{
		Card:           card,
		Record:         rec,
		Age:            age,
		ScoreIfKnown:   study.NextHistoryScore(rec.History, true, maxHistory),
		ScoreIfUnknown: study.NextHistoryScore(rec.History, false, maxHistory),
	}
	s.current = &p
	s.phase = PhaseActive
	return p, true
}

// Answer commits the outcome for the current prompt and records a review
// event. Event logging failures are logged, not returned.
func (s *Session) Answer(ctx context.Context, knewIt bool) (Result, error) {
	if s.current == nil {
		return Result{}, ErrNoPrompt
	}
	card := s.current.Card
	before := s.current.Record

	after, err := s.sched.Mark(card, knewIt)
	if err != nil {
		return Result{}, err
	}
	s.current = nil
	s.phase = PhaseFeedback

	tr := study.Transition{From: before.ProficiencyLevel, To: after.ProficiencyLevel, KnewIt: knewIt}
	s.tally(card, tr)

	if s.events != nil {
		err := s.events.AppendReview(ctx, store.ReviewEventData{
			SessionID:   s.ID,
			WordType:    string(card.Type),
			Russian:     card.Key().Russian,
			English:     card.Key().English,
			KnewIt:      knewIt,
			LevelBefore: before.ProficiencyLevel,
			LevelAfter:  after.ProficiencyLevel,
			Score:       after.Score(),
			Rep:         s.sched.Rep(),
			Timestamp:   s.clock(),
		})
		if err != nil {
			s.log.WithError(err).Warn("failed to record review event")
		}
	}

	return Result{Card: card, Before: before, After: after, Transition: tr, Streak: s.streak}, nil
}

// Quit ends the session early. An unanswered prompt is discarded.
func (s *Session) Quit() {
	s.current = nil
	s.end(EndQuit)
}

func (s *Session) end(reason EndReason) {
	if s.phase == PhaseEnded {
		return
	}
	s.phase = PhaseEnded
	s.endReason = reason
	s.log.WithFields(logrus.Fields{
		"reason":   reason,
		"reviewed": s.reviewed,
		"known":    s.known,
	}).Info("session ended")
}

func (s *Session) tally(card cards.Card, tr study.Transition) {
	s.reviewed++
	if tr.KnewIt {
		s.known++
		s.streak++
		s.bestStreak = max(s.bestStreak, s.streak)
	} else {
		s.streak = 0
	}
	switch {
	case tr.Introduced():
		s.introduced++
	case tr.LevelledUp():
		s.levelUps++
	case tr.LevelledDown():
		s.levelDowns++
	}

	tres, ok := s.byType[card.Type]
	if !ok {
		tres = &TypeResult{Type: card.Type}
		s.byType[card.Type] = tres
		s.typeOrder = append(s.typeOrder, card.Type)
	}
	tres.Reviewed++
	if tr.KnewIt {
		tres.Known++
	}
}
