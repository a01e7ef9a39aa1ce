package spacedrep

import (
	"fmt"
	"math/rand/v2"
	"slices"

	"github.com/samber/lo"

	"github.com/abhisek/cardstudy/internal/cards"
	"github.com/abhisek/cardstudy/internal/study"
)

// RecordStore provides the study records the scheduler reads and the mark
// operation that updates and persists them.
type RecordStore interface {
	// Record returns the card's study record, creating it if needed.
	Record(card cards.Card) study.Record
	// MarkCard applies a pass/fail outcome and notifies listeners.
	MarkCard(card cards.Card, knewIt bool) (study.Record, error)
}

// cardState is the session-local bookkeeping for one card.
type cardState struct {
	repAtLastShown int
	shown          int
	active         bool
}

// Scheduler orders the presentation of a fixed working set of cards within
// one study session. It is not safe for concurrent use.
type Scheduler struct {
	cfg     Config
	records RecordStore
	rng     *rand.Rand

	rep         int
	newCards    []cards.Card
	activeCards []cards.Card
	states      map[cards.Key]*cardState

	pending    cards.Card
	hasPending bool
}

// New creates a scheduler for the given working set. Cards whose record is
// at level 0 start as new; the rest start as active with their staleness
// seeded from Config.InitialAge. Duplicate identities are ignored.
func New(working []cards.Card, records RecordStore, cfg Config) (*Scheduler, error) {
	cfg = cfg.withDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	s := &Scheduler{
		cfg:     cfg,
		records: records,
		rng:     cfg.Rand,
		states:  make(map[cards.Key]*cardState, len(working)),
	}

	seen := make(map[cards.Key]bool, len(working))
	for _, c := range working {
		k := c.Key()
		if seen[k] {
			continue
		}
		seen[k] = true

		rec := records.Record(c)
		if rec.IsNew() {
			s.newCards = append(s.newCards, c)
			continue
		}
		age := 0
		if cfg.InitialAge != nil {
			age = cfg.InitialAge(c, rec)
		}
		s.activeCards = append(s.activeCards, c)
		s.states[k] = &cardState{repAtLastShown: -age, active: true}
	}
	return s, nil
}

// Next returns the card to show. It returns false when no card can be
// served: the working set is empty, or every card reached MaxRepetitions.
//
// Selection tiers, first non-empty wins, uniform random choice within a tier:
//  1. a new card, if rep % NewCardInterval == 0
//  2. an active card whose age reached its level's interval
//  3. a new card
//  4. an active card whose age reached the interval of a level `offset`
//     lower, for offset = 1..levels-1
//  5. any active card
func (s *Scheduler) Next() (cards.Card, bool) {
	card, ok := s.pick()
	if !ok {
		return cards.Card{}, false
	}

	st := s.state(card.Key())
	st.shown++
	s.rep++
	s.pending = card
	s.hasPending = true
	return card, true
}

func (s *Scheduler) pick() (cards.Card, bool) {
	newPool := s.underCap(s.newCards)
	activePool := s.underCap(s.activeCards)
	if len(newPool) == 0 && len(activePool) == 0 {
		return cards.Card{}, false
	}

	if s.rep%s.cfg.NewCardInterval == 0 {
		if c, ok := s.choose(newPool); ok {
			return c, true
		}
	}
	if c, ok := s.choose(s.due(activePool, 0)); ok {
		return c, true
	}
	if c, ok := s.choose(newPool); ok {
		return c, true
	}
	for offset := 1; offset < s.cfg.ProficiencyLevels; offset++ {
		if c, ok := s.choose(s.due(activePool, offset)); ok {
			return c, true
		}
	}
	return s.choose(activePool)
}

// underCap drops cards that were already shown MaxRepetitions times.
func (s *Scheduler) underCap(pool []cards.Card) []cards.Card {
	if s.cfg.MaxRepetitions <= 0 {
		return pool
	}
	return lo.Filter(pool, func(c cards.Card, _ int) bool {
		st, ok := s.states[c.Key()]
		return !ok || st.shown < s.cfg.MaxRepetitions
	})
}

// due returns the active cards whose age reached the interval of their level
// lowered by offset (never below level 1).
func (s *Scheduler) due(pool []cards.Card, offset int) []cards.Card {
	return lo.Filter(pool, func(c cards.Card, _ int) bool {
		level := max(1, s.level(c)-offset)
		age, _ := s.Age(c)
		return age >= s.cfg.LevelIntervals[level]
	})
}

func (s *Scheduler) choose(pool []cards.Card) (cards.Card, bool) {
	if len(pool) == 0 {
		return cards.Card{}, false
	}
	return pool[s.rng.IntN(len(pool))], true
}

func (s *Scheduler) level(c cards.Card) int {
	l := s.records.Record(c).ProficiencyLevel
	return min(max(l, 1), s.cfg.ProficiencyLevels)
}

func (s *Scheduler) state(k cards.Key) *cardState {
	st, ok := s.states[k]
	if !ok {
		st = &cardState{}
		s.states[k] = st
	}
	return st
}

// Mark commits the outcome for the card most recently returned by Next.
// A new card becomes active; its spacing clock restarts at the current rep.
func (s *Scheduler) Mark(card cards.Card, knewIt bool) (study.Record, error) {
	k := card.Key()
	if !s.hasPending || s.pending.Key() != k {
		return study.Record{}, fmt.Errorf("%w: %s", ErrMarkOutOfTurn, k)
	}

	rec, err := s.records.MarkCard(s.pending, knewIt)
	if err != nil {
		return study.Record{}, fmt.Errorf("mark %s: %w", k, err)
	}
	s.hasPending = false

	if i := slices.IndexFunc(s.newCards, func(c cards.Card) bool { return c.Key() == k }); i >= 0 {
		s.activeCards = append(s.activeCards, s.newCards[i])
		s.newCards = slices.Delete(s.newCards, i, i+1)
	}
	st := s.state(k)
	st.active = true
	st.repAtLastShown = s.rep
	return rec, nil
}

// Age returns how many reps elapsed since the card was last marked (or its
// seeded pre-session age). It reports false for cards that are not active.
func (s *Scheduler) Age(card cards.Card) (int, bool) {
	k := card.Key()
	if !s.isActive(k) {
		return 0, false
	}
	return s.rep - s.states[k].repAtLastShown, true
}

// Ages returns the current age of every active card, for display.
func (s *Scheduler) Ages() map[cards.Key]int {
	out := make(map[cards.Key]int, len(s.activeCards))
	for _, c := range s.activeCards {
		k := c.Key()
		out[k] = s.rep - s.states[k].repAtLastShown
	}
	return out
}

func (s *Scheduler) isActive(k cards.Key) bool {
	st, ok := s.states[k]
	return ok && st.active
}

// Pending returns the card awaiting a mark, if any.
func (s *Scheduler) Pending() (cards.Card, bool) {
	return s.pending, s.hasPending
}

// Shown returns how many times the card was returned by Next this session.
func (s *Scheduler) Shown(card cards.Card) int {
	if st, ok := s.states[card.Key()]; ok {
		return st.shown
	}
	return 0
}

// Rep returns the number of cards served so far.
func (s *Scheduler) Rep() int { return s.rep }

// NewCount returns the number of cards not yet marked.
func (s *Scheduler) NewCount() int { return len(s.newCards) }

// ActiveCount returns the number of cards marked at least once.
func (s *Scheduler) ActiveCount() int { return len(s.activeCards) }

// ProficiencyLevels returns the configured level cap.
func (s *Scheduler) ProficiencyLevels() int { return s.cfg.ProficiencyLevels }
