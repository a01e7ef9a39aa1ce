package study

import (
	"errors"
	"fmt"
	"time"
)

const (
	// DefaultProficiencyLevels is the highest proficiency level a card can reach.
	DefaultProficiencyLevels = 4

	// DefaultMaxHistorySize caps the number of outcomes kept per card.
	DefaultMaxHistorySize = 100
)

// Record holds the mutable study state for a single card.
type Record struct {
	// ProficiencyLevel is in [0, levels]; 0 means the card has never been marked.
	ProficiencyLevel int
	// History holds pass/fail outcomes, most recent first. true = passed.
	History []bool
	// LastEncounter is nil until the card is marked for the first time.
	LastEncounter *time.Time
}

// ErrInconsistentRecord is returned by Validate for records that could not
// have been produced by Mark.
var ErrInconsistentRecord = errors.New("study: inconsistent record")

// Validate checks that the level is within [0, levels] and that a record
// has a last encounter exactly when it has been marked.
func (r Record) Validate(levels int) error {
	switch {
	case r.ProficiencyLevel < 0 || r.ProficiencyLevel > levels:
		return fmt.Errorf("%w: proficiency level %d outside [0, %d]", ErrInconsistentRecord, r.ProficiencyLevel, levels)
	case r.ProficiencyLevel == 0 && len(r.History) > 0:
		return fmt.Errorf("%w: new card with %d recorded outcomes", ErrInconsistentRecord, len(r.History))
	case r.ProficiencyLevel == 0 && r.LastEncounter != nil:
		return fmt.Errorf("%w: new card with a last encounter", ErrInconsistentRecord)
	case r.ProficiencyLevel > 0 && r.LastEncounter == nil:
		return fmt.Errorf("%w: level %d card without a last encounter", ErrInconsistentRecord, r.ProficiencyLevel)
	}
	return nil
}

// State describes the externally visible lifecycle state of a card.
type State string

const (
	StateNew    State = "new"
	StateActive State = "active"
)

// State returns New for level 0 and Active otherwise.
func (r Record) State() State {
	if r.ProficiencyLevel == 0 {
		return StateNew
	}
	return StateActive
}

// IsNew reports whether the card has never been marked.
func (r Record) IsNew() bool {
	return r.ProficiencyLevel == 0
}

// Score returns the recall confidence computed from the history.
func (r Record) Score() float64 {
	return HistoryScore(r.History)
}

// Clone returns a deep copy that shares no memory with r.
func (r Record) Clone() Record {
	out := Record{ProficiencyLevel: r.ProficiencyLevel}
	if r.History != nil {
		out.History = make([]bool, len(r.History))
		copy(out.History, r.History)
	}
	if r.LastEncounter != nil {
		t := *r.LastEncounter
		out.LastEncounter = &t
	}
	return out
}

// Transition records a proficiency change caused by a single mark.
type Transition struct {
	From   int
	To     int
	KnewIt bool
}

// LevelledUp reports whether the mark raised the card's level.
func (t Transition) LevelledUp() bool { return t.To > t.From }

// LevelledDown reports whether the mark lowered the card's level.
func (t Transition) LevelledDown() bool { return t.To < t.From }

// Introduced reports whether the mark took the card out of the New state.
func (t Transition) Introduced() bool { return t.From == 0 }

// Mark applies one pass/fail outcome.
//
// New cards move to level 2 on success and level 1 on failure. Active cards
// move up one level on success (capped at levels) and down one level on
// failure (floored at 1), so a marked card never returns to New.
func (r *Record) Mark(knewIt bool, levels, maxHistory int, now time.Time) Transition {
	if levels <= 0 {
		levels = DefaultProficiencyLevels
	}
	from := r.ProficiencyLevel

	switch {
	case from <= 0 && knewIt:
		r.ProficiencyLevel = min(2, levels)
	case from <= 0:
		r.ProficiencyLevel = 1
	case knewIt:
		r.ProficiencyLevel = min(from+1, levels)
	default:
		r.ProficiencyLevel = max(1, from-1)
	}

	r.History = PushHistory(r.History, knewIt, maxHistory)
	t := now
	r.LastEncounter = &t

	return Transition{From: from, To: r.ProficiencyLevel, KnewIt: knewIt}
}

// PushHistory prepends an outcome and truncates to maxSize entries.
// The input slice is not modified.
func PushHistory(history []bool, outcome bool, maxSize int) []bool {
	if maxSize <= 0 {
		maxSize = DefaultMaxHistorySize
	}
	n := min(len(history)+1, maxSize)
	out := make([]bool, n)
	out[0] = outcome
	copy(out[1:], history)
	return out
}
