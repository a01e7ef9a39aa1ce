package query

import (
	"github.com/abhisek/cardstudy/internal/cards"
	"github.com/abhisek/cardstudy/internal/study"
)

// Query selects a candidate subset of cards. Every configured filter must
// pass; a nil (or empty) filter always passes.
type Query struct {
	// MaxCount caps the result size of Select. 0 means unlimited.
	// It is applied by Select, not by Matches.
	MaxCount int
	// MaxScore is an inclusive upper bound on the history score.
	MaxScore *float64
	// MaxProficiency is an inclusive upper bound on the proficiency level.
	MaxProficiency *int
	// CardType restricts results to one word type. "" or TypeAny match all.
	CardType cards.WordType
	// Where is an optional CEL expression evaluated per card.
	Where *Filter
}

// Matches reports whether a card and its study record pass every filter.
func (q Query) Matches(card cards.Card, rec study.Record) bool {
	if q.CardType != "" && q.CardType != cards.TypeAny && card.Type != q.CardType {
		return false
	}
	if q.MaxProficiency != nil && rec.ProficiencyLevel > *q.MaxProficiency {
		return false
	}
	if q.MaxScore != nil && rec.Score() > *q.MaxScore {
		return false
	}
	if q.Where != nil && !q.Where.Matches(card, rec) {
		return false
	}
	return true
}

// RecordSource resolves the study record for a card.
type RecordSource interface {
	Record(card cards.Card) study.Record
}

// Select returns the pool's matching cards in pool order, stopping at MaxCount.
func Select(q Query, pool *cards.Pool, records RecordSource) []cards.Card {
	var out []cards.Card
	pool.Iter(q.CardType, func(c cards.Card) bool {
		if q.Matches(c, records.Record(c)) {
			out = append(out, c)
		}
		return q.MaxCount <= 0 || len(out) < q.MaxCount
	})
	return out
}
