package spacedrep

import (
	"sort"

	"github.com/abhisek/cardstudy/internal/cards"
	"github.com/abhisek/cardstudy/internal/study"
)

// RecordSource resolves the study record for a card.
type RecordSource interface {
	Record(card cards.Card) study.Record
}

// RecencyAge builds an InitialAge policy from the last encounter times of the
// working set. Active cards are ranked from most to least recently seen and
// each gets a share of its level's interval proportional to its rank, so the
// least recently seen card starts due and the others follow in order.
// Active cards without a timestamp are treated as the oldest. Levels missing
// from intervals use the default spacing.
func RecencyAge(working []cards.Card, records RecordSource, intervals map[int]int) func(cards.Card, study.Record) int {
	type seen struct {
		key cards.Key
		rec study.Record
	}
	var active []seen
	dup := make(map[cards.Key]bool, len(working))
	for _, c := range working {
		k := c.Key()
		rec := records.Record(c)
		if rec.IsNew() || dup[k] {
			continue
		}
		dup[k] = true
		active = append(active, seen{key: k, rec: rec})
	}

	sort.SliceStable(active, func(i, j int) bool {
		a, b := active[i].rec.LastEncounter, active[j].rec.LastEncounter
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		default:
			return a.After(*b)
		}
	})

	n := len(active)
	ages := make(map[cards.Key]int, n)
	for rank, s := range active {
		iv := levelInterval(intervals, s.rec.ProficiencyLevel)
		// Rounded up so the last rank gets the full interval.
		ages[s.key] = (iv*(rank+1) + n - 1) / n
	}
	return func(c cards.Card, _ study.Record) int {
		return ages[c.Key()]
	}
}

func levelInterval(intervals map[int]int, level int) int {
	if iv, ok := intervals[level]; ok {
		return iv
	}
	return intervalStep * level
}
