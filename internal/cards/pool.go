package cards

import (
	"fmt"
	"strings"
)

// Pool is the set of cards available for study, indexed by identity and type.
// Iteration order is insertion order, so queries are deterministic.
type Pool struct {
	cards  []Card
	byKey  map[Key]int
	byType map[WordType][]int
}

// NewPool builds a pool from cards. Duplicate identities are rejected with
// a combined error describing every problem found.
func NewPool(cs ...Card) (*Pool, error) {
	p := &Pool{
		byKey:  make(map[Key]int, len(cs)),
		byType: make(map[WordType][]int),
	}
	var errs []string
	for _, c := range cs {
		if err := p.add(c); err != nil {
			errs = append(errs, err.Error())
		}
	}
	if len(errs) > 0 {
		return nil, fmt.Errorf("card pool validation failed:\n  %s", strings.Join(errs, "\n  "))
	}
	return p, nil
}

func (p *Pool) add(c Card) error {
	if c.Type == "" {
		c.Type = TypeOther
	}
	k := c.Key()
	if k.Russian == "" || k.English == "" {
		return fmt.Errorf("card %q/%q has empty text", c.Russian, c.English)
	}
	if _, dup := p.byKey[k]; dup {
		return fmt.Errorf("duplicate card identity: %s", k)
	}
	p.byKey[k] = len(p.cards)
	p.byType[c.Type] = append(p.byType[c.Type], len(p.cards))
	p.cards = append(p.cards, c)
	return nil
}

// Len returns the number of cards in the pool.
func (p *Pool) Len() int {
	return len(p.cards)
}

// Lookup resolves an identity against the pool.
func (p *Pool) Lookup(k Key) (Card, bool) {
	i, ok := p.byKey[k]
	if !ok {
		return Card{}, false
	}
	return p.cards[i], true
}

// All returns every card in insertion order.
func (p *Pool) All() []Card {
	out := make([]Card, len(p.cards))
	copy(out, p.cards)
	return out
}

// ByType returns the cards of one word type. TypeAny returns every card.
func (p *Pool) ByType(t WordType) []Card {
	if t == TypeAny || t == "" {
		return p.All()
	}
	idx := p.byType[t]
	out := make([]Card, 0, len(idx))
	for _, i := range idx {
		out = append(out, p.cards[i])
	}
	return out
}

// Iter calls fn for each card matching the type filter, in insertion order,
// until fn returns false.
func (p *Pool) Iter(t WordType, fn func(Card) bool) {
	if t == TypeAny || t == "" {
		for _, c := range p.cards {
			if !fn(c) {
				return
			}
		}
		return
	}
	for _, i := range p.byType[t] {
		if !fn(p.cards[i]) {
			return
		}
	}
}

// Types returns the word types present in the pool, in display order.
func (p *Pool) Types() []WordType {
	var out []WordType
	for _, t := range AllWordTypes() {
		if len(p.byType[t]) > 0 {
			out = append(out, t)
		}
	}
	return out
}
