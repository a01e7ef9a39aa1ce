package metrics

import (
	"fmt"
	"slices"
	"time"

	"github.com/samber/lo"

	"github.com/abhisek/cardstudy/internal/cards"
	"github.com/abhisek/cardstudy/internal/study"
)

// DateLayout is the format of snapshot date keys.
const DateLayout = "2006/01/02"

// DateKey returns the snapshot key for the calendar day of t, in t's location.
func DateKey(t time.Time) string {
	return t.Format(DateLayout)
}

// ParseDateKey parses a snapshot key produced by DateKey.
func ParseDateKey(key string) (time.Time, error) {
	t, err := time.Parse(DateLayout, key)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse date key %q: %w", key, err)
	}
	return t, nil
}

// Entry pairs a card with its study record.
type Entry struct {
	Card   cards.Card
	Record study.Record
}

// Summary rolls up the records of one card collection.
type Summary struct {
	// Counts[l] is the number of cards at proficiency level l.
	Counts []int `json:"counts"`
	// HistoryScore is the sum of history scores, not the average.
	HistoryScore float64 `json:"history_score"`
	Total        int     `json:"total"`
	// Proficiency is the weighted share of progress in [0, 1].
	Proficiency float64 `json:"proficiency"`
}

// ProficiencyPercent returns sum(Counts[l] * w[l]) / Total, or 0 for an
// empty summary. The result is a fraction in [0, 1].
func (s Summary) ProficiencyPercent(w Weights) float64 {
	if s.Total == 0 {
		return 0
	}
	sum := 0.0
	for l, n := range s.Counts {
		if l < len(w) {
			sum += float64(n) * w[l]
		}
	}
	return sum / float64(s.Total)
}

// AverageScore returns HistoryScore / Total, or 0 for an empty summary.
func (s Summary) AverageScore() float64 {
	if s.Total == 0 {
		return 0
	}
	return s.HistoryScore / float64(s.Total)
}

// Metrics is one aggregate report, overall and per word type.
type Metrics struct {
	Date    string                     `json:"date,omitempty"`
	Levels  int                        `json:"levels"`
	Overall Summary                    `json:"overall"`
	ByType  map[cards.WordType]Summary `json:"by_type"`
}

// Types returns the word types present in the report in display order.
func (m Metrics) Types() []cards.WordType {
	keys := lo.Keys(m.ByType)
	order := cards.AllWordTypes()
	slices.SortFunc(keys, func(a, b cards.WordType) int {
		return slices.Index(order, a) - slices.Index(order, b)
	})
	return keys
}

// Aggregator computes Metrics for a fixed level count and weight table.
type Aggregator struct {
	levels  int
	weights Weights
}

// NewAggregator validates the weights for levels 0..levels. A nil weights
// table takes DefaultWeights.
func NewAggregator(levels int, weights Weights) (*Aggregator, error) {
	if levels < 1 {
		return nil, fmt.Errorf("%w: proficiency levels %d must be at least 1", ErrInvalidWeights, levels)
	}
	if weights == nil {
		weights = DefaultWeights(levels)
	}
	if err := weights.Validate(levels); err != nil {
		return nil, err
	}
	return &Aggregator{levels: levels, weights: slices.Clone(weights)}, nil
}

// Levels returns the configured proficiency level count.
func (a *Aggregator) Levels() int { return a.levels }

// Weights returns a copy of the weight table.
func (a *Aggregator) Weights() Weights { return slices.Clone(a.weights) }

// Aggregate computes the histogram, summed history score and weighted
// proficiency overall and for each word type present in entries.
func (a *Aggregator) Aggregate(entries []Entry) Metrics {
	m := Metrics{
		Levels:  a.levels,
		Overall: a.newSummary(),
		ByType:  make(map[cards.WordType]Summary),
	}

	for _, e := range entries {
		level := min(max(e.Record.ProficiencyLevel, 0), a.levels)
		score := e.Record.Score()

		a.add(&m.Overall, level, score)

		t := e.Card.Type
		s, ok := m.ByType[t]
		if !ok {
			s = a.newSummary()
		}
		a.add(&s, level, score)
		m.ByType[t] = s
	}

	m.Overall.Proficiency = m.Overall.ProficiencyPercent(a.weights)
	for t, s := range m.ByType {
		s.Proficiency = s.ProficiencyPercent(a.weights)
		m.ByType[t] = s
	}
	return m
}

// Snapshot aggregates entries and stamps the result with the day of at.
func (a *Aggregator) Snapshot(entries []Entry, at time.Time) Metrics {
	m := a.Aggregate(entries)
	m.Date = DateKey(at)
	return m
}

func (a *Aggregator) newSummary() Summary {
	return Summary{Counts: make([]int, a.levels+1)}
}

func (a *Aggregator) add(s *Summary, level int, score float64) {
	s.Counts[level]++
	s.HistoryScore += score
	s.Total++
}
