package spacedrep

import (
	"fmt"
	"math/rand/v2"

	"github.com/abhisek/cardstudy/internal/cards"
	"github.com/abhisek/cardstudy/internal/study"
)

// DefaultNewCardInterval serves a new card on every 4th call to Next.
const DefaultNewCardInterval = 4

// intervalStep is the default number of reps added per proficiency level.
const intervalStep = 4

// DefaultLevelIntervals returns the default minimum reps before a card of
// each level is eligible again: 4, 8, 12, ... for levels 1..levels.
func DefaultLevelIntervals(levels int) map[int]int {
	m := make(map[int]int, levels)
	for l := 1; l <= levels; l++ {
		m[l] = intervalStep * l
	}
	return m
}

// Config configures a Scheduler. Zero values take defaults.
type Config struct {
	// ProficiencyLevels is the highest level a card can reach. Zero means 4.
	ProficiencyLevels int
	// NewCardInterval serves a new card when rep % NewCardInterval == 0.
	// Zero means 4.
	NewCardInterval int
	// LevelIntervals maps a level to the reps that must elapse before a card
	// at that level is eligible again. Nil means DefaultLevelIntervals.
	// Every level in 1..ProficiencyLevels must be present.
	LevelIntervals map[int]int
	// MaxRepetitions excludes a card from Next once it was shown this many
	// times in the session. Zero means unlimited.
	MaxRepetitions int
	// InitialAge seeds the staleness of cards that are already active.
	// Nil means every active card starts with age 0.
	InitialAge func(card cards.Card, rec study.Record) int
	// Rand is the source for uniform choice among eligible cards.
	// Nil means a randomly seeded PCG source.
	Rand *rand.Rand
}

func (c Config) withDefaults() Config {
	if c.ProficiencyLevels == 0 {
		c.ProficiencyLevels = study.DefaultProficiencyLevels
	}
	if c.NewCardInterval == 0 {
		c.NewCardInterval = DefaultNewCardInterval
	}
	if c.LevelIntervals == nil && c.ProficiencyLevels > 0 {
		c.LevelIntervals = DefaultLevelIntervals(c.ProficiencyLevels)
	}
	if c.Rand == nil {
		c.Rand = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return c
}

func (c Config) validate() error {
	if c.ProficiencyLevels < 1 {
		return fmt.Errorf("%w: proficiency levels %d must be at least 1", ErrInvalidConfig, c.ProficiencyLevels)
	}
	if c.NewCardInterval < 1 {
		return fmt.Errorf("%w: new card interval %d must be at least 1", ErrInvalidConfig, c.NewCardInterval)
	}
	if c.MaxRepetitions < 0 {
		return fmt.Errorf("%w: max repetitions %d must not be negative", ErrInvalidConfig, c.MaxRepetitions)
	}
	for l := 1; l <= c.ProficiencyLevels; l++ {
		iv, ok := c.LevelIntervals[l]
		if !ok {
			return fmt.Errorf("%w: no interval for proficiency level %d", ErrInvalidConfig, l)
		}
		if iv < 0 {
			return fmt.Errorf("%w: interval %d for level %d must not be negative", ErrInvalidConfig, iv, l)
		}
	}
	return nil
}
