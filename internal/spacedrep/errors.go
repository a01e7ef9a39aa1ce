package spacedrep

import "errors"

// Sentinel errors. Use errors.Is to check.
var (
	// ErrInvalidConfig is returned by New when the configuration cannot
	// produce a correct spacing schedule.
	ErrInvalidConfig = errors.New("spacedrep: invalid scheduler config")

	// ErrMarkOutOfTurn is returned by Mark when the card is not the one most
	// recently returned by Next, or has already been marked.
	ErrMarkOutOfTurn = errors.New("spacedrep: card is not awaiting a mark")
)
