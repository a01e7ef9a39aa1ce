package study

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidHistory is returned when a compact history string contains
// characters other than '0' and '1'.
var ErrInvalidHistory = errors.New("study: invalid history string")

// EncodeHistory renders a history as a compact bit string, most recent first:
// '1' for a pass and '0' for a failure.
func EncodeHistory(history []bool) string {
	var b strings.Builder
	b.Grow(len(history))
	for _, passed := range history {
		if passed {
			b.WriteByte('1')
		} else {
			b.WriteByte('0')
		}
	}
	return b.String()
}

// ParseHistory decodes a bit string produced by EncodeHistory.
func ParseHistory(s string) ([]bool, error) {
	if s == "" {
		return nil, nil
	}
	out := make([]bool, len(s))
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '1':
			out[i] = true
		case '0':
		default:
			return nil, fmt.Errorf("%w: %q at offset %d", ErrInvalidHistory, s[i], i)
		}
	}
	return out, nil
}
