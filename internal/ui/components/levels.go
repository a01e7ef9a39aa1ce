package components

import (
	"fmt"
	"strings"

	"github.com/abhisek/cardstudy/internal/ui/theme"
)

// LevelHistogram renders how many cards sit at each proficiency level,
// one bar per level scaled against the largest bucket.
type LevelHistogram struct {
	Counts []int
	Width  int
}

// NewLevelHistogram creates a histogram for counts indexed by level.
func NewLevelHistogram(counts []int, width int) LevelHistogram {
	return LevelHistogram{Counts: counts, Width: width}
}

// View renders the histogram, highest level first.
func (h LevelHistogram) View() string {
	peak := 0
	for _, c := range h.Counts {
		peak = max(peak, c)
	}
	levels := len(h.Counts) - 1
	countWidth := len(fmt.Sprint(peak))
	barWidth := max(h.Width-12-countWidth, 4)

	var sb strings.Builder
	for lvl := levels; lvl >= 0; lvl-- {
		c := h.Counts[lvl]
		n := 0
		if peak > 0 {
			n = c * barWidth / peak
		}
		if c > 0 && n == 0 {
			n = 1
		}
		label := theme.Hint.Render(fmt.Sprintf("level %-2d", lvl))
		bar := theme.Level(lvl, levels).Render(strings.Repeat("█", n))
		sb.WriteString(label + "  " + bar)
		sb.WriteString(strings.Repeat(" ", barWidth-n+1))
		sb.WriteString(theme.Body.Render(fmt.Sprintf("%*d", countWidth, c)))
		if lvl > 0 {
			sb.WriteByte('\n')
		}
	}
	return sb.String()
}
