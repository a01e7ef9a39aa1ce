package components

import (
	"strings"
	"testing"

	"charm.land/lipgloss/v2"
)

func TestProgressBar_Width(t *testing.T) {
	for _, pct := range []float64{-0.5, 0, 0.37, 1, 2} {
		bar := NewProgressBar("overall", pct, true, 40)
		if got := lipgloss.Width(bar.View()); got != 40 {
			t.Errorf("width at %v = %d, want 40", pct, got)
		}
	}
}

func TestProgressBar_LabelPadding(t *testing.T) {
	a := NewProgressBar("ab", 0.5, false, 30)
	a.LabelWidth = 6
	b := NewProgressBar("abcdef", 0.5, false, 30)
	b.LabelWidth = 6
	if lipgloss.Width(a.View()) != lipgloss.Width(b.View()) {
		t.Errorf("padded bars differ in width: %q vs %q", a.View(), b.View())
	}
}

func TestLevelHistogram(t *testing.T) {
	view := NewLevelHistogram([]int{3, 0, 1, 0, 6}, 40).View()
	lines := strings.Split(view, "\n")
	if len(lines) != 5 {
		t.Fatalf("lines = %d, want 5", len(lines))
	}
	if !strings.Contains(lines[0], "level 4") {
		t.Errorf("first line = %q, want highest level first", lines[0])
	}
	if strings.Count(lines[2], "█") == 0 {
		t.Errorf("level 2 bar empty for a non-zero bucket: %q", lines[2])
	}
	if strings.Count(lines[3], "█") != 0 {
		t.Errorf("level 1 bar drawn for an empty bucket: %q", lines[3])
	}
}
