package session

import "testing"

func TestNextStreakMilestone(t *testing.T) {
	tests := []struct {
		current int
		want    int
	}{
		{0, 5},
		{1, 5},
		{4, 5},
		{5, 10},
		{9, 10},
		{10, 15},
		{24, 25},
		{25, 30},
	}

	for _, tt := range tests {
		got := NextStreakMilestone(tt.current)
		if got != tt.want {
			t.Errorf("NextStreakMilestone(%d) = %d, want %d", tt.current, got, tt.want)
		}
	}
}

func TestIsStreakMilestone(t *testing.T) {
	for streak, want := range map[int]bool{0: false, 3: false, 5: true, 10: true, 11: false} {
		if got := IsStreakMilestone(streak); got != want {
			t.Errorf("IsStreakMilestone(%d) = %v, want %v", streak, got, want)
		}
	}
}
