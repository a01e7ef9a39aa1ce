package session

// streakStep is the spacing of streak milestones.
const streakStep = 5

// NextStreakMilestone returns the next milestone above the current run of
// consecutive known answers.
func NextStreakMilestone(current int) int {
	return (current/streakStep + 1) * streakStep
}

// IsStreakMilestone reports whether a streak of this length is worth
// celebrating.
func IsStreakMilestone(streak int) bool {
	return streak > 0 && streak%streakStep == 0
}
