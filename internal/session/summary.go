package session

import (
	"time"

	"github.com/samber/lo"

	"github.com/abhisek/cardstudy/internal/cards"
)

// Summary holds the data displayed when a session ends.
type Summary struct {
	SessionID  string
	Duration   time.Duration
	EndReason  EndReason
	Reviewed   int
	Known      int
	Unknown    int
	Introduced int
	LevelUps   int
	LevelDowns int
	BestStreak int
	Accuracy   float64
	ByType     []TypeResult
}

// BuildSummary creates a Summary from the current session state.
func BuildSummary(s *Session) *Summary {
	var accuracy float64
	if s.reviewed > 0 {
		accuracy = float64(s.known) / float64(s.reviewed)
	}

	return &Summary{
		SessionID:  s.ID,
		Duration:   s.Elapsed(),
		EndReason:  s.endReason,
		Reviewed:   s.reviewed,
		Known:      s.known,
		Unknown:    s.reviewed - s.known,
		Introduced: s.introduced,
		LevelUps:   s.levelUps,
		LevelDowns: s.levelDowns,
		BestStreak: s.bestStreak,
		Accuracy:   accuracy,
		ByType: lo.Map(s.typeOrder, func(t cards.WordType, _ int) TypeResult {
			return *s.byType[t]
		}),
	}
}
