package cmd

import (
	"fmt"
	"strings"
	"time"

	"charm.land/lipgloss/v2"
	"github.com/samber/lo"

	"github.com/abhisek/cardstudy/internal/session"
	"github.com/abhisek/cardstudy/internal/study"
	"github.com/abhisek/cardstudy/internal/ui/components"
	"github.com/abhisek/cardstudy/internal/ui/theme"
)

func renderPrompt(p session.Prompt, n, levels int) string {
	var status string
	if p.IsNew() {
		status = theme.NewBadge.Render("new")
	} else {
		status = theme.Level(p.Record.ProficiencyLevel, levels).
			Render(fmt.Sprintf("level %d/%d", p.Record.ProficiencyLevel, levels))
		status += theme.Hint.Render(fmt.Sprintf("  score %.2f", p.Record.Score()))
		if p.Age >= 0 {
			status += theme.Hint.Render(fmt.Sprintf("  seen %d ago", p.Age))
		}
	}

	body := lipgloss.JoinVertical(lipgloss.Left,
		theme.Subtitle.Render(fmt.Sprintf("#%d  %s", n, p.Card.Type.DisplayName())),
		theme.Title.Render(p.Card.Russian),
		status,
	)
	return theme.Card.Render(body)
}

func renderReveal(p session.Prompt) string {
	s := theme.Body.Render("  " + p.Card.English)
	if len(p.Card.Tags) > 0 {
		s += theme.Hint.Render("  [" + strings.Join(p.Card.Tags, ", ") + "]")
	}
	return s
}

func renderResult(res session.Result, levels int) string {
	var s string
	if res.Transition.KnewIt {
		s = theme.Correct.Render("✓ known")
	} else {
		s = theme.Incorrect.Render("✗ not yet")
	}
	from, to := res.Transition.From, res.Transition.To
	if from != to {
		s += "  " + theme.Level(from, levels).Render(fmt.Sprintf("level %d", from)) +
			theme.Hint.Render(" → ") +
			theme.Level(to, levels).Render(fmt.Sprintf("level %d", to))
	}
	s += theme.Hint.Render(fmt.Sprintf("  score %.2f", res.After.Score()))
	if res.Milestone() {
		s += "\n" + theme.NewBadge.Render(fmt.Sprintf("%d in a row!", res.Streak))
	}
	return s
}

func renderSummary(sum *session.Summary) string {
	header := theme.Title.Render("Session complete") +
		theme.Hint.Render(fmt.Sprintf("  (%s, %s)", sum.EndReason, sum.Duration.Round(time.Second)))
	if sum.Reviewed == 0 {
		return header + "\n" + theme.Hint.Render("No cards reviewed.")
	}

	accuracy := components.NewProgressBar("accuracy", sum.Accuracy, true, 48)
	totals := fmt.Sprintf("%d reviewed  %s  %s  %d new  %d up  %d down  best streak %d",
		sum.Reviewed,
		theme.Correct.Render(fmt.Sprintf("%d known", sum.Known)),
		theme.Incorrect.Render(fmt.Sprintf("%d unknown", sum.Unknown)),
		sum.Introduced, sum.LevelUps, sum.LevelDowns, sum.BestStreak)

	rows := lo.Map(sum.ByType, func(r session.TypeResult, _ int) []string {
		return []string{
			r.Type.DisplayName(),
			fmt.Sprint(r.Reviewed),
			fmt.Sprint(r.Known),
			fmt.Sprintf("%d%%", r.Known*100/max(r.Reviewed, 1)),
		}
	})
	tbl := components.NewTable([]string{"Type", "Reviewed", "Known", "Accuracy"}, rows, nil)

	return lipgloss.JoinVertical(lipgloss.Left, header, totals, accuracy.View(), tbl.Render())
}

func formatLastSeen(rec study.Record, now time.Time) string {
	if rec.LastEncounter == nil {
		return "never"
	}
	d := now.Sub(*rec.LastEncounter)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	}
}
