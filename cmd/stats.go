package cmd

import (
	"fmt"
	"io"
	"time"

	"charm.land/lipgloss/v2"
	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"github.com/abhisek/cardstudy/internal/cards"
	"github.com/abhisek/cardstudy/internal/metrics"
	"github.com/abhisek/cardstudy/internal/store"
	"github.com/abhisek/cardstudy/internal/ui/components"
	"github.com/abhisek/cardstudy/internal/ui/theme"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show learning statistics",
	Long:  "Aggregates proficiency over the card pool, records today's snapshot and optionally lists earlier snapshots and sessions.",
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		ctx := cmdContext(cmd)
		e, err := openEnv(cmd, true)
		if err != nil {
			return err
		}
		defer func() {
			if cerr := e.Close(ctx); cerr != nil && err == nil {
				err = cerr
			}
		}()

		m, err := e.db.RecordMetricsSnapshot(ctx, e.agg, e.pool)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		renderMetrics(out, m, e.agg.Weights())

		if n, _ := cmd.Flags().GetInt("history"); n > 0 {
			snaps, err := e.store.MetricsRepo().List(ctx, n)
			if err != nil {
				return fmt.Errorf("list snapshots: %w", err)
			}
			lipgloss.Fprintln(out)
			renderHistory(out, snaps, e.agg.Weights())
		}
		if n, _ := cmd.Flags().GetInt("sessions"); n > 0 {
			sums, err := e.store.EventRepo().SessionSummaries(ctx, n)
			if err != nil {
				return fmt.Errorf("list sessions: %w", err)
			}
			lipgloss.Fprintln(out)
			renderSessions(out, sums)
		}
		return nil
	},
}

func init() {
	statsCmd.Flags().Int("history", 0, "Also list the last N daily snapshots")
	statsCmd.Flags().Int("sessions", 0, "Also list the last N study sessions")
}

func renderMetrics(out io.Writer, m metrics.Metrics, w metrics.Weights) {
	overall := m.Overall
	lipgloss.Fprintln(out, theme.Title.Render("Proficiency")+theme.Hint.Render("  "+m.Date))
	lipgloss.Fprintln(out, components.NewProgressBar("overall", overall.ProficiencyPercent(w), true, 56).View())
	lipgloss.Fprintln(out)
	lipgloss.Fprintln(out, components.NewLevelHistogram(overall.Counts, 56).View())
	lipgloss.Fprintln(out)

	rows := lo.Map(m.Types(), func(t cards.WordType, _ int) []string {
		s := m.ByType[t]
		return summaryRow(t.DisplayName(), s, w)
	})
	rows = append(rows, summaryRow("All", overall, w))
	tbl := components.NewTable([]string{"Type", "Cards", "New", "Avg score", "Proficiency"}, rows, nil)
	lipgloss.Fprintln(out, tbl.Render())
}

func summaryRow(name string, s metrics.Summary, w metrics.Weights) []string {
	newCount := 0
	if len(s.Counts) > 0 {
		newCount = s.Counts[0]
	}
	return []string{
		name,
		fmt.Sprint(s.Total),
		fmt.Sprint(newCount),
		fmt.Sprintf("%.2f", s.AverageScore()),
		fmt.Sprintf("%.0f%%", s.ProficiencyPercent(w)*100),
	}
}

func renderHistory(out io.Writer, snaps []metrics.Metrics, w metrics.Weights) {
	lipgloss.Fprintln(out, theme.Title.Render("History"))
	if len(snaps) == 0 {
		lipgloss.Fprintln(out, theme.Hint.Render("No snapshots recorded."))
		return
	}
	width := lo.Max(lo.Map(snaps, func(m metrics.Metrics, _ int) int { return len(m.Date) }))
	for _, m := range snaps {
		bar := components.NewProgressBar(m.Date, m.Overall.ProficiencyPercent(w), true, 56)
		bar.LabelWidth = width
		lipgloss.Fprintln(out, bar.View())
	}
}

func renderSessions(out io.Writer, sums []store.SessionSummary) {
	lipgloss.Fprintln(out, theme.Title.Render("Sessions"))
	if len(sums) == 0 {
		lipgloss.Fprintln(out, theme.Hint.Render("No sessions recorded."))
		return
	}
	rows := lo.Map(sums, func(s store.SessionSummary, _ int) []string {
		return []string{
			s.Started.Local().Format("2006-01-02 15:04"),
			s.Ended.Sub(s.Started).Round(time.Second).String(),
			fmt.Sprint(s.Reviews),
			fmt.Sprint(s.Known),
			fmt.Sprintf("%.0f%%", s.Accuracy()*100),
		}
	})
	tbl := components.NewTable([]string{"Started", "Length", "Reviews", "Known", "Accuracy"}, rows, nil)
	lipgloss.Fprintln(out, tbl.Render())
}
