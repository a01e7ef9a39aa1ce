package cmd

import (
	"fmt"
	"time"

	"charm.land/lipgloss/v2"
	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"github.com/abhisek/cardstudy/internal/cards"
	"github.com/abhisek/cardstudy/internal/query"
	"github.com/abhisek/cardstudy/internal/ui/components"
	"github.com/abhisek/cardstudy/internal/ui/theme"
)

var cardsCmd = &cobra.Command{
	Use:   "cards",
	Short: "Browse the card pool",
}

var cardsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List cards with their study state (optionally filtered)",
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

		q, err := queryFromFlags(cmd)
		if err != nil {
			return err
		}
		selected := query.Select(q, e.pool, e.db)
		out := cmd.OutOrStdout()
		if len(selected) == 0 {
			lipgloss.Fprintln(out, theme.Hint.Render("No cards match the selection."))
			return nil
		}

		levels := e.db.ProficiencyLevels()
		now := time.Now()
		rows := lo.Map(selected, func(c cards.Card, _ int) []string {
			rec := e.db.Record(c)
			return []string{
				c.Type.DisplayName(),
				c.Russian,
				c.English,
				fmt.Sprintf("%d/%d", rec.ProficiencyLevel, levels),
				fmt.Sprintf("%.2f", rec.Score()),
				formatLastSeen(rec, now),
			}
		})
		tbl := components.NewTable(
			[]string{"Type", "Russian", "English", "Level", "Score", "Last seen"},
			rows,
			func(row, col int) (lipgloss.Style, bool) {
				if col != 3 {
					return lipgloss.Style{}, false
				}
				return theme.Level(e.db.Record(selected[row]).ProficiencyLevel, levels), true
			},
		)
		lipgloss.Fprintln(out, tbl.Render())
		lipgloss.Fprintln(out, theme.Hint.Render(fmt.Sprintf("%d of %d cards", len(selected), e.pool.Len())))
		return nil
	},
}

func init() {
	addQueryFlags(cardsListCmd.Flags())

	cardsCmd.AddCommand(cardsListCmd)
}
