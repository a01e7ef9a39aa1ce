package cmd

import (
	"fmt"

	"charm.land/lipgloss/v2"
	"github.com/spf13/cobra"

	"github.com/abhisek/cardstudy/internal/ui/theme"
)

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Delete all study records",
	RunE: func(cmd *cobra.Command, args []string) error {
		if yes, _ := cmd.Flags().GetBool("yes"); !yes {
			return fmt.Errorf("reset deletes every study record; pass --yes to confirm")
		}
		ctx := cmdContext(cmd)
		e, err := openEnv(cmd, false)
		if err != nil {
			return err
		}
		if err := e.db.Clear(ctx); err != nil {
			e.store.Close()
			return err
		}
		if err := e.Close(ctx); err != nil {
			return err
		}
		lipgloss.Fprintln(cmd.OutOrStdout(), theme.Hint.Render("All study records deleted."))
		return nil
	},
}

func init() {
	resetCmd.Flags().Bool("yes", false, "Confirm deletion")
}
