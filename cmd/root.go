package cmd

import (
	"github.com/spf13/cobra"

	"github.com/abhisek/cardstudy/internal/store"
)

var rootCmd = &cobra.Command{
	Use:   "cardstudy",
	Short: "Spaced-repetition Russian vocabulary trainer",
	Long:  "cardstudy schedules Russian/English flashcards by proficiency level and review history.",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runStudy(cmd)
	},
	SilenceUsage: true,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().String("db", "", "Path to SQLite database file (overrides CARDSTUDY_DB env var)")
	rootCmd.PersistentFlags().String("config", "", "Path to config file (default ./cardstudy.yaml)")
	rootCmd.PersistentFlags().StringSlice("cards", nil, "Card-set YAML files or globs (overrides cards.paths)")
	rootCmd.PersistentFlags().String("log-level", "", "Log level (overrides log.level)")

	addStudyFlags(rootCmd)

	rootCmd.AddCommand(studyCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(cardsCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(resetCmd)
	rootCmd.AddCommand(versionCmd)
}

// resolveDBPath returns the database path using --db flag (highest priority),
// then database.path from config, then CARDSTUDY_DB and the default XDG path.
func resolveDBPath(cmd *cobra.Command, configured string) (string, error) {
	if p, _ := cmd.Flags().GetString("db"); p != "" {
		return p, store.EnsureDir(p)
	}
	if configured != "" {
		return configured, store.EnsureDir(configured)
	}
	return store.DefaultDBPath()
}
