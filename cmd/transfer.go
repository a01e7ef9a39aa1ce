package cmd

import (
	"fmt"
	"os"

	"charm.land/lipgloss/v2"
	"github.com/spf13/cobra"

	"github.com/abhisek/cardstudy/internal/studyfile"
	"github.com/abhisek/cardstudy/internal/ui/theme"
)

var exportCmd = &cobra.Command{
	Use:   "export [file]",
	Short: "Write study records and metrics snapshots to a JSON file (stdout by default)",
	Args:  cobra.MaximumNArgs(1),
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

		snaps, err := e.store.MetricsRepo().List(ctx, 0)
		if err != nil {
			return fmt.Errorf("list snapshots: %w", err)
		}
		doc := studyfile.Export(e.db, snaps)

		if len(args) == 0 {
			return studyfile.Write(cmd.OutOrStdout(), doc)
		}
		if err := writeExportFile(args[0], doc); err != nil {
			return err
		}
		lipgloss.Fprintln(cmd.ErrOrStderr(), theme.Hint.Render(
			fmt.Sprintf("Exported %d records and %d snapshots to %s", len(doc.Records), len(doc.Metrics), args[0])))
		return nil
	},
}

// writeExportFile writes doc to path, reporting a failed close.
func writeExportFile(path string, doc *studyfile.Document) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create export file: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close export file: %w", cerr)
		}
	}()
	return studyfile.Write(f, doc)
}

var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Load study records and metrics snapshots from a JSON file",
	Args:  cobra.ExactArgs(1),
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

		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("open import file: %w", err)
		}
		defer f.Close()
		doc, err := studyfile.Read(f)
		if err != nil {
			return err
		}

		if replace, _ := cmd.Flags().GetBool("replace"); replace {
			if err := e.db.Clear(ctx); err != nil {
				return err
			}
		}
		report, err := studyfile.Import(ctx, doc, e.db, e.pool, e.store.MetricsRepo(), e.log)
		if err != nil {
			return err
		}
		if err := e.db.SaveAllChanges(ctx); err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		lipgloss.Fprintln(out, theme.Correct.Render(
			fmt.Sprintf("Imported %d records and %d snapshots", report.Imported, report.Metrics)))
		if n := len(report.Dropped); n > 0 {
			lipgloss.Fprintln(out, theme.Incorrect.Render(fmt.Sprintf("Skipped %d records that match no card", n)))
		}
		return nil
	},
}

func init() {
	importCmd.Flags().Bool("replace", false, "Delete existing study records before importing")
}
