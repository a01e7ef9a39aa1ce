package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"strings"

	"charm.land/lipgloss/v2"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/abhisek/cardstudy/internal/session"
	"github.com/abhisek/cardstudy/internal/studydb"
	"github.com/abhisek/cardstudy/internal/ui/theme"
)

var studyCmd = &cobra.Command{
	Use:   "study",
	Short: "Start a study session",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runStudy(cmd)
	},
}

func init() {
	addStudyFlags(studyCmd)
}

func addStudyFlags(cmd *cobra.Command) {
	fs := cmd.Flags()
	addQueryFlags(fs)
	addSessionFlags(fs)
}

func addSessionFlags(fs *pflag.FlagSet) {
	fs.Int("max-reviews", 0, "End the session after this many answers (overrides study.max_reviews)")
	fs.Duration("duration", 0, "End the session after this long, e.g. 15m (overrides study.duration)")
	fs.Uint64("seed", 0, "Seed for reproducible card order (overrides study.seed)")
}

// runStudy opens the study data, runs an interactive session on stdin/stdout
// and records the day's metrics snapshot once it ends.
func runStudy(cmd *cobra.Command) (err error) {
	ctx := cmdContext(cmd)
	e, err := openEnv(cmd, true)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := e.Close(ctx); cerr != nil && err == nil {
			err = fmt.Errorf("close study data: %w", cerr)
		}
	}()

	q, err := queryFromFlags(cmd)
	if err != nil {
		return err
	}
	schedCfg, err := e.cfg.SchedulerConfig()
	if err != nil {
		return err
	}
	fs := cmd.Flags()
	if fs.Changed("seed") {
		seed, _ := fs.GetUint64("seed")
		schedCfg.Rand = rand.New(rand.NewPCG(seed, seed))
	}
	maxReviews := e.cfg.Study.MaxReviews
	if fs.Changed("max-reviews") {
		maxReviews, _ = fs.GetInt("max-reviews")
	}
	duration := e.cfg.Study.Duration
	if fs.Changed("duration") {
		duration, _ = fs.GetDuration("duration")
	}

	sess, err := session.Start(e.pool, e.db, session.Options{
		Query:      q,
		Scheduler:  schedCfg,
		MaxReviews: maxReviews,
		Duration:   duration,
		Events:     e.store.EventRepo(),
		Logger:     e.log,
	})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(sess.WorkingSet()) == 0 {
		lipgloss.Fprintln(out, theme.Hint.Render("No cards match the selection."))
		return nil
	}

	saver := studydb.NewSaver(e.db, studydb.DefaultRetryConfig())
	loopErr := studyLoop(ctx, cmd.InOrStdin(), out, sess)
	saveErr := saver.Close(ctx)

	lipgloss.Fprintln(out)
	lipgloss.Fprintln(out, renderSummary(session.BuildSummary(sess)))

	if _, err := e.db.RecordMetricsSnapshot(ctx, e.agg, e.pool); err != nil {
		e.log.WithError(err).Warn("failed to record metrics snapshot")
	}
	return errors.Join(loopErr, saveErr)
}

var errQuit = errors.New("quit")

// studyLoop serves cards until the session ends or the input is exhausted.
// Each card is revealed on enter and then self-graded with y or n; q quits.
func studyLoop(ctx context.Context, in io.Reader, out io.Writer, sess *session.Session) error {
	sc := bufio.NewScanner(in)
	levels := sess.Scheduler().ProficiencyLevels()

	for {
		if err := ctx.Err(); err != nil {
			sess.Quit()
			return err
		}
		p, ok := sess.Next()
		if !ok {
			return nil
		}

		lipgloss.Fprintln(out, renderPrompt(p, sess.Scheduler().Rep(), levels))
		lipgloss.Fprint(out, theme.Hint.Render("enter to reveal, q to quit "))
		if _, err := readAnswer(sc); err != nil {
			sess.Quit()
			return ignoreQuit(err)
		}
		lipgloss.Fprintln(out, renderReveal(p))

		var knewIt bool
		for {
			lipgloss.Fprint(out, theme.Hint.Render("did you know it? [y/n/q] "))
			line, err := readAnswer(sc)
			if err != nil {
				sess.Quit()
				return ignoreQuit(err)
			}
			if v, ok := parseYesNo(line); ok {
				knewIt = v
				break
			}
		}

		res, err := sess.Answer(ctx, knewIt)
		if err != nil {
			return err
		}
		lipgloss.Fprintln(out, renderResult(res, levels))
		lipgloss.Fprintln(out)
	}
}

// readAnswer reads one trimmed line. It returns errQuit on "q" and io.EOF
// when input runs out.
func readAnswer(sc *bufio.Scanner) (string, error) {
	if !sc.Scan() {
		if err := sc.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	line := strings.ToLower(strings.TrimSpace(sc.Text()))
	if line == "q" || line == "quit" {
		return "", errQuit
	}
	return line, nil
}

func parseYesNo(s string) (bool, bool) {
	switch s {
	case "y", "yes", "1":
		return true, true
	case "n", "no", "0":
		return false, true
	}
	return false, false
}

// ignoreQuit turns a user quit or end of input into a clean stop.
func ignoreQuit(err error) error {
	if errors.Is(err, errQuit) || errors.Is(err, io.EOF) {
		return nil
	}
	return err
}
