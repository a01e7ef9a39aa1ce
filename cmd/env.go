package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/abhisek/cardstudy/internal/cards"
	"github.com/abhisek/cardstudy/internal/config"
	"github.com/abhisek/cardstudy/internal/metrics"
	"github.com/abhisek/cardstudy/internal/store"
	"github.com/abhisek/cardstudy/internal/studydb"
)

var errNoCards = errors.New("no card sets configured: pass --cards or set cards.paths")

// env holds the dependencies shared by every command.
type env struct {
	cfg   *config.Config
	log   *logrus.Logger
	store *store.Store
	pool  *cards.Pool
	db    *studydb.DB
	agg   *metrics.Aggregator
}

// openEnv loads configuration, opens the store and, when withCards is set,
// loads the card pool and the persisted study records resolved against it.
func openEnv(cmd *cobra.Command, withCards bool) (*env, error) {
	ctx := cmdContext(cmd)

	cfgPath, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, err
	}
	if lvl, _ := cmd.Flags().GetString("log-level"); lvl != "" {
		cfg.Log.Level = lvl
	}
	if paths, _ := cmd.Flags().GetStringSlice("cards"); len(paths) > 0 {
		cfg.Cards.Paths = paths
	}

	log, err := config.NewLogger(cfg.Log, os.Stderr)
	if err != nil {
		return nil, err
	}

	weights, err := cfg.Weights()
	if err != nil {
		return nil, err
	}
	agg, err := metrics.NewAggregator(cfg.Study.ProficiencyLevels, weights)
	if err != nil {
		return nil, err
	}

	dbPath, err := resolveDBPath(cmd, cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("resolve DB path: %w", err)
	}
	st, err := store.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	log.WithField("path", dbPath).Debug("opened study database")

	e := &env{
		cfg:   cfg,
		log:   log,
		store: st,
		agg:   agg,
		db: studydb.New(studydb.Options{
			ProficiencyLevels: cfg.Study.ProficiencyLevels,
			MaxHistorySize:    cfg.Study.MaxHistorySize,
			Records:           st.RecordRepo(),
			Metrics:           st.MetricsRepo(),
			Logger:            log,
		}),
	}
	if !withCards {
		return e, nil
	}

	if len(cfg.Cards.Paths) == 0 {
		st.Close()
		return nil, errNoCards
	}
	pool, err := cards.LoadPool(cfg.Cards.Paths...)
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("load cards: %w", err)
	}
	if pool.Len() == 0 {
		st.Close()
		return nil, fmt.Errorf("no cards found in %v", cfg.Cards.Paths)
	}
	e.pool = pool

	report, err := e.db.Load(ctx, pool)
	if err != nil {
		st.Close()
		return nil, err
	}
	log.WithFields(logrus.Fields{
		"cards":   pool.Len(),
		"records": report.Loaded,
	}).Debug("loaded study data")
	return e, nil
}

// Close flushes unsaved records and closes the store.
func (e *env) Close(ctx context.Context) error {
	saveErr := e.db.SaveAllChanges(ctx)
	closeErr := e.store.Close()
	return errors.Join(saveErr, closeErr)
}

func cmdContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
