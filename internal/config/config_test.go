package config

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/cardstudy/internal/metrics"
	"github.com/abhisek/cardstudy/internal/spacedrep"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "cardstudy.yaml")
	require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	return p
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 4, cfg.Study.ProficiencyLevels)
	assert.Equal(t, 100, cfg.Study.MaxHistorySize)
	assert.Equal(t, 4, cfg.Study.NewCardInterval)
	assert.Equal(t, "warn", cfg.Log.Level)

	sc, err := cfg.SchedulerConfig()
	require.NoError(t, err)
	assert.Nil(t, sc.LevelIntervals)
	assert.Nil(t, sc.Rand)

	w, err := cfg.Weights()
	require.NoError(t, err)
	assert.Nil(t, w)
}

func TestLoad_File(t *testing.T) {
	path := writeConfig(t, `
cards:
  paths: ["decks/*.yaml"]
study:
  proficiency_levels: 3
  new_card_interval: 2
  level_intervals:
    "1": 2
    "2": 5
    "3": 9
  max_reviews: 20
  duration: 10m
  seed: 7
metrics:
  weights:
    "0": 0
    "1": 0.2
    "2": 0.5
    "3": 1
log:
  level: debug
  format: json
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"decks/*.yaml"}, cfg.Cards.Paths)
	assert.Equal(t, 10*time.Minute, cfg.Study.Duration)
	assert.Equal(t, 20, cfg.Study.MaxReviews)

	sc, err := cfg.SchedulerConfig()
	require.NoError(t, err)
	assert.Equal(t, 3, sc.ProficiencyLevels)
	assert.Equal(t, 2, sc.NewCardInterval)
	assert.Equal(t, map[int]int{1: 2, 2: 5, 3: 9}, sc.LevelIntervals)
	assert.NotNil(t, sc.Rand)

	_, err = spacedrep.New(nil, nil, sc)
	assert.NoError(t, err)

	w, err := cfg.Weights()
	require.NoError(t, err)
	assert.Equal(t, metrics.Weights{0, 0.2, 0.5, 1}, w)
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("CARDSTUDY_STUDY_NEW_CARD_INTERVAL", "9")
	t.Setenv("CARDSTUDY_LOG_LEVEL", "error")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 9, cfg.Study.NewCardInterval)
	assert.Equal(t, "error", cfg.Log.Level)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"zero levels", "study:\n  proficiency_levels: 0\n"},
		{"zero interval", "study:\n  new_card_interval: 0\n"},
		{"bad log level", "log:\n  level: loud\n"},
		{"bad format", "log:\n  format: xml\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			assert.Error(t, err)
		})
	}
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestSchedulerConfig_BadLevelKey(t *testing.T) {
	cfg := &Config{Study: StudyConfig{ProficiencyLevels: 4, NewCardInterval: 4, LevelIntervals: map[string]int{"one": 4}}}
	_, err := cfg.SchedulerConfig()
	assert.Error(t, err)
}

func TestWeights_Invalid(t *testing.T) {
	cfg := &Config{
		Study:   StudyConfig{ProficiencyLevels: 2},
		Metrics: MetricsConfig{Weights: map[string]float64{"0": 0.5, "1": 0.1, "2": 1}},
	}
	_, err := cfg.Weights()
	assert.True(t, errors.Is(err, metrics.ErrInvalidWeights), "err = %v", err)
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewLogger(LogConfig{Level: "info", Format: "json"}, &buf)
	require.NoError(t, err)
	assert.Equal(t, logrus.InfoLevel, logger.GetLevel())

	logger.WithField("card", "noun:кот/cat").Info("hello")
	assert.Contains(t, buf.String(), `"card":"noun:кот/cat"`)

	_, err = NewLogger(LogConfig{Level: "loud"}, &buf)
	assert.Error(t, err)
}
