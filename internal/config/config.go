// Package config loads cardstudy settings from an optional YAML file,
// CARDSTUDY_* environment variables and built-in defaults.
package config

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"github.com/abhisek/cardstudy/internal/metrics"
	"github.com/abhisek/cardstudy/internal/spacedrep"
	"github.com/abhisek/cardstudy/internal/study"
)

// EnvPrefix prefixes every environment variable override.
const EnvPrefix = "CARDSTUDY"

// Config holds all configuration for the application.
type Config struct {
	Database DatabaseConfig `mapstructure:"database"`
	Cards    CardsConfig    `mapstructure:"cards"`
	Study    StudyConfig    `mapstructure:"study"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
	Log      LogConfig      `mapstructure:"log"`
}

// DatabaseConfig holds database configuration.
type DatabaseConfig struct {
	// Path of the SQLite file. Empty means store.DefaultDBPath.
	Path string `mapstructure:"path"`
}

// CardsConfig lists the card-set files to load.
type CardsConfig struct {
	Paths []string `mapstructure:"paths"`
}

// StudyConfig holds the scheduling parameters.
type StudyConfig struct {
	ProficiencyLevels int `mapstructure:"proficiency_levels" validate:"min=1,max=20"`
	MaxHistorySize    int `mapstructure:"max_history_size" validate:"min=1"`
	NewCardInterval   int `mapstructure:"new_card_interval" validate:"min=1"`
	// LevelIntervals maps a level ("1", "2", ...) to its spacing in reps.
	// Empty means 4 reps per level.
	LevelIntervals map[string]int `mapstructure:"level_intervals"`
	MaxRepetitions int            `mapstructure:"max_repetitions" validate:"min=0"`
	MaxReviews     int            `mapstructure:"max_reviews" validate:"min=0"`
	Duration       time.Duration  `mapstructure:"duration" validate:"min=0"`
	// Seed makes card order reproducible. 0 picks a random seed.
	Seed uint64 `mapstructure:"seed"`
}

// MetricsConfig holds the proficiency weights used for progress reports.
type MetricsConfig struct {
	// Weights maps a level ("0", "1", ...) to its weight. Empty means defaults.
	Weights map[string]float64 `mapstructure:"weights"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string `mapstructure:"level" validate:"oneof=trace debug info warn warning error fatal panic"`
	Format string `mapstructure:"format" validate:"oneof=json text"`
}

// Load reads configuration from path, or from cardstudy.yaml in the working
// directory or the user config directory when path is empty, then applies
// environment overrides and validates the result.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("cardstudy")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if dir, err := os.UserConfigDir(); err == nil {
			v.AddConfigPath(filepath.Join(dir, "cardstudy"))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	v.SetDefault("database.path", "")
	v.SetDefault("cards.paths", []string{})

	v.SetDefault("study.proficiency_levels", study.DefaultProficiencyLevels)
	v.SetDefault("study.max_history_size", study.DefaultMaxHistorySize)
	v.SetDefault("study.new_card_interval", spacedrep.DefaultNewCardInterval)
	v.SetDefault("study.level_intervals", map[string]int{})
	v.SetDefault("study.max_repetitions", 0)
	v.SetDefault("study.max_reviews", 0)
	v.SetDefault("study.duration", "0s")
	v.SetDefault("study.seed", 0)

	v.SetDefault("metrics.weights", map[string]float64{})

	v.SetDefault("log.level", "warn")
	v.SetDefault("log.format", "text")
}

// Validate checks field constraints.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// SchedulerConfig converts the study settings into a scheduler configuration.
func (c *Config) SchedulerConfig() (spacedrep.Config, error) {
	cfg := spacedrep.Config{
		ProficiencyLevels: c.Study.ProficiencyLevels,
		NewCardInterval:   c.Study.NewCardInterval,
		MaxRepetitions:    c.Study.MaxRepetitions,
	}
	if len(c.Study.LevelIntervals) > 0 {
		intervals, err := levelKeyed(c.Study.LevelIntervals)
		if err != nil {
			return spacedrep.Config{}, fmt.Errorf("study.level_intervals: %w", err)
		}
		cfg.LevelIntervals = intervals
	}
	if c.Study.Seed != 0 {
		cfg.Rand = rand.New(rand.NewPCG(c.Study.Seed, c.Study.Seed))
	}
	return cfg, nil
}

// Weights returns the configured progress weights, or nil for defaults.
func (c *Config) Weights() (metrics.Weights, error) {
	if len(c.Metrics.Weights) == 0 {
		return nil, nil
	}
	m, err := levelKeyed(c.Metrics.Weights)
	if err != nil {
		return nil, fmt.Errorf("metrics.weights: %w", err)
	}
	return metrics.WeightsFromMap(c.Study.ProficiencyLevels, m)
}

// levelKeyed converts string level keys, as produced by config files, to ints.
func levelKeyed[V any](in map[string]V) (map[int]V, error) {
	out := make(map[int]V, len(in))
	for k, v := range in {
		level, err := strconv.Atoi(strings.TrimSpace(k))
		if err != nil {
			return nil, fmt.Errorf("level %q is not a number", k)
		}
		out[level] = v
	}
	return out, nil
}
