// Package config loads runtime settings from an optional YAML file and
// SPLITQ_ environment variables.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/roach88/splitq/internal/optimize"
	"github.com/roach88/splitq/internal/split"
)

// EnvPrefix prefixes environment overrides: split.column.min_cols is read
// from SPLITQ_SPLIT_COLUMN_MIN_COLS.
const EnvPrefix = "SPLITQ"

// Config is the full runtime configuration.
type Config struct {
	Split    SplitConfig    `mapstructure:"split"`
	Optimize OptimizeConfig `mapstructure:"optimize"`
	Log      LogConfig      `mapstructure:"log"`
}

// SplitConfig configures the split strategies.
type SplitConfig struct {
	UseSplit bool              `mapstructure:"use_split"`
	Column   ColumnSplitConfig `mapstructure:"column"`
	Time     TimeSplitConfig   `mapstructure:"time"`
}

type ColumnSplitConfig struct {
	MinCols    int `mapstructure:"min_cols"`
	MaxResults int `mapstructure:"max_results"`
}

type TimeSplitConfig struct {
	InitialStep time.Duration `mapstructure:"initial_step"`
	Growth      int           `mapstructure:"growth"`
	MaxStep     time.Duration `mapstructure:"max_step"`
	MaxOffset   int           `mapstructure:"max_offset"`
}

// OptimizeConfig configures optimize jobs. The durations are offsets from
// midnight.
type OptimizeConfig struct {
	Cutoff        time.Duration `mapstructure:"cutoff"`
	ParallelStart time.Duration `mapstructure:"parallel_start"`
	ParallelEnd   time.Duration `mapstructure:"parallel_end"`
	Parallel      int           `mapstructure:"parallel"`

	// RedisAddr enables the Redis tracker when set.
	RedisAddr string `mapstructure:"redis_addr"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

func setDefaults(v *viper.Viper) {
	schedule := optimize.DefaultScheduleConfig()

	v.SetDefault("split.use_split", true)
	v.SetDefault("split.column.min_cols", split.DefaultColumnSplitMinCols)
	v.SetDefault("split.column.max_results", split.DefaultColumnSplitMaxResults)
	v.SetDefault("split.time.initial_step", split.DefaultTimeSplitInitialStep)
	v.SetDefault("split.time.growth", split.DefaultTimeSplitGrowth)
	v.SetDefault("split.time.max_step", split.DefaultTimeSplitMaxStep)
	v.SetDefault("split.time.max_offset", split.DefaultTimeSplitMaxOffset)
	v.SetDefault("optimize.cutoff", schedule.Cutoff)
	v.SetDefault("optimize.parallel_start", schedule.ParallelStart)
	v.SetDefault("optimize.parallel_end", schedule.ParallelEnd)
	v.SetDefault("optimize.parallel", 1)
	v.SetDefault("optimize.redis_addr", "")
	v.SetDefault("log.level", "info")
}

// Default returns the configuration with no file and no environment.
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		panic(fmt.Sprintf("config defaults: %v", err))
	}
	return &cfg
}

// Load reads the configuration. path may be empty, in which case only the
// environment and defaults apply. Environment variables override the file.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks value ranges. All problems are reported together.
func (c *Config) Validate() error {
	var errs []error
	check := func(ok bool, key string, format string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Errorf("%s: %s", key, fmt.Sprintf(format, args...)))
		}
	}

	check(c.Split.Column.MinCols >= 1, "split.column.min_cols", "must be at least 1, got %d", c.Split.Column.MinCols)
	check(c.Split.Column.MaxResults >= 1, "split.column.max_results", "must be at least 1, got %d", c.Split.Column.MaxResults)
	check(c.Split.Time.InitialStep > 0, "split.time.initial_step", "must be positive, got %s", c.Split.Time.InitialStep)
	check(c.Split.Time.Growth >= 2, "split.time.growth", "must be at least 2, got %d", c.Split.Time.Growth)
	check(c.Split.Time.MaxStep >= c.Split.Time.InitialStep, "split.time.max_step", "must not be below initial_step, got %s", c.Split.Time.MaxStep)
	check(c.Split.Time.MaxOffset >= 0, "split.time.max_offset", "must not be negative, got %d", c.Split.Time.MaxOffset)
	check(c.Optimize.Parallel >= 1, "optimize.parallel", "must be at least 1, got %d", c.Optimize.Parallel)
	check(c.Optimize.ParallelStart <= c.Optimize.ParallelEnd, "optimize.parallel_start", "must not be after parallel_end")
	check(c.Optimize.ParallelEnd <= c.Optimize.Cutoff, "optimize.parallel_end", "must not be after cutoff")
	if _, err := c.LogLevel(); err != nil {
		errs = append(errs, fmt.Errorf("log.level: %w", err))
	}
	return errors.Join(errs...)
}

// StrategySettings returns the split strategy limits. Column names are left
// empty; they come from the storage.
func (c *Config) StrategySettings() (split.ColumnConfig, split.TimeConfig) {
	column := split.ColumnConfig{
		MinCols:    c.Split.Column.MinCols,
		MaxResults: c.Split.Column.MaxResults,
	}
	timeCfg := split.TimeConfig{
		InitialStep: c.Split.Time.InitialStep,
		Growth:      c.Split.Time.Growth,
		MaxStep:     c.Split.Time.MaxStep,
		MaxOffset:   c.Split.Time.MaxOffset,
	}
	return column, timeCfg
}

// ScheduleConfig returns the optimize bucket offsets.
func (c *Config) ScheduleConfig() optimize.ScheduleConfig {
	return optimize.ScheduleConfig{
		Cutoff:        c.Optimize.Cutoff,
		ParallelStart: c.Optimize.ParallelStart,
		ParallelEnd:   c.Optimize.ParallelEnd,
	}
}

// LogLevel parses log.level.
func (c *Config) LogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return 0, err
	}
	return level, nil
}
