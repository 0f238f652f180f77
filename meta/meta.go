// meta/meta.go
package meta

import (
	"os"
	"runtime"
	"strconv"
	"time"

	"yamcts/agent"
	"yamcts/searcher"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

// EPISODES defines the default number of search cycles per move.
const EPISODES = 10000

// MAX_TURNS defines the move limit of a played game.
const MAX_TURNS = 300

// Config holds the search settings shared by the CLI commands.
type Config struct {
	Workers             int           `yaml:"workers"`
	ExplorationConstant float64       `yaml:"exploration_constant"`
	Iterations          int           `yaml:"iterations"`
	Duration            time.Duration `yaml:"duration"`
	Seed                *uint64       `yaml:"seed,omitempty"` // nil seeds workers from entropy
	TieBreak            string        `yaml:"tie_break"`
	LogLevel            string        `yaml:"log_level"`
	MaxTurns            int           `yaml:"max_turns"`
}

func Default() Config {
	return Config{
		Workers:             runtime.NumCPU(),
		ExplorationConstant: searcher.DefaultExplorationConstant,
		Iterations:          EPISODES,
		TieBreak:            searcher.TieBreakRandom.String(),
		LogLevel:            zerolog.LevelInfoValue,
		MaxTurns:            MAX_TURNS,
	}
}

// Load reads path over the defaults, then applies YAMCTS_* environment overrides.
// An empty path skips the file. A duration given without iterations, in the file or the
// environment, replaces the default iteration budget.
func Load(path string) (Config, error) {
	config := Default()
	var budget budgetFields
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return config, errors.Wrap(err, "read config file")
		}
		if err := yaml.Unmarshal(data, &config); err != nil {
			return config, errors.Wrapf(err, "parse config file %s", path)
		}
		if err := yaml.Unmarshal(data, &budget); err != nil {
			return config, errors.Wrapf(err, "parse config file %s", path)
		}
	}
	if err := loadFromEnv(&config, &budget); err != nil {
		return config, err
	}
	if budget.Duration != nil && budget.Iterations == nil {
		config.Iterations = 0
	}

	if err := config.Validate(); err != nil {
		return config, err
	}
	return config, nil
}

// budgetFields records which budget fields were set explicitly.
type budgetFields struct {
	Iterations *int           `yaml:"iterations"`
	Duration   *time.Duration `yaml:"duration"`
}

func loadFromEnv(config *Config, budget *budgetFields) error {
	var errs *multierror.Error
	invalid := func(key, v string, err error) {
		errs = multierror.Append(errs, errors.Wrapf(searcher.ErrInvalidConfig, "%s=%q: %v", key, v, err))
	}

	if v := os.Getenv("YAMCTS_WORKERS"); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			config.Workers = i
		} else {
			invalid("YAMCTS_WORKERS", v, err)
		}
	}
	if v := os.Getenv("YAMCTS_EXPLORATION_CONSTANT"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			config.ExplorationConstant = f
		} else {
			invalid("YAMCTS_EXPLORATION_CONSTANT", v, err)
		}
	}
	if v := os.Getenv("YAMCTS_ITERATIONS"); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			config.Iterations = i
			budget.Iterations = &i
		} else {
			invalid("YAMCTS_ITERATIONS", v, err)
		}
	}
	if v := os.Getenv("YAMCTS_DURATION"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			config.Duration = d
			budget.Duration = &d
		} else {
			invalid("YAMCTS_DURATION", v, err)
		}
	}
	if v := os.Getenv("YAMCTS_SEED"); v != "" {
		if u, err := strconv.ParseUint(v, 10, 64); err == nil {
			config.Seed = &u
		} else {
			invalid("YAMCTS_SEED", v, err)
		}
	}
	if v := os.Getenv("YAMCTS_TIE_BREAK"); v != "" {
		config.TieBreak = v
	}
	if v := os.Getenv("YAMCTS_LOG_LEVEL"); v != "" {
		config.LogLevel = v
	}
	if v := os.Getenv("YAMCTS_MAX_TURNS"); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			config.MaxTurns = i
		} else {
			invalid("YAMCTS_MAX_TURNS", v, err)
		}
	}
	return errs.ErrorOrNil()
}

// Validate reports every invalid field at once. Each entry wraps searcher.ErrInvalidConfig.
func (c Config) Validate() error {
	var errs *multierror.Error
	if c.Workers < 1 {
		errs = multierror.Append(errs, errors.Wrapf(searcher.ErrInvalidConfig, "workers must be >= 1, got %d", c.Workers))
	}
	if c.ExplorationConstant < 0 {
		errs = multierror.Append(errs, errors.Wrapf(searcher.ErrInvalidConfig, "exploration_constant must be >= 0, got %v", c.ExplorationConstant))
	}
	if c.Iterations <= 0 && c.Duration <= 0 {
		errs = multierror.Append(errs, errors.Wrap(searcher.ErrInvalidConfig, "iterations or duration must be positive"))
	}
	if _, err := ParseTieBreak(c.TieBreak); err != nil {
		errs = multierror.Append(errs, errors.Wrap(searcher.ErrInvalidConfig, err.Error()))
	}
	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		errs = multierror.Append(errs, errors.Wrapf(searcher.ErrInvalidConfig, "log_level %q: %v", c.LogLevel, err))
	}
	if c.MaxTurns < 1 {
		errs = multierror.Append(errs, errors.Wrapf(searcher.ErrInvalidConfig, "max_turns must be >= 1, got %d", c.MaxTurns))
	}
	return errs.ErrorOrNil()
}

func ParseTieBreak(s string) (searcher.TieBreak, error) {
	switch s {
	case searcher.TieBreakRandom.String(), "":
		return searcher.TieBreakRandom, nil
	case searcher.TieBreakFirst.String():
		return searcher.TieBreakFirst, nil
	}
	return 0, errors.Errorf("unknown tie_break %q", s)
}

// Options converts the configuration into searcher options. Pass a validated Config.
func (c Config) Options() []searcher.Option {
	tieBreak, _ := ParseTieBreak(c.TieBreak)
	options := []searcher.Option{
		searcher.WithWorkers(c.Workers),
		searcher.WithExplorationConstant(c.ExplorationConstant),
		searcher.WithTieBreak(tieBreak),
	}
	if c.Seed != nil {
		options = append(options, searcher.WithRandomness(searcher.NewSeededFactory(*c.Seed)))
	}
	return options
}

func (c Config) Budget() agent.Budget {
	return agent.Budget{Iterations: c.Iterations, Duration: c.Duration}
}

func (c Config) Level() zerolog.Level {
	level, err := zerolog.ParseLevel(c.LogLevel)
	if err != nil {
		return zerolog.InfoLevel
	}
	return level
}
