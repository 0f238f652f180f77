package meta

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"yamcts/searcher"

	"github.com/hashicorp/go-multierror"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	config := Default()
	require.NoError(t, config.Validate())
	require.Equal(t, EPISODES, config.Iterations)
	require.Nil(t, config.Seed)
	require.Len(t, config.Options(), 3)
	require.Equal(t, zerolog.InfoLevel, config.Level())
}

func TestLoad(t *testing.T) {
	t.Run("file overrides defaults", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yaml")
		require.NoError(t, os.WriteFile(path, []byte(`
workers: 3
exploration_constant: 0.5
iterations: 0
duration: 250ms
seed: 42
tie_break: first
log_level: debug
`), 0644))

		config, err := Load(path)
		require.NoError(t, err)
		require.Equal(t, 3, config.Workers)
		require.Equal(t, 0.5, config.ExplorationConstant)
		require.Equal(t, 250*time.Millisecond, config.Duration)
		require.NotNil(t, config.Seed)
		require.EqualValues(t, 42, *config.Seed)
		require.Equal(t, zerolog.DebugLevel, config.Level())
		require.Equal(t, MAX_TURNS, config.MaxTurns, "Unset fields keep their default")
		require.Len(t, config.Options(), 4)

		m, err := searcher.New[int](config.Options()...)
		require.NoError(t, err)
		require.NotNil(t, m)
	})

	t.Run("environment overrides the file", func(t *testing.T) {
		t.Setenv("YAMCTS_WORKERS", "5")
		t.Setenv("YAMCTS_SEED", "7")
		config, err := Load("")
		require.NoError(t, err)
		require.Equal(t, 5, config.Workers)
		require.EqualValues(t, 7, *config.Seed)
	})

	t.Run("duration in file replaces default iterations", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yaml")
		require.NoError(t, os.WriteFile(path, []byte("duration: 2s\n"), 0644))

		config, err := Load(path)
		require.NoError(t, err)
		b := config.Budget()
		require.Zero(t, b.Iterations)
		require.Equal(t, 2*time.Second, b.Duration)
	})

	t.Run("duration in environment replaces default iterations", func(t *testing.T) {
		t.Setenv("YAMCTS_DURATION", "500ms")
		config, err := Load("")
		require.NoError(t, err)
		b := config.Budget()
		require.Zero(t, b.Iterations)
		require.Equal(t, 500*time.Millisecond, b.Duration)
	})

	t.Run("explicit iterations are kept next to a duration", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yaml")
		require.NoError(t, os.WriteFile(path, []byte("duration: 2s\n"), 0644))
		t.Setenv("YAMCTS_ITERATIONS", "300")

		config, err := Load(path)
		require.NoError(t, err)
		require.Equal(t, 300, config.Iterations)
		require.Equal(t, 2*time.Second, config.Duration)
	})

	t.Run("tie break and max turns from environment", func(t *testing.T) {
		t.Setenv("YAMCTS_TIE_BREAK", "first")
		t.Setenv("YAMCTS_MAX_TURNS", "40")
		config, err := Load("")
		require.NoError(t, err)
		require.Equal(t, "first", config.TieBreak)
		require.Equal(t, 40, config.MaxTurns)
		require.Equal(t, EPISODES, config.Iterations)
	})

	t.Run("malformed environment values", func(t *testing.T) {
		t.Setenv("YAMCTS_WORKERS", "abc")
		t.Setenv("YAMCTS_DURATION", "soon")
		_, err := Load("")
		require.ErrorIs(t, err, searcher.ErrInvalidConfig)
		require.Contains(t, err.Error(), "YAMCTS_WORKERS")
		require.Contains(t, err.Error(), "YAMCTS_DURATION")
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
		require.Error(t, err)
	})

	t.Run("malformed file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yaml")
		require.NoError(t, os.WriteFile(path, []byte("workers: [1, 2"), 0644))
		_, err := Load(path)
		require.Error(t, err)
	})
}

func TestValidate(t *testing.T) {
	config := Default()
	config.Workers = 0
	config.Iterations = 0
	config.TieBreak = "sometimes"
	config.LogLevel = "loud"

	err := config.Validate()
	require.ErrorIs(t, err, searcher.ErrInvalidConfig)
	var merr *multierror.Error
	require.ErrorAs(t, err, &merr)
	require.Len(t, merr.Errors, 4)
	for _, e := range merr.Errors {
		require.ErrorIs(t, e, searcher.ErrInvalidConfig)
	}
	require.Contains(t, err.Error(), "workers")
	require.Contains(t, err.Error(), "iterations or duration")
	require.Contains(t, err.Error(), "tie_break")
	require.Contains(t, err.Error(), "log_level")
}

func TestParseTieBreak(t *testing.T) {
	tb, err := ParseTieBreak("first")
	require.NoError(t, err)
	require.Equal(t, searcher.TieBreakFirst, tb)

	tb, err = ParseTieBreak("")
	require.NoError(t, err)
	require.Equal(t, searcher.TieBreakRandom, tb)

	_, err = ParseTieBreak("last")
	require.Error(t, err)
}
