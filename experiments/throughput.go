package experiments

import (
	"context"
	"time"

	"yamcts/experiments/metrics"
	"yamcts/searcher"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gonum.org/v1/gonum/stat"
)

// SpeedupSetup measures search throughput on one state for several worker counts.
type SpeedupSetup struct {
	Workers  []int
	Runs     int // Searches per worker count
	Duration time.Duration
	Seed     uint64
	OutDir   string // Empty skips writing CSV files
	// Collector receives the events of every run, e.g. a Prometheus collector
	Collector metrics.Collector
	Logger    *zerolog.Logger
}

var DefaultSpeedupWorkers = []int{1, 2, 4, 8, 16}

// RunSpeedupExperiment searches state Runs times per worker count and reports the mean
// cycles, their spread and the speedup relative to the first worker count.
func RunSpeedupExperiment[M comparable](ctx context.Context, state searcher.State[M], setup SpeedupSetup) ([]metrics.SpeedupRecord, error) {
	if len(setup.Workers) == 0 || setup.Runs < 1 || setup.Duration <= 0 {
		return nil, errors.Wrap(searcher.ErrInvalidConfig, "speedup needs worker counts, runs and a duration")
	}
	logger := log.Logger
	if setup.Logger != nil {
		logger = *setup.Logger
	}
	collector := setup.Collector
	if collector == nil {
		collector = metrics.NewCollector()
	}

	logger.Info().Msgf("starting speedup experiment over workers %v...", setup.Workers)

	records := make([]metrics.SpeedupRecord, 0, len(setup.Workers))
	configs := make([]metrics.AgentConfig, 0, len(setup.Workers))
	for i, workers := range setup.Workers {
		var depth int
		m, err := searcher.New[M](
			searcher.WithWorkers(workers),
			searcher.WithRandomness(searcher.NewSeededFactory(setup.Seed)),
			searcher.WithMetrics(collector),
			searcher.WithLogger(logger),
			searcher.WithTreeObserver(func(tree *searcher.Tree[M]) { depth = treeDepth(tree) }),
		)
		if err != nil {
			return nil, err
		}
		configs = append(configs, metrics.AgentConfig{
			ID:                  i,
			Kind:                "mcts",
			Workers:             workers,
			Duration:            setup.Duration,
			ExplorationConstant: searcher.DefaultExplorationConstant,
		})

		cycles := make([]float64, 0, setup.Runs)
		depths := make([]float64, 0, setup.Runs)
		rollouts := make([]float64, 0, setup.Runs)
		var elapsed time.Duration
		for run := 0; run < setup.Runs; run++ {
			result, err := m.RunWithDuration(ctx, state, setup.Duration)
			if err != nil {
				return nil, errors.Wrapf(err, "speedup run %d with %d workers", run, workers)
			}
			cycles = append(cycles, float64(result.Cycles))
			depths = append(depths, float64(depth))
			rollouts = append(rollouts, float64(result.Metric.MaxRolloutDepth))
			elapsed += result.Metric.Duration
		}

		mean, std := stat.MeanStdDev(cycles, nil)
		record := metrics.SpeedupRecord{
			Workers:        workers,
			Runs:           setup.Runs,
			MeanCycles:     mean,
			StdDevCycles:   std,
			MeanTreeDepth:  stat.Mean(depths, nil),
			MeanRolloutMax: stat.Mean(rollouts, nil),
		}
		if elapsed > 0 {
			record.CyclesPerSec = mean * float64(setup.Runs) / elapsed.Seconds()
		}
		if len(records) > 0 && records[0].CyclesPerSec > 0 {
			record.Speedup = record.CyclesPerSec / records[0].CyclesPerSec
		} else {
			record.Speedup = 1
		}
		records = append(records, record)

		logger.Info().Msgf("workers=%d cycles=%.0f±%.0f throughput=%.0f/s speedup=%.2f",
			workers, record.MeanCycles, record.StdDevCycles, record.CyclesPerSec, record.Speedup)
	}

	logger.Info().Msg("completed speedup experiment")

	if setup.OutDir == "" {
		return records, nil
	}
	writer, err := metrics.NewWriter(setup.OutDir, "speedup")
	if err != nil {
		return records, err
	}
	if err := writer.WriteAgentConfigs(configs); err != nil {
		return records, err
	}
	if err := writer.WriteSpeedupRecords(records); err != nil {
		return records, err
	}
	logger.Info().Msgf("stored speedup records in %s", writer.Dir())
	return records, nil
}

func treeDepth[M comparable](tree *searcher.Tree[M]) int {
	depth := 0
	tree.Walk(func(id searcher.NodeID, d int) bool {
		depth = max(depth, d)
		return true
	})
	return depth
}
