package experiments

import (
	"context"
	"time"

	"yamcts/agent"
	"yamcts/engine"
	"yamcts/experiments/metrics"
	"yamcts/game"
	"yamcts/searcher"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gonum.org/v1/gonum/stat"
)

const (
	NumGames   = 30 // Per match up
	TimeBudget = 10 * time.Millisecond
)

// StrengthSetup pits agents with more workers against a sequential baseline under the same
// time budget.
type StrengthSetup struct {
	Workers  []int
	NumGames int // Per match up, starting player alternates
	Duration time.Duration
	Seed     uint64
	MaxMoves int
	OutDir   string // Empty skips writing CSV files
	Logger   *zerolog.Logger
}

// StrengthRecord is the result of one matchup from the challenger's point of view.
type StrengthRecord struct {
	Workers   int
	Games     int
	Wins      int
	Draws     int
	Losses    int
	MeanMoves float64
}

func (r StrengthRecord) Score() float64 {
	if r.Games == 0 {
		return 0
	}
	return (float64(r.Wins) + 0.5*float64(r.Draws)) / float64(r.Games)
}

func RunStrengthExperiment[M comparable](ctx context.Context, newGame func() game.Game[M], setup StrengthSetup) ([]StrengthRecord, error) {
	if len(setup.Workers) == 0 || setup.NumGames < 1 || setup.Duration <= 0 {
		return nil, errors.Wrap(searcher.ErrInvalidConfig, "strength needs worker counts, games and a duration")
	}
	logger := log.Logger
	if setup.Logger != nil {
		logger = *setup.Logger
	}

	// Each matchup pairs an agent against the baseline sequential agent
	baseline := metrics.AgentConfig{ID: 0, Kind: "mcts", Workers: 1, Duration: setup.Duration, ExplorationConstant: searcher.DefaultExplorationConstant}
	configs := []metrics.AgentConfig{baseline}
	for i, workers := range setup.Workers {
		configs = append(configs, metrics.AgentConfig{ID: i + 1, Kind: "mcts", Workers: workers, Duration: setup.Duration, ExplorationConstant: searcher.DefaultExplorationConstant})
	}

	count := 0
	gameRecords := []metrics.GameRecord{}
	moveRecords := []metrics.MoveRecord{}
	records := make([]StrengthRecord, 0, len(setup.Workers))

	logger.Info().Msg("starting strength experiment...")

	for mi, challenger := range configs[1:] {
		record := StrengthRecord{Workers: challenger.Workers}
		moves := make([]float64, 0, setup.NumGames)
		logger.Info().Msgf("starting matchup %d of %d between baseline=%+v and challenger=%+v...", mi+1, len(setup.Workers), baseline, challenger)

		for i := 0; i < setup.NumGames; i++ {
			state := newGame()
			first, second := baseline, challenger
			if i%2 == 1 {
				first, second = challenger, baseline
			}
			seed := setup.Seed + uint64(count)*1000

			winner, gameMetric, moveMetrics, err := runGame(ctx, state, first, second, seed, setup.MaxMoves, logger)
			if err != nil {
				return records, errors.Wrapf(err, "matchup %d game %d", mi+1, i+1)
			}
			count++
			gameRecords = append(gameRecords, metrics.GameRecord{
				ID:         count,
				Agent1:     first.ID,
				Agent2:     second.ID,
				GameMetric: gameMetric,
			})
			for _, mm := range moveMetrics {
				moveRecords = append(moveRecords, metrics.MoveRecord{Game: count, MoveMetric: mm})
			}

			challengerPlayer := state.Player()
			if first.ID != challenger.ID {
				challengerPlayer = state.Opponent(challengerPlayer)
			}
			switch winner {
			case "":
				record.Draws++
			case challengerPlayer:
				record.Wins++
			default:
				record.Losses++
			}
			record.Games++
			moves = append(moves, float64(gameMetric.TotalMoves))

			logger.Info().Msgf("completed matchup %d game %d with winner: %q", mi+1, i+1, winner)
		}
		record.MeanMoves = stat.Mean(moves, nil)
		records = append(records, record)
		logger.Info().Msgf("completed matchup %d: %d wins, %d draws, %d losses, score %.2f", mi+1, record.Wins, record.Draws, record.Losses, record.Score())
	}

	logger.Info().Msg("completed strength experiment")

	if setup.OutDir == "" {
		return records, nil
	}
	writer, err := metrics.NewWriter(setup.OutDir, "strength")
	if err != nil {
		return records, err
	}
	if err := writer.WriteAgentConfigs(configs); err != nil {
		return records, err
	}
	if err := writer.WriteGameRecords(gameRecords); err != nil {
		return records, err
	}
	if err := writer.WriteMoveRecords(moveRecords); err != nil {
		return records, err
	}
	logger.Info().Msgf("stored strength records in %s", writer.Dir())
	return records, nil
}

// runGame plays one game, config1 moving first.
func runGame[M comparable](ctx context.Context, state game.Game[M], config1, config2 metrics.AgentConfig, seed uint64, maxMoves int, logger zerolog.Logger) (string, metrics.GameMetric, []metrics.MoveMetric, error) {
	agent1, err := createAgent[M](config1, seed, logger)
	if err != nil {
		return "", metrics.GameMetric{}, nil, err
	}
	agent2, err := createAgent[M](config2, seed+1, logger)
	if err != nil {
		return "", metrics.GameMetric{}, nil, err
	}
	var e engine.Engine
	e, err = engine.NewLocalEngine(state, map[string]agent.Agent[M]{
		state.Player():                 agent1,
		state.Opponent(state.Player()): agent2,
	}, engine.WithMaxMoves[M](maxMoves), engine.WithLogger[M](logger.Level(zerolog.WarnLevel)))
	if err != nil {
		return "", metrics.GameMetric{}, nil, err
	}
	return e.Run(ctx)
}

func createAgent[M comparable](config metrics.AgentConfig, seed uint64, logger zerolog.Logger) (agent.Agent[M], error) {
	if config.Kind == "random" {
		return agent.NewRandomAgent[M](searcher.NewPCG(seed)), nil
	}
	options := []searcher.Option{
		searcher.WithWorkers(config.Workers),
		searcher.WithRandomness(searcher.NewSeededFactory(seed)),
		searcher.WithMetrics(metrics.NewCollector()),
		searcher.WithLogger(logger),
	}
	if config.ExplorationConstant > 0 {
		options = append(options, searcher.WithExplorationConstant(config.ExplorationConstant))
	}
	return agent.NewMCTSAgent[M](agent.Budget{Iterations: config.Iterations, Duration: config.Duration}, options...)
}
