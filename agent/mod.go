package agent

import (
	"context"
	"time"

	"yamcts/experiments/metrics"
	"yamcts/searcher"

	"github.com/pkg/errors"
)

// ErrNoMove is returned when an agent is asked to move in a state offering no move.
var ErrNoMove = errors.New("no move available")

type Agent[M comparable] interface {
	// FindMove returns the move to play and performance metrics (if collected) from the search
	FindMove(ctx context.Context, state searcher.State[M]) (M, metrics.SearchMetric, error)
}

// Budget bounds the search of one move. Iterations takes precedence over Duration.
type Budget struct {
	Iterations int
	Duration   time.Duration
}

type MCTSAgent[M comparable] struct {
	mcts   *searcher.MCTS[M]
	budget Budget
}

func NewMCTSAgent[M comparable](budget Budget, options ...searcher.Option) (*MCTSAgent[M], error) {
	if budget.Iterations <= 0 && budget.Duration <= 0 {
		return nil, errors.Wrap(searcher.ErrInvalidConfig, "agent needs an iteration or duration budget")
	}
	m, err := searcher.New[M](options...)
	if err != nil {
		return nil, err
	}
	return &MCTSAgent[M]{mcts: m, budget: budget}, nil
}

func (a *MCTSAgent[M]) FindMove(ctx context.Context, state searcher.State[M]) (M, metrics.SearchMetric, error) {
	var (
		result searcher.Result[M]
		err    error
	)
	if a.budget.Iterations > 0 {
		result, err = a.mcts.RunWithIterations(ctx, state, a.budget.Iterations)
	} else {
		result, err = a.mcts.RunWithDuration(ctx, state, a.budget.Duration)
	}
	if err != nil {
		return *new(M), result.Metric, err
	}
	if !result.Ok {
		return *new(M), result.Metric, errors.Wrapf(ErrNoMove, "search stopped: %s", result.StopReason)
	}
	return result.Move, result.Metric, nil
}

// RandomAgent plays uniformly random legal moves.
type RandomAgent[M comparable] struct {
	rng searcher.Randomness
}

func NewRandomAgent[M comparable](rng searcher.Randomness) *RandomAgent[M] {
	return &RandomAgent[M]{rng: rng}
}

func (a *RandomAgent[M]) FindMove(ctx context.Context, state searcher.State[M]) (M, metrics.SearchMetric, error) {
	if state.IsTerminal() {
		return *new(M), metrics.SearchMetric{}, errors.Wrap(ErrNoMove, "game is over")
	}
	moves := state.LegalMoves()
	if len(moves) == 0 {
		return *new(M), metrics.SearchMetric{}, errors.Wrap(ErrNoMove, "empty move set")
	}
	i, err := a.rng.Next(0, len(moves))
	if err != nil {
		return *new(M), metrics.SearchMetric{}, err
	}
	return moves[i], metrics.SearchMetric{}, nil
}
