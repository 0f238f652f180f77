package engine

import (
	"context"
	"fmt"
	"time"

	"yamcts/agent"
	"yamcts/experiments/metrics"
	"yamcts/game"
	"yamcts/utils"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var _ Engine = (*LocalEngine[int])(nil)

// LocalEngine alternates in-process agents on one game.
type LocalEngine[M comparable] struct {
	state    game.Game[M]
	agents   map[string]agent.Agent[M]
	maxMoves int
	logger   zerolog.Logger
	onMove   func(step int, player string, move M, state game.Game[M])
}

type Option[M comparable] func(e *LocalEngine[M])

func WithMaxMoves[M comparable](maxMoves int) Option[M] {
	return func(e *LocalEngine[M]) {
		if maxMoves > 0 {
			e.maxMoves = maxMoves
		}
	}
}

func WithLogger[M comparable](logger zerolog.Logger) Option[M] {
	return func(e *LocalEngine[M]) {
		e.logger = logger
	}
}

// WithMoveHook is called after every played move with the resulting state.
func WithMoveHook[M comparable](hook func(step int, player string, move M, state game.Game[M])) Option[M] {
	return func(e *LocalEngine[M]) {
		e.onMove = hook
	}
}

func NewLocalEngine[M comparable](state game.Game[M], agents map[string]agent.Agent[M], options ...Option[M]) (*LocalEngine[M], error) {
	for _, player := range []string{state.Player(), state.Opponent(state.Player())} {
		if agents[player] == nil {
			return nil, errors.Errorf("no agent for player %q", player)
		}
	}
	e := &LocalEngine[M]{
		state:    state,
		agents:   agents,
		maxMoves: MaxMoves,
		logger:   log.Logger,
	}
	for _, option := range options {
		option(e)
	}
	return e, nil
}

// Run executes the game loop until the game is over or the move limit is reached.
// Every move returned by an agent is checked against the legal moves before it is played.
func (e *LocalEngine[M]) Run(ctx context.Context) (string, metrics.GameMetric, []metrics.MoveMetric, error) {
	gameMetric := metrics.GameMetric{
		StartingPlayer: e.state.Player(),
		StartTime:      time.Now(),
	}
	e.logger.Info().Msgf("player %s is starting", e.state.Player())

	var moveMetrics []metrics.MoveMetric
	state := e.state
	step := 0
	for ; !state.IsTerminal() && step < e.maxMoves; step++ {
		if err := ctx.Err(); err != nil {
			return "", gameMetric, moveMetrics, err
		}

		player := state.Player()
		move, searchMetric, err := e.agents[player].FindMove(ctx, state)
		if err != nil {
			return "", gameMetric, moveMetrics, errors.Wrapf(err, "player %s at step %d", player, step)
		}
		if utils.FindIndex(state.LegalMoves(), move) < 0 {
			return "", gameMetric, moveMetrics, errors.Wrapf(game.ErrIllegalMove, "player %s played %v at step %d", player, move, step)
		}

		next, err := state.Play(move)
		if err != nil {
			return "", gameMetric, moveMetrics, errors.Wrapf(err, "player %s at step %d", player, step)
		}
		nextGame, ok := next.(game.Game[M])
		if !ok {
			return "", gameMetric, moveMetrics, errors.Errorf("state %T does not implement game.Game", next)
		}

		moveMetrics = append(moveMetrics, metrics.MoveMetric{
			Step:         step,
			Player:       player,
			Move:         fmt.Sprint(move),
			SearchMetric: searchMetric,
		})
		e.logger.Debug().Int("step", step).Str("player", player).Str("move", fmt.Sprint(move)).Msg("move played")
		if e.onMove != nil {
			e.onMove(step, player, move, nextGame)
		}
		state = nextGame
	}

	winner := game.Winner(state)
	gameMetric.EndTime = time.Now()
	gameMetric.Duration = gameMetric.EndTime.Sub(gameMetric.StartTime)
	gameMetric.TotalMoves = step
	gameMetric.Winner = winner

	if state.IsTerminal() {
		e.logger.Info().Msgf("game over after %d moves, winner %q", step, winner)
	} else {
		e.logger.Info().Msgf("stopped after %d moves (no winner yet)", step)
	}
	return winner, gameMetric, moveMetrics, nil
}
