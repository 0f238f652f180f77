package searcher

import (
	"math"

	"yamcts/experiments/metrics"

	"github.com/pkg/errors"
)

// worker runs search cycles against a shared tree. Each worker owns its randomness and
// path buffer; only the tree is shared.
type worker[M comparable] struct {
	tree     *Tree[M]
	rng      Randomness
	c        float64
	tieBreak TieBreak
	metrics  metrics.Collector
	path     []NodeID
}

func newWorker[M comparable](tree *Tree[M], rng Randomness, c float64, tieBreak TieBreak, collector metrics.Collector) *worker[M] {
	return &worker[M]{
		tree:     tree,
		rng:      rng,
		c:        c,
		tieBreak: tieBreak,
		metrics:  collector,
		path:     make([]NodeID, 0, 64),
	}
}

// simulate runs one select-expand-rollout-backup cycle.
func (w *worker[M]) simulate() error {
	w.path = w.path[:0]
	state, err := w.selectThenExpand()
	if err != nil {
		return err
	}
	player, outcome, err := w.rollout(state)
	if err != nil {
		return err
	}
	w.backup(rewarder(player, outcome))
	w.metrics.AddEpisode()
	return nil
}

// selectThenExpand descends from the root through fully expanded nodes and stops at the
// first terminal node or at the child it just expanded. The visited nodes are left in
// w.path and the state of the last one is returned.
func (w *worker[M]) selectThenExpand() (State[M], error) {
	id := w.tree.Root()
	state := w.tree.State()
	w.path = append(w.path, id)
	for {
		n := w.tree.node(id)
		if n.terminal {
			return state, nil
		}

		child, next, expanded, err := w.tree.expand(id, state, w.rng)
		if err != nil {
			return nil, err
		}
		if expanded {
			w.metrics.AddExpansion()
			w.path = append(w.path, child)
			return next, nil
		}

		child, err = w.selectChild(n)
		if err != nil {
			return nil, err
		}
		move := w.tree.node(child).move
		next, err = state.Play(move)
		if err != nil {
			return nil, errors.Wrapf(ErrInvalidMove, "selecting %v: %v", move, err)
		}
		w.path = append(w.path, child)
		id, state = child, next
	}
}

// selectChild returns the child of n with the highest UCB1 score for n's player.
func (w *worker[M]) selectChild(n *node[M]) (NodeID, error) {
	children := n.snapshot()
	if len(children) == 0 {
		return nilNode, errors.Wrapf(ErrEmptyMoveSet, "player %q", n.player)
	}

	policy := newUCT(w.c, float64(n.Visits()))
	best, bestScore, ties := nilNode, math.Inf(-1), 0
	for _, id := range children {
		score := w.tree.node(id).score(policy, n.player)
		switch {
		case !best.isValid() || score > bestScore:
			best, bestScore, ties = id, score, 1
		case score == bestScore && w.tieBreak == TieBreakRandom:
			// Reservoir sampling over the tied children
			ties++
			j, err := w.rng.Next(0, ties)
			if err != nil {
				return nilNode, err
			}
			if j == 0 {
				best = id
			}
		}
	}
	return best, nil
}

// rollout plays uniformly random moves until the game is over and returns the player to
// move at the terminal state with its outcome.
func (w *worker[M]) rollout(state State[M]) (string, float64, error) {
	depth := 0
	for !state.IsTerminal() {
		moves := state.LegalMoves()
		if len(moves) == 0 {
			return "", 0, errors.Wrapf(ErrEmptyMoveSet, "rollout depth %d, player %q", depth, state.Player())
		}
		i, err := w.rng.Next(0, len(moves))
		if err != nil {
			return "", 0, err
		}
		next, err := state.Play(moves[i])
		if err != nil {
			return "", 0, errors.Wrapf(ErrInvalidMove, "rollout %v: %v", moves[i], err)
		}
		state = next
		depth++
	}
	w.metrics.AddFullPlayout(depth)
	return state.Player(), state.Outcome(), nil
}

// backup walks the path root first so a child never has more visits than its parent.
func (w *worker[M]) backup(reward func(string) float64) {
	for _, id := range w.path {
		w.tree.node(id).Backup(reward)
	}
}
