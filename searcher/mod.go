package searcher

import "math"

// State is a decision process as seen by the searcher. Implementations must be immutable:
// Play returns a new State and leaves the receiver untouched, so a State can be read by
// several workers while each of them derives its own successors.
type State[M comparable] interface {
	// Player returns the player about to move.
	Player() string
	// LegalMoves returns the moves playable from this state. The order must be deterministic.
	LegalMoves() []M
	// Play returns the state reached by playing move. A non-nil error means the move was
	// rejected.
	Play(move M) (State[M], error)
	IsTerminal() bool
	// Outcome scores a terminal state for the player about to move, in [Loss, Win].
	Outcome() float64
}

// Hyperparameters for MCTS

// DefaultExplorationConstant is the theoretical UCB1 constant for rewards in a unit range.
var DefaultExplorationConstant = math.Sqrt2

const Win = 1.0   // Outcome of a won game
const Draw = 0.0  // Outcome of a drawn game
const Loss = -Win // Outcome of a lost game (negated from the opponent's perspective)

// rewarder orients a terminal outcome, scored for player, towards any other player.
// Two-player zero-sum: the opponent receives the negated outcome.
func rewarder(player string, outcome float64) func(string) float64 {
	return func(p string) float64 {
		if p == player {
			return outcome
		}
		return -outcome
	}
}
