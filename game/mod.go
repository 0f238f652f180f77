package game

import (
	"yamcts/searcher"

	"github.com/pkg/errors"
)

// ErrIllegalMove is returned by Play for a move outside the legal move set.
var ErrIllegalMove = errors.New("illegal move")

const (
	PlayerOne = "one"
	PlayerTwo = "two"
)

// Game is any decision process playable by the engine. States are immutable: operations
// always return a new value.
type Game[M comparable] interface {
	searcher.State[M]
	// Opponent returns the other player of a two-player game.
	Opponent(player string) string
	String() string
}

func opponent(player string) string {
	if player == PlayerOne {
		return PlayerTwo
	}
	return PlayerOne
}

// Winner returns the player who won a terminal game, or "" for a draw or an unfinished game.
func Winner[M comparable](g Game[M]) string {
	if !g.IsTerminal() {
		return ""
	}
	switch outcome := g.Outcome(); {
	case outcome > 0:
		return g.Player()
	case outcome < 0:
		return g.Opponent(g.Player())
	}
	return ""
}
