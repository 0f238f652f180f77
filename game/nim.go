package game

import (
	"fmt"

	"yamcts/searcher"

	"github.com/pkg/errors"
)

const (
	DefaultNimTarget = 21
	maxNimTake       = 3
)

// Nim is the counting game: players alternately add 1 to 3 to a running total and the
// player who brings the total to the target loses.
type Nim struct {
	total  int
	target int
	player string
}

func NewNim(target int) (Nim, error) {
	if target < 1 {
		return Nim{}, errors.Errorf("nim target must be positive, got %d", target)
	}
	return Nim{target: target, player: PlayerOne}, nil
}

func (n Nim) Total() int  { return n.total }
func (n Nim) Target() int { return n.target }

func (n Nim) Player() string {
	return n.player
}

func (n Nim) Opponent(player string) string {
	return opponent(player)
}

func (n Nim) LegalMoves() []int {
	remaining := min(maxNimTake, n.target-n.total)
	moves := make([]int, 0, remaining)
	for take := 1; take <= remaining; take++ {
		moves = append(moves, take)
	}
	return moves
}

func (n Nim) Play(move int) (searcher.State[int], error) {
	if move < 1 || move > maxNimTake || n.total+move > n.target {
		return nil, errors.Wrapf(ErrIllegalMove, "nim: add %d to %d/%d", move, n.total, n.target)
	}
	return Nim{total: n.total + move, target: n.target, player: opponent(n.player)}, nil
}

func (n Nim) IsTerminal() bool {
	return n.total >= n.target
}

// Outcome is a win for the player to move: the opponent reached the target.
func (n Nim) Outcome() float64 {
	if !n.IsTerminal() {
		return searcher.Draw
	}
	return searcher.Win
}

func (n Nim) String() string {
	return fmt.Sprintf("%d/%d, %s to move", n.total, n.target, n.player)
}

// NimWinningMoves returns the moves from state that leave the opponent one more than a
// multiple of four away from the target, the known optimal strategy.
func NimWinningMoves(n Nim) []int {
	var winning []int
	for _, move := range n.LegalMoves() {
		if rest := n.target - n.total - move; rest > 0 && (rest-1)%(maxNimTake+1) == 0 {
			winning = append(winning, move)
		}
	}
	return winning
}
