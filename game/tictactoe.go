package game

import (
	"strings"

	"yamcts/searcher"

	"github.com/pkg/errors"
)

const (
	PlayerX = "X"
	PlayerO = "O"
)

var lines = [8][3]int{
	{0, 1, 2}, {3, 4, 5}, {6, 7, 8}, // Rows
	{0, 3, 6}, {1, 4, 7}, {2, 5, 8}, // Columns
	{0, 4, 8}, {2, 4, 6}, // Diagonals
}

// TicTacToe is a 3x3 board indexed row by row from 0 to 8. X moves first.
type TicTacToe struct {
	board  [9]string
	player string
	won    bool // The last move completed a line
	filled int
}

func NewTicTacToe() TicTacToe {
	return TicTacToe{player: PlayerX}
}

func (t TicTacToe) Player() string {
	return t.player
}

func (t TicTacToe) Opponent(player string) string {
	if player == PlayerX {
		return PlayerO
	}
	return PlayerX
}

func (t TicTacToe) LegalMoves() []int {
	if t.IsTerminal() {
		return nil
	}
	moves := make([]int, 0, len(t.board)-t.filled)
	for square, mark := range t.board {
		if mark == "" {
			moves = append(moves, square)
		}
	}
	return moves
}

func (t TicTacToe) Play(square int) (searcher.State[int], error) {
	if t.IsTerminal() {
		return nil, errors.Wrap(ErrIllegalMove, "tictactoe: game is over")
	}
	if square < 0 || square >= len(t.board) || t.board[square] != "" {
		return nil, errors.Wrapf(ErrIllegalMove, "tictactoe: square %d", square)
	}
	next := t // Arrays are copied by value
	next.board[square] = t.player
	next.filled++
	next.won = next.completes(square)
	next.player = t.Opponent(t.player)
	return next, nil
}

func (t TicTacToe) completes(square int) bool {
	mark := t.board[square]
	for _, line := range lines {
		if line[0] != square && line[1] != square && line[2] != square {
			continue
		}
		if t.board[line[0]] == mark && t.board[line[1]] == mark && t.board[line[2]] == mark {
			return true
		}
	}
	return false
}

func (t TicTacToe) IsTerminal() bool {
	return t.won || t.filled == len(t.board)
}

// Outcome is a loss for the player to move when the previous move completed a line.
func (t TicTacToe) Outcome() float64 {
	if t.won {
		return searcher.Loss
	}
	return searcher.Draw
}

func (t TicTacToe) String() string {
	var sb strings.Builder
	for row := 0; row < 3; row++ {
		for col := 0; col < 3; col++ {
			mark := t.board[row*3+col]
			if mark == "" {
				mark = "."
			}
			sb.WriteString(mark)
		}
		sb.WriteString("\n")
	}
	return sb.String()
}
