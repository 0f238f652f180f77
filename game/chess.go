package game

import (
	"strconv"
	"strings"

	"yamcts/searcher"

	"github.com/notnil/chess"
	"github.com/pkg/errors"
)

const (
	// DefaultMaxPlies bounds random playouts; a game reaching it is scored a draw.
	DefaultMaxPlies  = 300
	fiftyMoveClock   = 100
	chessInvalidMove = "chess: move %q in %s"
)

// Chess wraps an immutable notnil/chess position. Moves are UCI strings such as "e2e4"
// or "e7e8q".
type Chess struct {
	position  *chess.Position
	halfMoves int // Plies since the last capture or pawn move
	plies     int
	maxPlies  int
}

// NewChess starts from the standard initial position.
func NewChess(maxPlies int) Chess {
	return Chess{position: chess.StartingPosition(), maxPlies: maxPlies}
}

// NewChessFromFEN starts from the position described by fen.
func NewChessFromFEN(fen string, maxPlies int) (Chess, error) {
	option, err := chess.FEN(fen)
	if err != nil {
		return Chess{}, errors.Wrapf(err, "chess: fen %q", fen)
	}
	position := chess.NewGame(option).Position()
	return Chess{position: position, halfMoves: halfMoveClock(position), maxPlies: maxPlies}, nil
}

// halfMoveClock reads the clock field of the position's FEN, which the package keeps
// unexported.
func halfMoveClock(position *chess.Position) int {
	fields := strings.Fields(position.String())
	if len(fields) < 5 {
		return 0
	}
	clock, err := strconv.Atoi(fields[4])
	if err != nil {
		return 0
	}
	return clock
}

func (c Chess) Position() *chess.Position {
	return c.position
}

func (c Chess) Player() string {
	return c.position.Turn().Name()
}

func (c Chess) Opponent(player string) string {
	if player == chess.White.Name() {
		return chess.Black.Name()
	}
	return chess.White.Name()
}

func (c Chess) LegalMoves() []string {
	if c.IsTerminal() {
		return nil
	}
	valid := c.position.ValidMoves()
	moves := make([]string, len(valid))
	for i, m := range valid {
		moves[i] = m.String()
	}
	return moves
}

func (c Chess) Play(move string) (searcher.State[string], error) {
	if c.IsTerminal() {
		return nil, errors.Wrapf(ErrIllegalMove, chessInvalidMove, move, "a finished game")
	}
	for _, m := range c.position.ValidMoves() {
		if m.String() != move {
			continue
		}
		halfMoves := c.halfMoves + 1
		if m.HasTag(chess.Capture) || c.position.Board().Piece(m.S1()).Type() == chess.Pawn {
			halfMoves = 0
		}
		return Chess{
			position:  c.position.Update(m),
			halfMoves: halfMoves,
			plies:     c.plies + 1,
			maxPlies:  c.maxPlies,
		}, nil
	}
	return nil, errors.Wrapf(ErrIllegalMove, chessInvalidMove, move, c.position.String())
}

func (c Chess) IsTerminal() bool {
	if c.maxPlies > 0 && c.plies >= c.maxPlies {
		return true
	}
	if c.halfMoves >= fiftyMoveClock {
		return true
	}
	return c.position.Status() != chess.NoMethod
}

// Outcome is a loss for a checkmated player to move. Stalemate, the fifty-move rule and
// the ply limit are draws.
func (c Chess) Outcome() float64 {
	if c.position.Status() == chess.Checkmate {
		return searcher.Loss
	}
	return searcher.Draw
}

func (c Chess) String() string {
	return c.position.Board().Draw()
}
