package searcher

import "github.com/pkg/errors"

var (
	// ErrInvalidMove is returned when a State rejects a move proposed by the searcher.
	ErrInvalidMove = errors.New("invalid move")
	// ErrInvalidRange is returned by a Randomness asked to draw from an empty range.
	ErrInvalidRange = errors.New("invalid range")
	// ErrEmptyMoveSet is returned when a non-terminal state has no legal moves.
	ErrEmptyMoveSet = errors.New("non-terminal state has no legal moves")
	// ErrInvalidConfig wraps every configuration problem reported by New.
	ErrInvalidConfig = errors.New("invalid configuration")
)

// StopReason tells why a run ended.
type StopReason int

const (
	StopNone        StopReason = iota
	StopCycles                 // Iteration budget consumed
	StopMovetime               // Duration budget elapsed
	StopInterrupt              // Context cancelled
	StopEmptyBudget            // Zero duration or iteration count requested
	StopTerminal               // Root state is already terminal
	StopError                  // A worker failed
)

func (sr StopReason) String() string {
	switch sr {
	case StopNone:
		return "None"
	case StopCycles:
		return "Cycles"
	case StopMovetime:
		return "Movetime"
	case StopInterrupt:
		return "Interrupt"
	case StopEmptyBudget:
		return "EmptyBudget"
	case StopTerminal:
		return "Terminal"
	case StopError:
		return "Error"
	}
	return "Unknown"
}
