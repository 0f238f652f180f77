package game

import (
	"context"
	"testing"

	"yamcts/searcher"

	"github.com/stretchr/testify/require"
)

// negamax solves nim exhaustively and returns the value for the player to move.
func negamax(n Nim, memo map[int]float64) float64 {
	if n.IsTerminal() {
		return n.Outcome()
	}
	if v, ok := memo[n.total]; ok {
		return v
	}
	best := searcher.Loss
	for _, move := range n.LegalMoves() {
		next, _ := n.Play(move)
		best = max(best, -negamax(next.(Nim), memo))
	}
	memo[n.total] = best
	return best
}

func TestNimRules(t *testing.T) {
	t.Run("rejects invalid target", func(t *testing.T) {
		_, err := NewNim(0)
		require.Error(t, err)
	})

	t.Run("legal moves shrink near the target", func(t *testing.T) {
		n, err := NewNim(5)
		require.NoError(t, err)
		require.Equal(t, []int{1, 2, 3}, n.LegalMoves())

		next, err := n.Play(3)
		require.NoError(t, err)
		require.Equal(t, []int{1, 2}, next.LegalMoves())
		require.Equal(t, PlayerTwo, next.Player())
	})

	t.Run("rejects illegal moves", func(t *testing.T) {
		n, _ := NewNim(2)
		for _, move := range []int{0, 3, 4, -1} {
			_, err := n.Play(move)
			require.ErrorIs(t, err, ErrIllegalMove, "move %d", move)
		}
	})

	t.Run("reaching the target loses", func(t *testing.T) {
		n, _ := NewNim(3)
		next, err := n.Play(3)
		require.NoError(t, err)
		require.True(t, next.IsTerminal())
		require.Equal(t, searcher.Win, next.Outcome())
		require.Equal(t, PlayerTwo, Winner[int](next.(Nim)))
		require.Empty(t, next.LegalMoves())
	})

	t.Run("forcing the opponent onto the target", func(t *testing.T) {
		n := Nim{total: 17, target: DefaultNimTarget, player: PlayerOne}
		require.Equal(t, []int{3}, NimWinningMoves(n))

		next, err := n.Play(3)
		require.NoError(t, err)
		require.Equal(t, []int{1}, next.LegalMoves())
		over, err := next.Play(1)
		require.NoError(t, err)
		require.Equal(t, PlayerOne, Winner[int](over.(Nim)))
	})

	t.Run("no winning move one short of the target", func(t *testing.T) {
		n := Nim{total: 20, target: DefaultNimTarget, player: PlayerOne}
		require.Empty(t, NimWinningMoves(n))
	})

	t.Run("play is idempotent", func(t *testing.T) {
		n, _ := NewNim(DefaultNimTarget)
		a, _ := n.Play(2)
		b, _ := n.Play(2)
		require.Equal(t, a, b)
		require.Equal(t, 0, n.Total(), "Play must not mutate the receiver")
	})
}

func TestNimWinningMovesMatchNegamax(t *testing.T) {
	memo := map[int]float64{}
	for total := 0; total < DefaultNimTarget; total++ {
		n := Nim{total: total, target: DefaultNimTarget, player: PlayerOne}
		for _, move := range NimWinningMoves(n) {
			next, err := n.Play(move)
			require.NoError(t, err)
			require.Equal(t, searcher.Loss, negamax(next.(Nim), memo), "total %d move %d", total, move)
		}
		if negamax(n, memo) == searcher.Win {
			require.NotEmpty(t, NimWinningMoves(n), "total %d", total)
		}
	}
}

func TestMCTSSolvesNim(t *testing.T) {
	memo := map[int]float64{}
	const seeds = 5

	// Positions with a unique winning move
	for _, total := range []int{11, 14, 17, 19} {
		n := Nim{total: total, target: DefaultNimTarget, player: PlayerOne}
		require.Equal(t, searcher.Win, negamax(n, memo))
		winning := NimWinningMoves(n)
		require.Len(t, winning, 1)

		agree := 0
		for seed := uint64(1); seed <= seeds; seed++ {
			m, err := searcher.New[int](
				searcher.WithWorkers(1),
				searcher.WithRandomness(searcher.NewSeededFactory(seed)),
			)
			require.NoError(t, err)
			result, err := m.RunWithIterations(context.Background(), n, 10000)
			require.NoError(t, err)
			require.True(t, result.Ok)
			if result.Move == winning[0] {
				agree++
			}
		}
		require.Greater(t, agree, seeds/2, "total %d: expected move %d", total, winning[0])
	}
}
