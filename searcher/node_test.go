package searcher

import (
	"math"
	"sync"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

// mockState is a take-away game: players remove 1 to 3 from a pile and the player who
// takes the last item wins.
type mockState struct {
	player string
	pile   int
}

func (m mockState) Player() string {
	return m.player
}

func (m mockState) LegalMoves() []int {
	moves := []int{}
	for take := 1; take <= 3 && take <= m.pile; take++ {
		moves = append(moves, take)
	}
	return moves
}

func (m mockState) Play(move int) (State[int], error) {
	if move < 1 || move > 3 || move > m.pile {
		return nil, errors.Errorf("cannot take %d from %d", move, m.pile)
	}
	next := "a"
	if m.player == "a" {
		next = "b"
	}
	return mockState{player: next, pile: m.pile - move}, nil
}

func (m mockState) IsTerminal() bool {
	return m.pile == 0
}

func (m mockState) Outcome() float64 {
	return Loss
}

// rejectingState lists moves it then refuses to play.
type rejectingState struct{ mockState }

func (r rejectingState) Play(move int) (State[int], error) {
	return nil, errors.New("rejected")
}

// stuckState is non-terminal but has no legal moves after the first move.
type stuckState struct {
	played bool
}

func (s stuckState) Player() string { return "a" }

func (s stuckState) LegalMoves() []int {
	if s.played {
		return nil
	}
	return []int{1}
}

func (s stuckState) Play(move int) (State[int], error) { return stuckState{played: true}, nil }
func (s stuckState) IsTerminal() bool                  { return false }
func (s stuckState) Outcome() float64                  { return Draw }

// brokenRandomness always fails.
type brokenRandomness struct{}

func (brokenRandomness) Next(lower, upper int) (int, error) {
	return 0, errors.Wrap(ErrInvalidRange, "broken")
}

func TestNodeBackup(t *testing.T) {
	var n node[int]
	n.player = "a"

	n.Backup(rewarder("a", Win))
	n.Backup(rewarder("b", Win))
	n.Backup(rewarder("b", Loss))

	require.EqualValues(t, 3, n.Visits())
	require.InDelta(t, 1.0, n.Value(), 1e-9, "Should add +1, -1, +1 for player a")
}

func TestNodeBackupConcurrent(t *testing.T) {
	var n node[int]
	n.player = "a"

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 1000; j++ {
				n.Backup(rewarder("a", 0.5))
			}
		}()
	}
	wg.Wait()

	require.EqualValues(t, 8000, n.Visits())
	require.InDelta(t, 4000.0, n.Value(), 1e-9)
}

func TestNodeScore(t *testing.T) {
	policy := newUCT(DefaultExplorationConstant, 10)

	t.Run("unvisited child", func(t *testing.T) {
		var n node[int]
		require.True(t, math.IsInf(n.score(policy, "a"), 1))
	})

	t.Run("value is negated for the opponent's node", func(t *testing.T) {
		var n node[int]
		n.player = "b"
		n.Backup(rewarder("b", Loss)) // A loss for b is a win for a

		expected := 1.0 + math.Sqrt(2*math.Log(10))
		require.InDelta(t, expected, n.score(policy, "a"), 1e-9)
	})

	t.Run("value is kept when the same player moves again", func(t *testing.T) {
		var n node[int]
		n.player = "a"
		n.Backup(rewarder("a", Loss))

		expected := -1.0 + math.Sqrt(2*math.Log(10))
		require.InDelta(t, expected, n.score(policy, "a"), 1e-9)
	})
}

func TestRewarder(t *testing.T) {
	reward := rewarder("a", 0.25)
	require.Equal(t, 0.25, reward("a"))
	require.Equal(t, -0.25, reward("b"))
}
