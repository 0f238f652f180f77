package searcher

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNewTree(t *testing.T) {
	t.Run("root records the state", func(t *testing.T) {
		tree, err := newTree[int](mockState{player: "a", pile: 5})
		require.NoError(t, err)
		root := tree.Root()

		require.Equal(t, 1, tree.Size())
		require.Equal(t, "a", tree.Player(root))
		require.False(t, tree.Terminal(root))
		require.Empty(t, tree.Children(root))
		_, ok := tree.Parent(root)
		require.False(t, ok)
		require.True(t, tree.node(root).expandable())
	})

	t.Run("non-terminal state without moves", func(t *testing.T) {
		_, err := newTree[int](stuckState{played: true})
		require.ErrorIs(t, err, ErrEmptyMoveSet)
	})
}

func TestTreeExpand(t *testing.T) {
	t.Run("expands every move exactly once", func(t *testing.T) {
		state := mockState{player: "a", pile: 5}
		tree, err := newTree[int](state)
		require.NoError(t, err)
		rng := NewPCG(1)

		seen := map[int]bool{}
		for i := 0; i < 3; i++ {
			child, next, expanded, err := tree.expand(tree.Root(), state, rng)
			require.NoError(t, err)
			require.True(t, expanded)

			move := tree.Move(child)
			require.False(t, seen[move], "Move %d expanded twice", move)
			seen[move] = true
			require.Equal(t, mockState{player: "b", pile: 5 - move}, next)
			require.Equal(t, "b", tree.Player(child))

			parent, ok := tree.Parent(child)
			require.True(t, ok)
			require.Equal(t, tree.Root(), parent)
			got, ok := tree.Child(tree.Root(), move)
			require.True(t, ok)
			require.Equal(t, child, got)
		}

		_, _, expanded, err := tree.expand(tree.Root(), state, rng)
		require.NoError(t, err)
		require.False(t, expanded, "Fully expanded node should not expand")
		require.Len(t, tree.Children(tree.Root()), 3)
		require.Equal(t, 4, tree.Size())
	})

	t.Run("fully expanded node needs only a read lock", func(t *testing.T) {
		state := mockState{player: "a", pile: 5}
		tree, err := newTree[int](state)
		require.NoError(t, err)
		rng := NewPCG(1)
		for i := 0; i < 3; i++ {
			_, _, _, err := tree.expand(tree.Root(), state, rng)
			require.NoError(t, err)
		}

		root := tree.node(tree.Root())
		root.RLock()
		defer root.RUnlock()

		done := make(chan bool)
		go func() {
			_, _, expanded, _ := tree.expand(tree.Root(), state, rng)
			done <- expanded
		}()
		select {
		case expanded := <-done:
			require.False(t, expanded)
		case <-time.After(time.Second):
			t.Fatal("expand blocked on a fully expanded node")
		}
	})

	t.Run("terminal child", func(t *testing.T) {
		state := mockState{player: "a", pile: 1}
		tree, err := newTree[int](state)
		require.NoError(t, err)

		child, _, expanded, err := tree.expand(tree.Root(), state, NewPCG(1))
		require.NoError(t, err)
		require.True(t, expanded)
		require.True(t, tree.Terminal(child))
		require.False(t, tree.node(child).expandable())
	})

	t.Run("rejected move", func(t *testing.T) {
		state := rejectingState{mockState{player: "a", pile: 3}}
		tree, err := newTree[int](state)
		require.NoError(t, err)

		_, _, _, err = tree.expand(tree.Root(), state, NewPCG(1))
		require.ErrorIs(t, err, ErrInvalidMove)
		require.True(t, tree.node(tree.Root()).expandable(), "Failed expansion should leave the move untried")
	})

	t.Run("randomness failure", func(t *testing.T) {
		state := mockState{player: "a", pile: 3}
		tree, err := newTree[int](state)
		require.NoError(t, err)

		_, _, _, err = tree.expand(tree.Root(), state, brokenRandomness{})
		require.ErrorIs(t, err, ErrInvalidRange)
	})
}

func TestTreeConcurrentExpansion(t *testing.T) {
	// A wide root makes workers race for the same untried moves
	state := wideState{width: 3 * chunkSize}
	tree, err := newTree[int](state)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(seed uint64) {
			defer wg.Done()
			rng := NewPCG(seed)
			for {
				_, _, expanded, err := tree.expand(tree.Root(), state, rng)
				if err != nil || !expanded {
					return
				}
			}
		}(uint64(w))
	}
	wg.Wait()

	children := tree.Children(tree.Root())
	require.Len(t, children, state.width)
	require.Equal(t, state.width+1, tree.Size(), "Tree should span several chunks")

	moves := map[int]bool{}
	for _, child := range children {
		move := tree.Move(child)
		require.False(t, moves[move], "Move %d expanded twice", move)
		moves[move] = true
		require.True(t, tree.Terminal(child))
	}
}

func TestTreeWalk(t *testing.T) {
	state := mockState{player: "a", pile: 3}
	tree, err := newTree[int](state)
	require.NoError(t, err)
	rng := NewPCG(2)
	for {
		_, _, expanded, err := tree.expand(tree.Root(), state, rng)
		require.NoError(t, err)
		if !expanded {
			break
		}
	}

	depths := map[NodeID]int{}
	tree.Walk(func(id NodeID, depth int) bool {
		if parent, ok := tree.Parent(id); ok {
			_, visited := depths[parent]
			require.True(t, visited, "Parents are visited before children")
		}
		depths[id] = depth
		return true
	})
	require.Len(t, depths, 4)
	require.Equal(t, 0, depths[tree.Root()])

	count := 0
	tree.Walk(func(id NodeID, depth int) bool {
		count++
		return false
	})
	require.Equal(t, 1, count, "Returning false prunes the subtree")
}

// wideState has width moves, each ending the game.
type wideState struct {
	width int
	done  bool
}

func (w wideState) Player() string { return "a" }

func (w wideState) LegalMoves() []int {
	if w.done {
		return nil
	}
	moves := make([]int, w.width)
	for i := range moves {
		moves[i] = i
	}
	return moves
}

func (w wideState) Play(move int) (State[int], error) { return wideState{width: w.width, done: true}, nil }
func (w wideState) IsTerminal() bool                  { return w.done }
func (w wideState) Outcome() float64                  { return Draw }
