package searcher

import (
	"sync"
	"sync/atomic"

	"github.com/pkg/errors"
)

const (
	chunkBits = 10
	chunkSize = 1 << chunkBits
	chunkMask = chunkSize - 1
)

type chunk[M comparable] [chunkSize]node[M]

// Tree is the arena holding every node of one run. Nodes live in fixed-size chunks that
// are never moved, so a NodeID and the node it resolves to stay valid while other workers
// insert. Only growing the chunk directory takes the tree mutex; statistics are atomics
// and expansion locks a single node.
type Tree[M comparable] struct {
	mu     sync.Mutex
	chunks atomic.Pointer[[]*chunk[M]]
	size   atomic.Int32
	state  State[M]
}

// newTree creates the arena and its root for state.
func newTree[M comparable](state State[M]) (*Tree[M], error) {
	t := &Tree[M]{state: state}
	t.chunks.Store(&[]*chunk[M]{})
	if _, err := t.add(nilNode, *new(M), state); err != nil {
		return nil, err
	}
	return t, nil
}

func (t *Tree[M]) node(id NodeID) *node[M] {
	chunks := *t.chunks.Load()
	return &chunks[id>>chunkBits][id&chunkMask]
}

func (t *Tree[M]) alloc() NodeID {
	id := NodeID(t.size.Add(1) - 1)
	c := int(id >> chunkBits)
	if c < len(*t.chunks.Load()) {
		return id
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	old := *t.chunks.Load()
	if c < len(old) {
		return id
	}
	grown := make([]*chunk[M], len(old), c+1)
	copy(grown, old)
	for len(grown) <= c {
		grown = append(grown, new(chunk[M]))
	}
	t.chunks.Store(&grown)
	return id
}

// add allocates the node reached from parent by move, whose state is state.
func (t *Tree[M]) add(parent NodeID, move M, state State[M]) (NodeID, error) {
	terminal := state.IsTerminal()
	var untried []M
	if !terminal {
		moves := state.LegalMoves()
		if len(moves) == 0 {
			return nilNode, errors.Wrapf(ErrEmptyMoveSet, "player %q", state.Player())
		}
		untried = make([]M, len(moves))
		copy(untried, moves)
	}

	id := t.alloc()
	n := t.node(id)
	n.parent = parent
	n.move = move
	n.player = state.Player()
	n.terminal = terminal
	n.untried = untried
	n.children = make([]NodeID, 0, len(untried))
	n.index = make(map[M]NodeID, len(untried))
	return id, nil
}

// expand creates the child of id for one untried move drawn uniformly with rng.
// It returns expanded=false when every move already has a child; the node mutex makes
// each move expand exactly once across workers.
func (t *Tree[M]) expand(id NodeID, state State[M], rng Randomness) (child NodeID, next State[M], expanded bool, err error) {
	n := t.node(id)
	// untried only shrinks, so a node seen fully expanded stays that way
	if !n.expandable() {
		return nilNode, nil, false, nil
	}
	n.Lock()
	defer n.Unlock()

	if len(n.untried) == 0 {
		return nilNode, nil, false, nil
	}

	i, err := rng.Next(0, len(n.untried))
	if err != nil {
		return nilNode, nil, false, err
	}
	move := n.untried[i]
	next, err = state.Play(move)
	if err != nil {
		return nilNode, nil, false, errors.Wrapf(ErrInvalidMove, "expanding %v: %v", move, err)
	}
	child, err = t.add(id, move, next)
	if err != nil {
		return nilNode, nil, false, err
	}

	last := len(n.untried) - 1
	n.untried[i] = n.untried[last]
	n.untried = n.untried[:last]
	n.children = append(n.children, child)
	n.index[move] = child
	return child, next, true, nil
}

// Root returns the id of the root node.
func (t *Tree[M]) Root() NodeID { return 0 }

// Size returns the number of nodes in the tree.
func (t *Tree[M]) Size() int { return int(t.size.Load()) }

// State returns the root state the tree was built for.
func (t *Tree[M]) State() State[M] { return t.state }

func (t *Tree[M]) Visits(id NodeID) int64 { return t.node(id).Visits() }

// Value returns the accumulated value of id, from the perspective of its player to move.
func (t *Tree[M]) Value(id NodeID) float64 { return t.node(id).Value() }

func (t *Tree[M]) Move(id NodeID) M { return t.node(id).move }

func (t *Tree[M]) Player(id NodeID) string { return t.node(id).player }

func (t *Tree[M]) Terminal(id NodeID) bool { return t.node(id).terminal }

// Parent returns the parent of id, and false for the root.
func (t *Tree[M]) Parent(id NodeID) (NodeID, bool) {
	p := t.node(id).parent
	return p, p.isValid()
}

// Children returns the children of id in creation order.
func (t *Tree[M]) Children(id NodeID) []NodeID {
	return t.node(id).snapshot()
}

// Child returns the child of id reached by move.
func (t *Tree[M]) Child(id NodeID, move M) (NodeID, bool) {
	n := t.node(id)
	n.RLock()
	defer n.RUnlock()
	child, ok := n.index[move]
	return child, ok
}

// Walk visits every node reachable from the root, parents before children.
func (t *Tree[M]) Walk(visit func(id NodeID, depth int) bool) {
	type item struct {
		id    NodeID
		depth int
	}
	stack := []item{{t.Root(), 0}}
	for len(stack) > 0 {
		it := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if !visit(it.id, it.depth) {
			continue
		}
		children := t.Children(it.id)
		for i := len(children) - 1; i >= 0; i-- {
			stack = append(stack, item{children[i], it.depth + 1})
		}
	}
}
