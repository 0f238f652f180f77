package searcher

import (
	"math"
	"sync"
	"sync/atomic"
)

// NodeID addresses a node inside its Tree. It stays valid for the lifetime of the tree,
// whatever other workers insert meanwhile.
type NodeID int32

const nilNode NodeID = -1

func (id NodeID) isValid() bool { return id >= 0 }

// node is one arena slot. Fields set at allocation (parent, move, player, terminal) are
// immutable once the node is published to its parent. The mutex guards the expansion
// state: untried, children and index.
type node[M comparable] struct {
	sync.RWMutex
	parent   NodeID
	move     M
	player   string
	terminal bool
	untried  []M
	children []NodeID
	index    map[M]NodeID

	visits atomic.Int64
	value  atomic.Uint64 // float64 bits
}

func (n *node[M]) Visits() int64 {
	return n.visits.Load()
}

func (n *node[M]) Value() float64 {
	return math.Float64frombits(n.value.Load())
}

func (n *node[M]) addValue(delta float64) {
	for {
		old := n.value.Load()
		updated := math.Float64bits(math.Float64frombits(old) + delta)
		if n.value.CompareAndSwap(old, updated) {
			return
		}
	}
}

// Backup records one visit and the reward of this node's player.
func (n *node[M]) Backup(reward func(string) float64) {
	n.visits.Add(1)
	n.addValue(reward(n.player))
}

// expandable reports whether some legal move has no child yet.
func (n *node[M]) expandable() bool {
	n.RLock()
	defer n.RUnlock()
	return len(n.untried) > 0
}

// snapshot returns the current children. Children are only appended, so the returned
// slice is never modified afterwards.
func (n *node[M]) snapshot() []NodeID {
	n.RLock()
	defer n.RUnlock()
	return n.children[:len(n.children):len(n.children)]
}

// score is the UCB1 value of child n seen from a parent whose player is to move.
// Unvisited children score +Inf.
func (n *node[M]) score(policy uct, parentPlayer string) float64 {
	visits := n.Visits()
	if visits == 0 {
		return math.Inf(1)
	}
	q := n.Value()
	if n.player != parentPlayer {
		q = -q
	}
	return policy.evaluate(q, float64(visits))
}
