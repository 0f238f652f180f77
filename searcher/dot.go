package searcher

import (
	"fmt"
	"strconv"

	"github.com/awalterschulze/gographviz"
	"github.com/pkg/errors"
)

const graphName = "mcts"

// Dot renders the tree down to maxDepth (negative for the whole tree) in Graphviz DOT.
// Nodes are labelled with their move, player to move, visits and mean value.
func (t *Tree[M]) Dot(maxDepth int) (string, error) {
	graph := gographviz.NewGraph()
	if err := graph.SetName(graphName); err != nil {
		return "", errors.Wrap(err, "dot")
	}
	if err := graph.SetDir(true); err != nil {
		return "", errors.Wrap(err, "dot")
	}

	var err error
	t.Walk(func(id NodeID, depth int) bool {
		if err != nil {
			return false
		}
		if err = graph.AddNode(graphName, dotName(id), map[string]string{
			"label": strconv.Quote(t.dotLabel(id)),
			"shape": "box",
		}); err != nil {
			return false
		}
		if parent, ok := t.Parent(id); ok {
			if err = graph.AddEdge(dotName(parent), dotName(id), true, nil); err != nil {
				return false
			}
		}
		return maxDepth < 0 || depth < maxDepth
	})
	if err != nil {
		return "", errors.Wrap(err, "dot")
	}
	return graph.String(), nil
}

func dotName(id NodeID) string {
	return "n" + strconv.Itoa(int(id))
}

func (t *Tree[M]) dotLabel(id NodeID) string {
	visits := t.Visits(id)
	mean := 0.0
	if visits > 0 {
		mean = t.Value(id) / float64(visits)
	}
	move := "root"
	if _, ok := t.Parent(id); ok {
		move = fmt.Sprint(t.Move(id))
	}
	label := fmt.Sprintf("%s\nto move: %s\nn=%d q=%.3f", move, t.Player(id), visits, mean)
	if t.Terminal(id) {
		label += "\nterminal"
	}
	return label
}
