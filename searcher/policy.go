package searcher

import "math"

// TieBreak decides between children sharing the maximal UCB1 score.
type TieBreak int

const (
	// TieBreakRandom picks uniformly among the tied children with the worker's Randomness.
	TieBreakRandom TieBreak = iota
	// TieBreakFirst keeps the earliest created child. Selection then draws no randomness.
	TieBreakFirst
)

func (tb TieBreak) String() string {
	switch tb {
	case TieBreakRandom:
		return "random"
	case TieBreakFirst:
		return "first"
	}
	return "unknown"
}

type uct struct {
	numerator float64
}

// newUCT prepares the exploration term for a parent with N visits.
// A parent without visits yet (possible while another worker is still backing up)
// only has unvisited children, which never reach evaluate.
func newUCT(c float64, N float64) uct {
	if N < 1 {
		return uct{}
	}
	return uct{numerator: c * c * math.Log(N)}
}

// UCT = q/n + sqrt(c^2*ln(N)/n)
func (u uct) evaluate(q float64, n float64) float64 {
	if n == 0 {
		return math.Inf(1)
	}
	return q/n + math.Sqrt(u.numerator/n)
}
