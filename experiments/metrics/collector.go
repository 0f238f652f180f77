package metrics

import (
	"sync/atomic"
	"time"
)

type SearchMetric struct {
	RunID           string
	Workers         int
	Duration        time.Duration
	Episodes        int // Completed select-expand-simulate-backup cycles
	Expansions      int
	FullPlayouts    int
	MaxRolloutDepth int
}

type MoveMetric struct {
	Step   int
	Player string
	Move   string
	SearchMetric
}

type GameMetric struct {
	StartingPlayer string
	Winner         string // "" for a draw or an unfinished game
	StartTime      time.Time
	EndTime        time.Time
	Duration       time.Duration
	TotalMoves     int
}

// Collector receives search events from every worker of a run, so implementations must be
// safe for concurrent use.
type Collector interface {
	Start(runID string, workers int)
	AddEpisode()
	AddExpansion()
	AddFullPlayout(depth int)
	Complete() SearchMetric
}

type collector struct {
	runID        string
	workers      int
	startTime    time.Time
	episodes     atomic.Int64
	expansions   atomic.Int64
	fullPlayouts atomic.Int64
	maxDepth     atomic.Int64
}

func NewCollector() Collector {
	return &collector{}
}

func (m *collector) Start(runID string, workers int) {
	m.runID = runID
	m.workers = workers
	m.startTime = time.Now()
	m.episodes.Store(0)
	m.expansions.Store(0)
	m.fullPlayouts.Store(0)
	m.maxDepth.Store(0)
}

func (m *collector) AddEpisode() {
	m.episodes.Add(1)
}

func (m *collector) AddExpansion() {
	m.expansions.Add(1)
}

func (m *collector) AddFullPlayout(depth int) {
	m.fullPlayouts.Add(1)
	d := int64(depth)
	for {
		current := m.maxDepth.Load()
		if d <= current || m.maxDepth.CompareAndSwap(current, d) {
			return
		}
	}
}

func (m *collector) Complete() SearchMetric {
	return SearchMetric{
		RunID:           m.runID,
		Workers:         m.workers,
		Duration:        time.Since(m.startTime),
		Episodes:        int(m.episodes.Load()),
		Expansions:      int(m.expansions.Load()),
		FullPlayouts:    int(m.fullPlayouts.Load()),
		MaxRolloutDepth: int(m.maxDepth.Load()),
	}
}

type dummyCollector struct{}

func NewDummyCollector() Collector {
	return &dummyCollector{}
}

func (m *dummyCollector) Start(runID string, workers int) {}
func (m *dummyCollector) AddEpisode()                     {}
func (m *dummyCollector) AddExpansion()                   {}
func (m *dummyCollector) AddFullPlayout(depth int)        {}
func (m *dummyCollector) Complete() SearchMetric          { return SearchMetric{} }
