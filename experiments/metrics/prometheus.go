package metrics

import (
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "yamcts"

// prometheusCollector mirrors search events into Prometheus metrics while keeping the
// per-run SearchMetric of the in-memory collector.
type prometheusCollector struct {
	Collector
	runs         prometheus.Counter
	episodes     prometheus.Counter
	expansions   prometheus.Counter
	playouts     prometheus.Counter
	rolloutDepth prometheus.Histogram
	runDuration  prometheus.Histogram
	workers      prometheus.Gauge
}

// NewPrometheusCollector registers the search metrics on reg.
func NewPrometheusCollector(reg prometheus.Registerer) (Collector, error) {
	p := &prometheusCollector{
		Collector: NewCollector(),
		runs: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "search",
			Name:      "runs_total",
			Help:      "Total number of search runs",
		}),
		episodes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "search",
			Name:      "cycles_total",
			Help:      "Total number of completed search cycles",
		}),
		expansions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "search",
			Name:      "expansions_total",
			Help:      "Total number of nodes added to search trees",
		}),
		playouts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "search",
			Name:      "playouts_total",
			Help:      "Total number of random playouts run to a terminal state",
		}),
		rolloutDepth: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "search",
			Name:      "rollout_depth",
			Help:      "Number of random moves played per playout",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 10),
		}),
		runDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "search",
			Name:      "run_duration_seconds",
			Help:      "Wall-clock duration of search runs",
			Buckets:   prometheus.DefBuckets,
		}),
		workers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "search",
			Name:      "workers",
			Help:      "Number of workers of the latest search run",
		}),
	}

	for _, c := range []prometheus.Collector{
		p.runs, p.episodes, p.expansions, p.playouts, p.rolloutDepth, p.runDuration, p.workers,
	} {
		if err := reg.Register(c); err != nil {
			return nil, errors.Wrap(err, "register search metrics")
		}
	}
	return p, nil
}

func (p *prometheusCollector) Start(runID string, workers int) {
	p.Collector.Start(runID, workers)
	p.runs.Inc()
	p.workers.Set(float64(workers))
}

func (p *prometheusCollector) AddEpisode() {
	p.Collector.AddEpisode()
	p.episodes.Inc()
}

func (p *prometheusCollector) AddExpansion() {
	p.Collector.AddExpansion()
	p.expansions.Inc()
}

func (p *prometheusCollector) AddFullPlayout(depth int) {
	p.Collector.AddFullPlayout(depth)
	p.playouts.Inc()
	p.rolloutDepth.Observe(float64(depth))
}

func (p *prometheusCollector) Complete() SearchMetric {
	metric := p.Collector.Complete()
	p.runDuration.Observe(metric.Duration.Seconds())
	return metric
}
