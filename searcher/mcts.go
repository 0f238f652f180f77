package searcher

import (
	"context"
	"fmt"
	"math"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"yamcts/experiments/metrics"
	"yamcts/utils"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

const tracerName = "yamcts/searcher"

type config struct {
	workers    int
	c          float64
	randomness RandomnessFactory
	tieBreak   TieBreak
	metrics    metrics.Collector
	logger     zerolog.Logger
	tracer     trace.Tracer
	observer   any
}

type Option func(cfg *config)

func WithExplorationConstant(c float64) Option {
	return func(cfg *config) {
		cfg.c = c
	}
}

func WithWorkers(workers int) Option {
	return func(cfg *config) {
		cfg.workers = workers
	}
}

// WithRandomness sets the factory creating each worker's Randomness at the start of a run.
func WithRandomness(factory RandomnessFactory) Option {
	return func(cfg *config) {
		cfg.randomness = factory
	}
}

func WithTieBreak(tieBreak TieBreak) Option {
	return func(cfg *config) {
		cfg.tieBreak = tieBreak
	}
}

func WithMetrics(collector metrics.Collector) Option {
	return func(cfg *config) {
		cfg.metrics = collector
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(cfg *config) {
		cfg.logger = logger
	}
}

func WithTracer(tracer trace.Tracer) Option {
	return func(cfg *config) {
		cfg.tracer = tracer
	}
}

// WithTreeObserver registers a hook receiving the tree once the workers of a run have
// stopped, before the tree is discarded. The move type must match the one given to New.
func WithTreeObserver[M comparable](observe func(*Tree[M])) Option {
	return func(cfg *config) {
		cfg.observer = observe
	}
}

// MCTS searches a fresh tree on every run. Runs on the same MCTS are serialised.
type MCTS[M comparable] struct {
	mu sync.Mutex
	config
	observe func(*Tree[M])
}

// ChildStat summarises one root child. Value is the mean outcome from the perspective of
// the player to move at the root.
type ChildStat[M comparable] struct {
	Move   M
	Visits int64
	Value  float64
}

type Result[M comparable] struct {
	Move       M    // Most visited root child
	Ok         bool // False when no move could be recommended
	Children   []ChildStat[M]
	Cycles     int64
	StopReason StopReason
	Metric     metrics.SearchMetric
}

func New[M comparable](options ...Option) (*MCTS[M], error) {
	cfg := config{ // Default values
		workers:    runtime.NumCPU(),
		c:          DefaultExplorationConstant,
		randomness: NewEntropyFactory(),
		tieBreak:   TieBreakRandom,
		metrics:    metrics.NewDummyCollector(),
		logger:     log.Logger,
		tracer:     otel.Tracer(tracerName),
	}
	for _, option := range options {
		option(&cfg)
	}

	var errs *multierror.Error
	if cfg.workers < 1 {
		errs = multierror.Append(errs, errors.Wrapf(ErrInvalidConfig, "workers must be positive, got %d", cfg.workers))
	}
	if math.IsNaN(cfg.c) || math.IsInf(cfg.c, 0) || cfg.c < 0 {
		errs = multierror.Append(errs, errors.Wrapf(ErrInvalidConfig, "exploration constant must be finite and non-negative, got %v", cfg.c))
	}
	if cfg.randomness == nil {
		errs = multierror.Append(errs, errors.Wrap(ErrInvalidConfig, "randomness factory is nil"))
	}
	if cfg.tieBreak != TieBreakRandom && cfg.tieBreak != TieBreakFirst {
		errs = multierror.Append(errs, errors.Wrapf(ErrInvalidConfig, "unknown tie break %d", cfg.tieBreak))
	}
	if cfg.metrics == nil {
		errs = multierror.Append(errs, errors.Wrap(ErrInvalidConfig, "metrics collector is nil"))
	}
	if cfg.tracer == nil {
		errs = multierror.Append(errs, errors.Wrap(ErrInvalidConfig, "tracer is nil"))
	}
	var observe func(*Tree[M])
	if cfg.observer != nil {
		var ok bool
		if observe, ok = cfg.observer.(func(*Tree[M])); !ok {
			errs = multierror.Append(errs, errors.Wrapf(ErrInvalidConfig, "tree observer %T does not match move type", cfg.observer))
		}
	}
	if err := errs.ErrorOrNil(); err != nil {
		return nil, err
	}
	return &MCTS[M]{config: cfg, observe: observe}, nil
}

// RunWithDuration searches state until d has elapsed, checked between cycles.
// A non-positive duration yields an empty result.
func (m *MCTS[M]) RunWithDuration(ctx context.Context, state State[M], d time.Duration) (Result[M], error) {
	return m.run(ctx, state, budget{duration: d})
}

// RunWithIterations searches state for exactly n cycles. A non-positive count yields an
// empty result.
func (m *MCTS[M]) RunWithIterations(ctx context.Context, state State[M], n int) (Result[M], error) {
	return m.run(ctx, state, budget{cycles: int64(n)})
}

type budget struct {
	cycles   int64
	duration time.Duration
}

func (b budget) timed() bool { return b.duration > 0 }

func (b budget) empty() bool { return b.cycles <= 0 && b.duration <= 0 }

func (m *MCTS[M]) run(ctx context.Context, state State[M], b budget) (Result[M], error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	runID := uuid.NewString()
	logger := m.logger.With().Str("run_id", runID).Logger()
	ctx, span := m.tracer.Start(ctx, "mcts.run", trace.WithAttributes(
		attribute.String("run_id", runID),
		attribute.Int("workers", m.workers),
		attribute.Int64("budget.cycles", b.cycles),
		attribute.Int64("budget.duration_ms", b.duration.Milliseconds()),
	))
	defer span.End()

	m.metrics.Start(runID, m.workers)
	logger.Debug().Int("workers", m.workers).Int64("cycles", b.cycles).Dur("duration", b.duration).Msg("search started")

	if b.empty() {
		return m.finish(span, logger, Result[M]{StopReason: StopEmptyBudget}), nil
	}
	if state.IsTerminal() {
		return m.finish(span, logger, Result[M]{StopReason: StopTerminal}), nil
	}

	tree, err := newTree(state)
	if err != nil {
		return m.fail(span, logger, Result[M]{}, err)
	}

	var remaining, cycles atomic.Int64
	remaining.Store(b.cycles)
	deadline := time.Now().Add(b.duration)

	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < m.workers; i++ {
		w := newWorker(tree, m.randomness(i), m.c, m.tieBreak, m.metrics)
		g.Go(func() error {
			for {
				if gctx.Err() != nil {
					return nil
				}
				if b.timed() {
					if !time.Now().Before(deadline) {
						return nil
					}
				} else if remaining.Add(-1) < 0 {
					return nil
				}
				if err := w.simulate(); err != nil {
					return err
				}
				cycles.Add(1)
			}
		})
	}
	err = g.Wait()

	result := m.collect(tree)
	result.Cycles = cycles.Load()
	switch {
	case err != nil:
		return m.fail(span, logger, result, err)
	case !b.timed() && result.Cycles == b.cycles:
		result.StopReason = StopCycles
	case ctx.Err() != nil:
		result.StopReason = StopInterrupt
	case b.timed():
		result.StopReason = StopMovetime
	default:
		result.StopReason = StopCycles
	}

	if m.observe != nil {
		m.observe(tree)
	}
	span.SetAttributes(attribute.Int("tree.size", tree.Size()))
	return m.finish(span, logger, result), nil
}

// collect reads the root children once the workers have stopped.
func (m *MCTS[M]) collect(tree *Tree[M]) Result[M] {
	root := tree.Root()
	player := tree.Player(root)
	children := tree.Children(root)

	result := Result[M]{Children: make([]ChildStat[M], 0, len(children))}
	for _, id := range children {
		stat := ChildStat[M]{Move: tree.Move(id), Visits: tree.Visits(id)}
		if stat.Visits > 0 {
			stat.Value = tree.Value(id) / float64(stat.Visits)
			if tree.Player(id) != player {
				stat.Value = -stat.Value
			}
		}
		result.Children = append(result.Children, stat)
	}

	best := utils.ArgMax(result.Children, func(stat ChildStat[M]) int64 { return stat.Visits })
	if best >= 0 && result.Children[best].Visits > 0 {
		result.Move = result.Children[best].Move
		result.Ok = true
	}
	return result
}

func (m *MCTS[M]) finish(span trace.Span, logger zerolog.Logger, result Result[M]) Result[M] {
	result.Metric = m.metrics.Complete()
	span.SetAttributes(
		attribute.Int64("cycles", result.Cycles),
		attribute.String("stop_reason", result.StopReason.String()),
		attribute.Bool("ok", result.Ok),
	)
	event := logger.Debug().
		Int64("cycles", result.Cycles).
		Stringer("stop_reason", result.StopReason).
		Bool("ok", result.Ok)
	if result.Ok {
		event = event.Str("best_move", fmt.Sprint(result.Move))
	}
	event.Msg("search finished")
	return result
}

func (m *MCTS[M]) fail(span trace.Span, logger zerolog.Logger, result Result[M], err error) (Result[M], error) {
	result.StopReason = StopError
	result.Move, result.Ok = *new(M), false
	result.Metric = m.metrics.Complete()
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	logger.Error().Err(err).Int64("cycles", result.Cycles).Msg("search failed")
	return result, err
}
