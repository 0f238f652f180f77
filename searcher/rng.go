package searcher

import (
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/exp/rand"
)

// Randomness draws uniform integers. Every worker owns its instance, so implementations
// need no synchronisation.
type Randomness interface {
	// Next returns an integer in [lower, upper), or ErrInvalidRange when upper <= lower.
	Next(lower, upper int) (int, error)
}

// RandomnessFactory creates the Randomness of one worker. It is called once per worker at
// the start of every run, worker ranging over [0, workers).
type RandomnessFactory func(worker int) Randomness

type pcg struct {
	rand *rand.Rand
}

// NewPCG returns a Randomness backed by a PCG generator with the given seed.
func NewPCG(seed uint64) Randomness {
	return &pcg{rand: rand.New(rand.NewSource(seed))}
}

func (p *pcg) Next(lower, upper int) (int, error) {
	if upper <= lower {
		return 0, errors.Wrapf(ErrInvalidRange, "[%d, %d)", lower, upper)
	}
	return lower + p.rand.Intn(upper-lower), nil
}

// NewSeededFactory gives worker i a PCG seeded with seed+i. Runs are reproducible for a
// single worker.
func NewSeededFactory(seed uint64) RandomnessFactory {
	return func(worker int) Randomness {
		return NewPCG(seed + uint64(worker))
	}
}

var entropyCounter atomic.Uint64

// NewEntropyFactory seeds every worker from the clock and a process-wide counter, so two
// instances never share a seed.
func NewEntropyFactory() RandomnessFactory {
	return func(worker int) Randomness {
		seed := uint64(time.Now().UnixNano()) ^ (entropyCounter.Add(1) << 32) ^ uint64(worker)
		return NewPCG(seed)
	}
}
