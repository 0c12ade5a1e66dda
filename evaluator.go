package sortnet

import (
	"context"
	"math/bits"
	"sync/atomic"

	"github.com/sourcegraph/conc/pool"

	"nickandperla.net/sortnet/network"
)

// Evaluator scores networks against a test set. It never modifies the
// networks or the test vectors it is given: every vector is sorted in a
// private scratch buffer.
type Evaluator struct {
	Config *EvaluatorConfig

	evaluations atomic.Uint64
}

func NewEvaluator(ec *EvaluatorConfig) *Evaluator {
	if ec == nil {
		ec = &EvaluatorConfig{Workers: 1}
	}
	return &Evaluator{Config: ec}
}

// FitnessOf applies net to a copy of every vector and counts sorted results.
func (e *Evaluator) FitnessOf(net network.Network, vectors []Vector) Fitness {
	fit := Fitness{Total: uint(len(vectors))}
	var scratch Vector
	for _, v := range vectors {
		if cap(scratch) < len(v) {
			scratch = make(Vector, len(v))
		}
		scratch = scratch[:len(v)]
		copy(scratch, v)
		if network.IsSorted(network.Apply(scratch, net)) {
			fit.Passed++
		}
	}
	e.evaluations.Add(uint64(len(vectors)))
	return fit
}

// Fitness scores net against prepared cases, using the bit-sliced path for
// 0/1 sets. Both paths give identical results.
func (e *Evaluator) Fitness(net network.Network, cases *Cases) Fitness {
	if !cases.Binary() {
		return e.FitnessOf(net, cases.Vectors)
	}
	return e.binaryFitness(net, cases, nil)
}

// binaryFitness runs 64 vectors per comparator: on 0/1 lanes min is AND and
// max is OR. A block fails wherever a 1 sits directly above a 0. When
// defeats is non-nil the failing case indices are tallied into it.
func (e *Evaluator) binaryFitness(net network.Network, cases *Cases, defeats []uint64) Fitness {
	w := cases.Width
	lines := make([]uint64, w)
	fit := Fitness{Total: uint(cases.Len())}
	for b := 0; b < cases.blocks; b++ {
		copy(lines, cases.lanes[b*w:(b+1)*w])
		mask := cases.blockMask(b)
		fail := sortLanes(net, lines) & mask
		fit.Passed += uint(bits.OnesCount64(mask &^ fail))
		if defeats != nil {
			for fail != 0 {
				bit := bits.TrailingZeros64(fail)
				atomic.AddUint64(&defeats[b*64+bit], 1)
				fail &= fail - 1
			}
		}
	}
	e.evaluations.Add(uint64(cases.Len()))
	return fit
}

// sortLanes applies net to bit-sliced lines in place and returns the mask
// of vectors left unsorted.
func sortLanes(net network.Network, lines []uint64) uint64 {
	for _, c := range net {
		lo, hi := lines[c.I], lines[c.J]
		lines[c.I] = lo & hi
		lines[c.J] = lo | hi
	}
	var fail uint64
	for k := 0; k+1 < len(lines); k++ {
		fail |= lines[k] &^ lines[k+1]
	}
	return fail
}

func (e *Evaluator) tallyFitness(net network.Network, cases *Cases, defeats []uint64) Fitness {
	if cases.Binary() {
		return e.binaryFitness(net, cases, defeats)
	}
	fit := Fitness{Total: uint(cases.Len())}
	scratch := make(Vector, cases.Width)
	for k, v := range cases.Vectors {
		copy(scratch, v)
		if network.IsSorted(network.Apply(scratch, net)) {
			fit.Passed++
		} else {
			atomic.AddUint64(&defeats[k], 1)
		}
	}
	e.evaluations.Add(uint64(cases.Len()))
	return fit
}

// EvaluatePopulation sets the fitness of every individual. With more than one
// worker the individuals are scored concurrently; each result lands on its
// own individual so the outcome matches a sequential run.
func (e *Evaluator) EvaluatePopulation(ctx context.Context, pop *Population, cases *Cases) error {
	return e.evaluate(ctx, pop, func(ind *Individual) {
		ind.Fitness = e.Fitness(ind.Network, cases)
	})
}

// EvaluateWithDefeats is EvaluatePopulation that also returns, per test case,
// how many networks failed it.
func (e *Evaluator) EvaluateWithDefeats(ctx context.Context, pop *Population, cases *Cases) ([]uint64, error) {
	defeats := make([]uint64, cases.Len())
	err := e.evaluate(ctx, pop, func(ind *Individual) {
		ind.Fitness = e.tallyFitness(ind.Network, cases, defeats)
	})
	return defeats, err
}

func (e *Evaluator) evaluate(ctx context.Context, pop *Population, score func(*Individual)) error {
	workers := e.Config.Workers
	if workers <= 1 {
		for _, ind := range pop.Individuals {
			if err := ctx.Err(); err != nil {
				return err
			}
			score(ind)
		}
		return nil
	}

	p := pool.New().WithContext(ctx).WithMaxGoroutines(workers)
	for _, ind := range pop.Individuals {
		ind := ind
		p.Go(func(ctx context.Context) error {
			if err := ctx.Err(); err != nil {
				return err
			}
			score(ind)
			return nil
		})
	}
	return p.Wait()
}

// Evaluations is the total number of (network, vector) applications so far.
func (e *Evaluator) Evaluations() uint64 {
	return e.evaluations.Load()
}
