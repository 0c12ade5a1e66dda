package sortnet

import (
	"context"
	"math/rand"
	"runtime"
	"strconv"
	"testing"
)

// BenchmarkParallelEval measures fitness evaluation of a large population
// against the exhaustive 0/1 set. Run with:
// go test -run=^$ -bench=BenchmarkParallelEval -benchtime=1x -v
func BenchmarkParallelEval(b *testing.B) {
	config := &PopulationConfig{Width: 16, MaxComparators: 61, Generations: 1, PopulationSize: 2048}
	config.ApplyDefaults()
	pop := NewPopulationFromConfig(config)
	if err := pop.SynthesizeIndividuals(rand.New(rand.NewSource(42)), NewIDGenerator(0)); err != nil {
		b.Fatalf("SynthesizeIndividuals failed: %v", err)
	}
	cases, err := NewExhaustiveSource(16, DefaultMaxExhaustiveWidth).Cases()
	if err != nil {
		b.Fatalf("Failed to build cases: %v", err)
	}

	cpus := runtime.NumCPU()
	b.Logf("Networks: %d, cases: %d, CPUs: %d", pop.Size(), cases.Len(), cpus)

	for _, workers := range []int{1, cpus} {
		evaluator := NewEvaluator(&EvaluatorConfig{Workers: workers})
		b.Run("workers="+strconv.Itoa(workers), func(b *testing.B) {
			for iter := 0; iter < b.N; iter++ {
				if err := evaluator.EvaluatePopulation(context.Background(), pop, cases); err != nil {
					b.Fatalf("Evaluation failed: %v", err)
				}
			}
		})
	}
}

// BenchmarkOracle measures exhaustive verification of Recursive(16).
func BenchmarkOracle(b *testing.B) {
	o := NewOracle(nil, nil)
	net := o.Reference(16)
	for iter := 0; iter < b.N; iter++ {
		if fit, _ := o.Verify(net, 16); !fit.Perfect() {
			b.Fatalf("Reference network failed: %s", fit)
		}
	}
}
