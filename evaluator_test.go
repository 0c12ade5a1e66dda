package sortnet

import (
	"context"
	"errors"
	"math/rand"
	test "testing"

	"nickandperla.net/sortnet/network"
)

var optimalFour = network.Network{{I: 0, J: 1}, {I: 2, J: 3}, {I: 0, J: 2}, {I: 1, J: 3}, {I: 1, J: 2}}

func testPopulationConfig(width, comparators, generations, size uint) *PopulationConfig {
	config := &PopulationConfig{
		Width:          width,
		MaxComparators: comparators,
		Generations:    generations,
		PopulationSize: size,
	}
	config.ApplyDefaults()
	return config
}

func exhaustiveCases(t *test.T, n int) *Cases {
	cases, err := NewExhaustiveSource(n, DefaultMaxExhaustiveWidth).Cases()
	if err != nil {
		t.Fatalf("Failed to build exhaustive cases: %v", err)
	}
	return cases
}

func TestEvaluatorOptimalFour(t *test.T) {
	e := NewEvaluator(nil)
	fit := e.Fitness(optimalFour, exhaustiveCases(t, 4))
	if fit.Passed != 16 || fit.Total != 16 || fit.Fraction() != 1.0 {
		t.Errorf("Expected 16/16, got %s", fit)
	}

	v := []int{3, 1, 4, 2}
	network.Apply(v, optimalFour)
	for i, want := range []int{1, 2, 3, 4} {
		if v[i] != want {
			t.Fatalf("Expected [1 2 3 4], got %v", v)
		}
	}
}

func TestEvaluatorBinaryMatchesGeneric(t *test.T) {
	rng := rand.New(rand.NewSource(5))
	e := NewEvaluator(nil)
	for _, n := range []int{2, 5, 7} {
		cases := exhaustiveCases(t, n)
		if !cases.Binary() {
			t.Fatalf("Expected exhaustive cases to be packed")
		}
		for trial := 0; trial < 25; trial++ {
			net := network.Random(rng, n, rng.Intn(3*n))
			packed := e.Fitness(net, cases)
			plain := e.FitnessOf(net, cases.Vectors)
			if packed != plain {
				t.Fatalf("n=%d %s: bit-sliced %s, generic %s", n, net, packed, plain)
			}
		}
	}
}

func TestEvaluatorPartialBlock(t *test.T) {
	rng := rand.New(rand.NewSource(6))
	vectors := make([]Vector, 70)
	for k := range vectors {
		vectors[k] = binaryVector(rng.Intn(1<<6), 6)
	}
	cases, err := NewCases(6, vectors)
	if err != nil {
		t.Fatalf("NewCases failed: %v", err)
	}
	e := NewEvaluator(nil)
	for trial := 0; trial < 25; trial++ {
		net := network.Random(rng, 6, rng.Intn(15))
		if packed, plain := e.Fitness(net, cases), e.FitnessOf(net, vectors); packed != plain {
			t.Fatalf("%s: bit-sliced %s, generic %s", net, packed, plain)
		}
	}
}

func TestEvaluatorFitnessBounds(t *test.T) {
	rng := rand.New(rand.NewSource(7))
	e := NewEvaluator(nil)
	vectors, err := SampledCases(rng, 8, 100, 300)
	if err != nil {
		t.Fatalf("SampledCases failed: %v", err)
	}
	cases, _ := NewCases(8, vectors)
	for trial := 0; trial < 50; trial++ {
		fit := e.Fitness(network.Random(rng, 8, 20), cases)
		if fit.Total != 300 || fit.Passed > fit.Total {
			t.Errorf("Fitness %s out of bounds", fit)
		}
		if f := fit.Fraction(); f < 0 || f > 1 {
			t.Errorf("Fraction %f out of [0, 1]", f)
		}
	}
}

func TestEvaluatorDoesNotMutateInputs(t *test.T) {
	rng := rand.New(rand.NewSource(8))
	vectors, _ := SampledCases(rng, 6, 50, 40)
	before := make([]Vector, len(vectors))
	for k, v := range vectors {
		before[k] = v.Clone()
	}
	net := network.Random(rng, 6, 12)
	netBefore := net.Clone()

	e := NewEvaluator(nil)
	e.FitnessOf(net, vectors)
	cases, _ := NewCases(6, vectors)
	e.Fitness(net, cases)

	for k := range vectors {
		for i := range vectors[k] {
			if vectors[k][i] != before[k][i] {
				t.Fatalf("Vector %d changed from %v to %v", k, before[k], vectors[k])
			}
		}
	}
	if !net.Equal(netBefore) {
		t.Errorf("Network changed during evaluation")
	}
}

func TestEvaluateWithDefeats(t *test.T) {
	config := testPopulationConfig(2, 0, 1, 3)
	pop := NewPopulationFromConfig(config)
	for i := uint(1); i <= 3; i++ {
		pop.Individuals = append(pop.Individuals, NewIndividual(i, network.Network{}))
	}

	e := NewEvaluator(nil)
	defeats, err := e.EvaluateWithDefeats(context.Background(), pop, exhaustiveCases(t, 2))
	if err != nil {
		t.Fatalf("EvaluateWithDefeats failed: %v", err)
	}
	// Only {1, 0} is unsorted by the empty network.
	expected := []uint64{0, 0, 3, 0}
	for k := range expected {
		if defeats[k] != expected[k] {
			t.Fatalf("Expected defeats %v, got %v", expected, defeats)
		}
	}
	for _, ind := range pop.Individuals {
		if ind.Fitness.Passed != 3 || ind.Fitness.Total != 4 {
			t.Errorf("Expected 3/4, got %s", ind.Fitness)
		}
	}
}

func TestEvaluateWithDefeatsSampled(t *test.T) {
	config := testPopulationConfig(2, 0, 1, 2)
	pop := NewPopulationFromConfig(config)
	pop.Individuals = []*Individual{
		NewIndividual(1, network.Network{}),
		NewIndividual(2, network.Network{{I: 0, J: 1}}),
	}
	cases, _ := NewCases(2, []Vector{{5, 7}, {9, 2}})
	defeats, err := NewEvaluator(nil).EvaluateWithDefeats(context.Background(), pop, cases)
	if err != nil {
		t.Fatalf("EvaluateWithDefeats failed: %v", err)
	}
	if defeats[0] != 0 || defeats[1] != 1 {
		t.Errorf("Expected defeats [0 1], got %v", defeats)
	}
}

func TestParallelEvaluationMatchesSequential(t *test.T) {
	config := testPopulationConfig(6, 15, 1, 64)
	pop := NewPopulationFromConfig(config)
	if err := pop.SynthesizeIndividuals(rand.New(rand.NewSource(9)), NewIDGenerator(0)); err != nil {
		t.Fatalf("SynthesizeIndividuals failed: %v", err)
	}
	cases := exhaustiveCases(t, 6)

	sequential := NewEvaluator(&EvaluatorConfig{Workers: 1})
	if err := sequential.EvaluatePopulation(context.Background(), pop, cases); err != nil {
		t.Fatalf("Sequential evaluation failed: %v", err)
	}
	expected := make([]Fitness, pop.Size())
	for i, ind := range pop.Individuals {
		expected[i] = ind.Fitness
		ind.Fitness = Fitness{}
	}

	parallel := NewEvaluator(&EvaluatorConfig{Workers: 4})
	if err := parallel.EvaluatePopulation(context.Background(), pop, cases); err != nil {
		t.Fatalf("Parallel evaluation failed: %v", err)
	}
	for i, ind := range pop.Individuals {
		if ind.Fitness != expected[i] {
			t.Errorf("Individual %d: parallel %s, sequential %s", i, ind.Fitness, expected[i])
		}
	}
	if parallel.Evaluations() != uint64(pop.Size()*cases.Len()) {
		t.Errorf("Expected %d evaluations, got %d", pop.Size()*cases.Len(), parallel.Evaluations())
	}
}

func TestEvaluateCancelled(t *test.T) {
	config := testPopulationConfig(4, 5, 1, 4)
	pop := NewPopulationFromConfig(config)
	pop.SynthesizeIndividuals(rand.New(rand.NewSource(10)), NewIDGenerator(0))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := NewEvaluator(nil).EvaluatePopulation(ctx, pop, exhaustiveCases(t, 4))
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}
