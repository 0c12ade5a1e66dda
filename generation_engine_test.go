package sortnet

import (
	"context"
	"errors"
	"math/rand"
	test "testing"

	"nickandperla.net/sortnet/network"
)

func newTestEngine(t *test.T, config *PopulationConfig, seed int64) *GenerationEngine {
	engine, err := NewGenerationEngine(config, rand.New(rand.NewSource(seed)))
	if err != nil {
		t.Fatalf("NewGenerationEngine failed: %v", err)
	}
	return engine
}

func TestNewGenerationEngineRejectsBadConfig(t *test.T) {
	rng := rand.New(rand.NewSource(26))
	if _, err := NewGenerationEngine(nil, rng); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("Expected ErrInvalidConfig for nil config, got %v", err)
	}
	if _, err := NewGenerationEngine(testPopulationConfig(4, 5, 10, 1), rng); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("Expected ErrInvalidConfig for P=1, got %v", err)
	}
	if _, err := NewGenerationEngine(testPopulationConfig(4, 5, 0, 10), rng); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("Expected ErrInvalidConfig for G=0, got %v", err)
	}
	if _, err := NewGenerationEngine(testPopulationConfig(4, 5, 10, 10), nil); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("Expected ErrInvalidConfig without a random source, got %v", err)
	}
}

func TestEvolveRunsExactlyGGenerations(t *test.T) {
	config := testPopulationConfig(4, 6, 7, 12)
	config.EvaluatorConfig.SampleCount = 50
	engine := newTestEngine(t, config, 27)

	var generations []uint
	engine.AddObserver(ObserverFunc(func(_ context.Context, report *GenerationReport) error {
		generations = append(generations, report.Generation)
		if report.Mode != ModeEvolve || report.Cases != 50 {
			t.Errorf("Unexpected report %+v", report)
		}
		if report.Culled != 6 || report.Offspring != 6 {
			t.Errorf("Expected 6 culled and 6 bred, got %d and %d", report.Culled, report.Offspring)
		}
		return nil
	}))

	result, err := engine.Evolve(context.Background())
	if err != nil {
		t.Fatalf("Evolve failed: %v", err)
	}
	if result.GenerationsRun != 7 || len(result.History) != 7 {
		t.Errorf("Expected 7 generations, got %d (%d history)", result.GenerationsRun, len(result.History))
	}
	for i, g := range generations {
		if g != uint(i) {
			t.Errorf("Expected generation %d, got %d", i, g)
		}
	}
	if result.Population.Size() != 12 {
		t.Errorf("Expected the population to stay at 12, got %d", result.Population.Size())
	}
	first := result.Population.Individuals[0]
	if result.Best.ID != first.ID || !result.Best.Network.Equal(first.Network) {
		t.Errorf("Expected the first member of the final population")
	}
	if result.Best == first || (first.Network.Len() > 0 && &result.Best.Network[0] == &first.Network[0]) {
		t.Errorf("Expected Best to be a snapshot, not the live member")
	}
	if result.Verification.Total != 16 {
		t.Errorf("Expected exhaustive verification, got %s", result.Verification)
	}
	if result.Solved != result.Verification.Perfect() {
		t.Errorf("Solved %t disagrees with verification %s", result.Solved, result.Verification)
	}
}

func TestEvolveIsReproducible(t *test.T) {
	run := func() network.Network {
		config := testPopulationConfig(5, 8, 5, 10)
		config.EvaluatorConfig.SampleCount = 30
		result, err := newTestEngine(t, config, 28).Evolve(context.Background())
		if err != nil {
			t.Fatalf("Evolve failed: %v", err)
		}
		return result.Best.Network
	}
	if a, b := run(), run(); !a.Equal(b) {
		t.Errorf("Same seed gave %s and %s", a, b)
	}
}

func TestEvolveKeepsSeededOptimum(t *test.T) {
	config := testPopulationConfig(4, 3, 20, 16)
	config.EvaluatorConfig.SampleCount = 200
	engine := newTestEngine(t, config, 29)
	if err := engine.SeedNetworks(optimalFour); err != nil {
		t.Fatalf("SeedNetworks failed: %v", err)
	}
	result, err := engine.Evolve(context.Background())
	if err != nil {
		t.Fatalf("Evolve failed: %v", err)
	}
	if !result.Solved || !result.Fitness.Perfect() {
		t.Errorf("Expected a perfect sorting network, got %s (verified %s)", result.Fitness, result.Verification)
	}
}

func TestCoevolveExitsEarly(t *test.T) {
	config := testPopulationConfig(4, 4, 50, 20)
	engine := newTestEngine(t, config, 30)
	if err := engine.SeedNetworks(network.Recursive(4)); err != nil {
		t.Fatalf("SeedNetworks failed: %v", err)
	}
	observed := 0
	engine.AddObserver(ObserverFunc(func(_ context.Context, report *GenerationReport) error {
		observed++
		return nil
	}))

	result, err := engine.Coevolve(context.Background())
	if err != nil {
		t.Fatalf("Coevolve failed: %v", err)
	}
	if !result.Solved || result.GenerationsRun != 1 || observed != 1 {
		t.Errorf("Expected to stop after one generation, got solved=%t after %d (%d observed)",
			result.Solved, result.GenerationsRun, observed)
	}
	if result.Fitness.Fraction() != 1.0 || result.Fitness.Total != 16 {
		t.Errorf("Expected best fitness 16/16, got %s", result.Fitness)
	}
	if !result.Best.Network.Equal(network.Recursive(4)) {
		t.Errorf("Expected the seeded network to win ties, got %s", result.Best.Network)
	}
	if !result.Proven {
		t.Errorf("Expected an exhaustive proof at width 4")
	}
}

func TestCoevolveWithParasitesConfirmsChampion(t *test.T) {
	config := testPopulationConfig(6, 6, 30, 16)
	config.ParasiteConfig.Force = true
	config.ParasiteConfig.PopulationSize = 12
	engine := newTestEngine(t, config, 31)
	if err := engine.SeedNetworks(network.MergeExchange(6)); err != nil {
		t.Fatalf("SeedNetworks failed: %v", err)
	}
	var parasites uint
	engine.AddObserver(ObserverFunc(func(_ context.Context, report *GenerationReport) error {
		parasites = report.ParasiteCount
		return nil
	}))

	result, err := engine.Coevolve(context.Background())
	if err != nil {
		t.Fatalf("Coevolve failed: %v", err)
	}
	if !result.Solved || result.GenerationsRun != 1 {
		t.Errorf("Expected the seeded sorting network to be confirmed at once, got solved=%t after %d",
			result.Solved, result.GenerationsRun)
	}
	if parasites != 12 {
		t.Errorf("Expected 12 parasites in the report, got %d", parasites)
	}
	if result.Fitness.Total != 12 || !result.Verification.Perfect() || result.Verification.Total != 64 {
		t.Errorf("Unexpected fitness %s, verification %s", result.Fitness, result.Verification)
	}
}

func TestCoevolveWithParasitesRunsToLimit(t *test.T) {
	config := testPopulationConfig(6, 2, 4, 8)
	config.ParasiteConfig.Force = true
	config.ParasiteConfig.PopulationSize = 8
	engine := newTestEngine(t, config, 32)
	var bred []uint
	engine.AddObserver(ObserverFunc(func(_ context.Context, report *GenerationReport) error {
		var n uint
		for _, count := range report.ParasiteMutations {
			n += count
		}
		bred = append(bred, n)
		return nil
	}))
	result, err := engine.Coevolve(context.Background())
	if err != nil {
		t.Fatalf("Coevolve failed: %v", err)
	}
	if result.GenerationsRun != 4 || result.Solved {
		t.Fatalf("Expected two comparators on six lines to run all 4 generations, got %d", result.GenerationsRun)
	}
	for g, n := range bred {
		if n == 0 {
			t.Errorf("Generation %d reported no parasite mutations", g)
		}
	}
	if result.Solved && !result.Verification.Perfect() {
		t.Errorf("Claimed a solution the oracle rejects: %s", result.Verification)
	}
}

func TestAsParasiteConvertsCounterexamples(t *test.T) {
	config := testPopulationConfig(4, 2, 1, 4)
	engine := newTestEngine(t, config, 33)
	net := network.Network{{I: 0, J: 1}}

	config.ParasiteConfig.Binary = true
	b := engine.asParasite(net, Vector{3, 2, 1, 0})
	if !isBinaryVector(b) || network.Sorts(net, b) {
		t.Errorf("Expected a failing 0/1 vector, got %v", b)
	}

	config.ParasiteConfig.Binary = false
	p := engine.asParasite(net, Vector{0, 0, 1, 0})
	if isBinaryVector(p) || network.Sorts(net, p) {
		t.Errorf("Expected a failing permutation, got %v", p)
	}
}

func TestEngineHonoursCancellation(t *test.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	for _, mode := range []string{ModeEvolve, ModeCoevolve} {
		engine := newTestEngine(t, testPopulationConfig(4, 4, 5, 6), 34)
		if _, err := engine.Run(ctx, mode); !errors.Is(err, context.Canceled) {
			t.Errorf("%s: expected context.Canceled, got %v", mode, err)
		}
	}
}

func TestEngineObserverErrorAborts(t *test.T) {
	engine := newTestEngine(t, testPopulationConfig(4, 4, 5, 6), 35)
	boom := errors.New("boom")
	engine.AddObserver(ObserverFunc(func(context.Context, *GenerationReport) error { return boom }))
	if _, err := engine.Evolve(context.Background()); !errors.Is(err, boom) {
		t.Errorf("Expected the observer error, got %v", err)
	}
}

func TestEngineRunUnknownMode(t *test.T) {
	engine := newTestEngine(t, testPopulationConfig(4, 4, 5, 6), 36)
	if _, err := engine.Run(context.Background(), "anneal"); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("Expected ErrInvalidConfig, got %v", err)
	}
	if err := engine.SeedNetworks(network.Network{{I: 2, J: 7}}); err == nil {
		t.Errorf("Expected an out of range seed to be rejected")
	}
}
