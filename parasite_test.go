package sortnet

import (
	"math/rand"
	test "testing"
)

func testParasiteConfig(size uint, binary bool) *ParasiteConfig {
	return &ParasiteConfig{
		PopulationSize:    size,
		MutationChance:    0.1,
		ImmigrantFraction: 0.1,
		Binary:            binary,
		ValueRange:        50,
	}
}

func TestNewParasitePopulationBinary(t *test.T) {
	pp, err := NewParasitePopulation(rand.New(rand.NewSource(14)), 6, testParasiteConfig(20, true))
	if err != nil {
		t.Fatalf("NewParasitePopulation failed: %v", err)
	}
	if pp.Size() != 20 {
		t.Fatalf("Expected 20 parasites, got %d", pp.Size())
	}
	for _, p := range pp.Parasites {
		if len(p.Vector) != 6 {
			t.Fatalf("Expected width 6, got %d", len(p.Vector))
		}
		for _, x := range p.Vector {
			if x != 0 && x != 1 {
				t.Fatalf("Binary parasite holds %d", x)
			}
		}
	}
	cases, err := pp.Cases()
	if err != nil || !cases.Binary() {
		t.Errorf("Expected packed parasite cases, got %v", err)
	}
}

func TestNewParasitePopulationRejectsBadConfig(t *test.T) {
	rng := rand.New(rand.NewSource(15))
	if _, err := NewParasitePopulation(rng, 4, nil); err == nil {
		t.Errorf("Expected nil config to fail")
	}
	if _, err := NewParasitePopulation(rng, 4, testParasiteConfig(1, true)); err == nil {
		t.Errorf("Expected a single parasite to fail")
	}
	narrow := testParasiteConfig(4, false)
	narrow.ValueRange = 3
	if _, err := NewParasitePopulation(rng, 4, narrow); err == nil {
		t.Errorf("Expected a value range below the width to fail")
	}
}

func TestParasiteEvolveFavoursDefeatingVectors(t *test.T) {
	pp, err := NewParasitePopulation(rand.New(rand.NewSource(16)), 5, testParasiteConfig(20, true))
	if err != nil {
		t.Fatalf("NewParasitePopulation failed: %v", err)
	}
	defeats := make([]uint64, pp.Size())
	for k := range defeats {
		defeats[k] = uint64(k)
	}
	if err := pp.Score(defeats); err != nil {
		t.Fatalf("Score failed: %v", err)
	}
	strongest := map[uint]bool{}
	for _, p := range pp.Parasites[10:] {
		strongest[p.ID] = true
	}
	before, _ := pp.Cases()

	ops := pp.Evolve()
	if pp.Size() != 20 {
		t.Fatalf("Expected the population size kept at 20, got %d", pp.Size())
	}
	if pp.Parasites[0].Defeated != 19 {
		t.Errorf("Expected the strongest parasite first, got one that defeated %d", pp.Parasites[0].Defeated)
	}
	for i, p := range pp.Parasites[:10] {
		if !strongest[p.ID] {
			t.Errorf("Survivor %d (id %d) was not in the top half", i, p.ID)
		}
	}
	for _, p := range pp.Parasites[10:18] {
		if p.ParentID == nil || !strongest[*p.ParentID] {
			t.Errorf("Child %d does not descend from a survivor", p.ID)
		}
	}
	var flips uint
	for _, p := range pp.Parasites[10:18] {
		flips += uint(len(p.Mutations))
	}
	if ops[FLIP_OP] != flips || flips < 8 || len(ops) != 1 {
		t.Errorf("Expected %d flips reported for 8 children, got %v", flips, ops)
	}
	for _, p := range pp.Parasites[18:] {
		if p.ParentID != nil {
			t.Errorf("Expected immigrant %d to have no parent", p.ID)
		}
	}
	after, _ := pp.Cases()
	if before == after {
		t.Errorf("Expected the cached cases to be rebuilt after Evolve")
	}
}

func TestParasiteScoreLengthMismatch(t *test.T) {
	pp, _ := NewParasitePopulation(rand.New(rand.NewSource(17)), 4, testParasiteConfig(4, true))
	if err := pp.Score(make([]uint64, 3)); err == nil {
		t.Errorf("Expected a length mismatch error")
	}
}

func TestParasiteInject(t *test.T) {
	pp, _ := NewParasitePopulation(rand.New(rand.NewSource(18)), 4, testParasiteConfig(4, true))
	if err := pp.Inject(Vector{1, 1, 0, 0}); err != nil {
		t.Fatalf("Inject failed: %v", err)
	}
	last := pp.Parasites[len(pp.Parasites)-1].Vector
	if last[0] != 1 || last[3] != 0 {
		t.Errorf("Expected the injected vector last, got %v", last)
	}
	if err := pp.Inject(Vector{1, 0}); err == nil {
		t.Errorf("Expected a width mismatch to fail")
	}
	if err := pp.Inject(Vector{3, 1, 0, 2}); err == nil {
		t.Errorf("Expected a non-binary vector to fail for binary parasites")
	}
}

func TestPermutationParasitesStayDistinct(t *test.T) {
	pp, err := NewParasitePopulation(rand.New(rand.NewSource(19)), 6, testParasiteConfig(16, false))
	if err != nil {
		t.Fatalf("NewParasitePopulation failed: %v", err)
	}
	for g := 0; g < 10; g++ {
		pp.Score(make([]uint64, pp.Size()))
		pp.Evolve()
	}
	for _, p := range pp.Parasites {
		seen := map[int]bool{}
		for _, x := range p.Vector {
			if x < 0 || x >= 50 || seen[x] {
				t.Fatalf("Parasite %v is not a set of distinct values from [0, 50)", p.Vector)
			}
			seen[x] = true
		}
	}
}

func TestMutateBinaryAlwaysChanges(t *test.T) {
	rng := rand.New(rand.NewSource(20))
	v := Vector{0, 1, 0, 1, 1}
	for trial := 0; trial < 50; trial++ {
		child, mutations := MutateBinary(rng, v, 0)
		if len(mutations) != 1 {
			t.Fatalf("Expected exactly one forced flip, got %d", len(mutations))
		}
		diff := 0
		for i := range v {
			if child[i] != v[i] {
				diff++
			}
		}
		if diff != 1 {
			t.Fatalf("Expected one changed position, got %d", diff)
		}
	}
	if v[0] != 0 || v[1] != 1 {
		t.Errorf("Parent vector changed")
	}
}

func TestMutatePermutation(t *test.T) {
	rng := rand.New(rand.NewSource(21))
	v := Vector{4, 0, 2, 7}
	sawSwap, sawReplace := false, false
	for trial := 0; trial < 100; trial++ {
		child, m := MutatePermutation(rng, v, 10)
		seen := map[int]bool{}
		for _, x := range child {
			if seen[x] || x < 0 || x >= 10 {
				t.Fatalf("Mutated vector %v is invalid", child)
			}
			seen[x] = true
		}
		switch m.Op {
		case SWAP_OP:
			sawSwap = true
		case REPLACE_OP:
			sawReplace = true
		}
	}
	if !sawSwap || !sawReplace {
		t.Errorf("Expected both swaps and replacements, swap=%t replace=%t", sawSwap, sawReplace)
	}

	child, m := MutatePermutation(rng, Vector{1, 0}, 2)
	if m.Op != SWAP_OP || child[0] != 0 || child[1] != 1 {
		t.Errorf("Expected a swap when no free value exists, got %s %v", m.Op, child)
	}
}
