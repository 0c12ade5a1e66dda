package sortnet

import "sort"

// Selector ranks a population and picks parents from its top slice.
type Selector struct {
	Ranker *FitnessRanker
}

func NewSelector(ranker *FitnessRanker) *Selector {
	if ranker == nil {
		ranker = NewFitnessRanker(false)
	}
	return &Selector{Ranker: ranker}
}

// Rank sorts the population best first. The sort is stable, so equally fit
// individuals keep their current order.
func (s *Selector) Rank(pop *Population) {
	sort.SliceStable(pop.Individuals, func(i, j int) bool {
		return s.Ranker.CompareIndividuals(pop.Individuals[i], pop.Individuals[j]) < 0
	})
}

// ParentPool returns the first size members of an already ranked population,
// never fewer than one.
func (s *Selector) ParentPool(pop *Population, size uint) []*Individual {
	if size < 1 {
		size = 1
	}
	if size > uint(len(pop.Individuals)) {
		size = uint(len(pop.Individuals))
	}
	return pop.Individuals[:size]
}

// Pick chooses one parent uniformly from pool.
func (s *Selector) Pick(rng Source, pool []*Individual) *Individual {
	return pool[rng.Intn(len(pool))]
}
