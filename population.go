package sortnet

import (
	"fmt"

	"nickandperla.net/sortnet/network"
)

// Population is the ordered set of networks of one generation. After each
// generation step Individuals is a new slice: survivors first in rank
// order, then their offspring.
type Population struct {
	Individuals      []*Individual
	Generation       uint
	PopulationConfig *PopulationConfig
}

func NewPopulationFromConfig(config *PopulationConfig) *Population {
	return &Population{
		PopulationConfig: config,
	}
}

// SynthesizeIndividuals fills the population with random networks. Any
// seeds replace the first members, in order.
func (p *Population) SynthesizeIndividuals(rng Source, ids *IDGenerator, seeds ...network.Network) error {
	count := p.PopulationConfig.PopulationSize
	if uint(len(seeds)) > count {
		return fmt.Errorf("%d seed networks exceed population size %d", len(seeds), count)
	}
	width := int(p.PopulationConfig.Width)
	individuals := make([]*Individual, 0, count)
	for _, seed := range seeds {
		if err := seed.Validate(width); err != nil {
			return fmt.Errorf("seed network rejected: %w", err)
		}
		individuals = append(individuals, NewIndividual(ids.Next(), seed.Clone()))
	}
	for uint(len(individuals)) < count {
		individuals = append(individuals, NewRandomIndividual(rng, ids.Next(), p.PopulationConfig))
	}
	p.Individuals = individuals
	p.Generation = 0
	return nil
}

func (p *Population) Size() int {
	return len(p.Individuals)
}

// Best is the first member; meaningful once the population has been ranked.
func (p *Population) Best() *Individual {
	if len(p.Individuals) == 0 {
		return nil
	}
	return p.Individuals[0]
}

func (p *Population) Networks() []network.Network {
	nets := make([]network.Network, len(p.Individuals))
	for i, ind := range p.Individuals {
		nets[i] = ind.Network
	}
	return nets
}

// MeanFitness averages Fraction over all members.
func (p *Population) MeanFitness() float64 {
	if len(p.Individuals) == 0 {
		return 0
	}
	var sum float64
	for _, ind := range p.Individuals {
		sum += ind.Fitness.Fraction()
	}
	return sum / float64(len(p.Individuals))
}
