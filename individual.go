package sortnet

import (
	"fmt"

	cp "github.com/jinzhu/copier"

	"nickandperla.net/sortnet/network"
)

// Individual is one candidate network in a population. Fitness describes
// the last test set it was evaluated against and nothing more.
type Individual struct {
	ID         uint
	ParentID   *uint
	Generation uint
	Network    network.Network
	Fitness    Fitness
}

func NewIndividual(id uint, net network.Network) *Individual {
	return &Individual{ID: id, Network: net}
}

// NewRandomIndividual draws a random network sized by config.
func NewRandomIndividual(rng Source, id uint, config *PopulationConfig) *Individual {
	return NewIndividual(id, network.Random(rng, int(config.Width), int(config.MaxComparators)))
}

// Clone is a deep copy: the clone never shares comparator storage with ind.
func (ind *Individual) Clone() *Individual {
	clone := &Individual{}
	if err := cp.CopyWithOption(clone, ind, cp.Option{DeepCopy: true}); err != nil {
		panic(fmt.Errorf("cloning individual %d failed: %w", ind.ID, err))
	}
	return clone
}

// Mitosis produces a single mutated offspring. The child's network is the
// deep copy made by Clone, mutated in place; the parent is untouched.
func (ind *Individual) Mitosis(rng Source, width int, ids *IDGenerator) *Individual {
	child := ind.Clone()
	parentID := ind.ID
	child.ParentID = &parentID
	child.ID = ids.Next()
	child.Generation = ind.Generation + 1
	child.Fitness = Fitness{}
	network.MutateInPlace(rng, &child.Network, width)
	return child
}
