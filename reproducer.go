package sortnet

import log "github.com/sirupsen/logrus"

// Reproducer refills a culled population with asexual offspring: each child
// is a single mutation of a parent drawn uniformly from the parent pool.
type Reproducer struct {
	Rand     Source
	Selector *Selector
	Width    int
	IDs      *IDGenerator
}

func NewReproducer(rng Source, selector *Selector, width int, ids *IDGenerator) *Reproducer {
	return &Reproducer{
		Rand:     rng,
		Selector: selector,
		Width:    width,
		IDs:      ids,
	}
}

// Refill appends offspring of pool until the population holds size members
// and returns the number of offspring created.
func (r *Reproducer) Refill(pop *Population, pool []*Individual, size uint) uint {
	if len(pool) == 0 {
		return 0
	}
	var offspring uint
	for uint(len(pop.Individuals)) < size {
		parent := r.Selector.Pick(r.Rand, pool)
		child := parent.Mitosis(r.Rand, r.Width, r.IDs)
		child.Generation = pop.Generation + 1
		pop.Individuals = append(pop.Individuals, child)
		offspring++
	}

	if DEBUG {
		log.Printf("Reproduction: %d offspring from a pool of %d", offspring, len(pool))
	}
	return offspring
}
