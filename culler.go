package sortnet

import log "github.com/sirupsen/logrus"

// Culler applies truncation selection: after ranking, everything beyond the
// carrying capacity is dropped from the population.
type Culler struct {
	CarryingCapacity uint
}

func NewCuller(carryingCapacity uint) *Culler {
	return &Culler{CarryingCapacity: carryingCapacity}
}

// Cull keeps the top CarryingCapacity members of a ranked population in a
// fresh slice and returns how many were dropped.
func (c *Culler) Cull(pop *Population) uint {
	keep := c.CarryingCapacity
	if keep >= uint(len(pop.Individuals)) {
		return 0
	}
	survivors := make([]*Individual, keep, max(keep, pop.PopulationConfig.PopulationSize))
	copy(survivors, pop.Individuals[:keep])
	culled := uint(len(pop.Individuals)) - keep

	if DEBUG {
		log.Printf("Cull: dropping %d of %d (capacity %d)", culled, len(pop.Individuals), keep)
	}
	pop.Individuals = survivors
	return culled
}
