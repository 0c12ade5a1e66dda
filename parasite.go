package sortnet

import (
	"fmt"
	"sort"

	log "github.com/sirupsen/logrus"
)

// Parasite is one adversarial test vector. Defeated counts the networks it
// broke in the last evaluation.
type Parasite struct {
	ID         uint
	ParentID   *uint
	Generation uint
	Vector     Vector
	Defeated   uint
	Mutations  []VectorMutation
}

// ParasitePopulation is the evolving test set of adversarial co-evolution.
// Parasites are scored by how many networks they defeat, so the set drifts
// towards the inputs the current networks get wrong.
type ParasitePopulation struct {
	Parasites  []*Parasite
	Generation uint
	Width      int
	Config     *ParasiteConfig

	rng   Source
	ids   *IDGenerator
	pool  []int
	cases *Cases
}

func NewParasitePopulation(rng Source, width int, config *ParasiteConfig) (*ParasitePopulation, error) {
	if config == nil {
		return nil, fmt.Errorf("%w: parasite config cannot be nil", ErrInvalidConfig)
	}
	if width < 1 {
		return nil, fmt.Errorf("%w: parasites need at least one line, got %d", ErrInvalidConfig, width)
	}
	if config.PopulationSize < 2 {
		return nil, fmt.Errorf("%w: parasites.population_size must be at least 2", ErrInvalidConfig)
	}
	if !config.Binary && int(config.ValueRange) < width {
		return nil, fmt.Errorf("%w: cannot draw %d distinct values from [0, %d)", ErrValueRangeTooSmall, width, config.ValueRange)
	}

	pp := &ParasitePopulation{
		Width:  width,
		Config: config,
		rng:    rng,
		ids:    NewIDGenerator(0),
	}
	if !config.Binary {
		pp.pool = make([]int, config.ValueRange)
	}
	pp.Parasites = make([]*Parasite, config.PopulationSize)
	for i := range pp.Parasites {
		pp.Parasites[i] = pp.newParasite(pp.randomVector())
	}
	return pp, nil
}

func (pp *ParasitePopulation) newParasite(v Vector) *Parasite {
	return &Parasite{ID: pp.ids.Next(), Generation: pp.Generation, Vector: v}
}

func (pp *ParasitePopulation) randomVector() Vector {
	if pp.Config.Binary {
		v := make(Vector, pp.Width)
		for i := range v {
			v[i] = pp.rng.Intn(2)
		}
		return v
	}
	return samplePermutation(pp.rng, pp.pool, pp.Width)
}

func (pp *ParasitePopulation) Size() int {
	return len(pp.Parasites)
}

// Vectors returns the current test vectors in population order.
func (pp *ParasitePopulation) Vectors() []Vector {
	vectors := make([]Vector, len(pp.Parasites))
	for i, p := range pp.Parasites {
		vectors[i] = p.Vector
	}
	return vectors
}

// Cases returns the parasites as a prepared test set, rebuilt only after
// the population changes.
func (pp *ParasitePopulation) Cases() (*Cases, error) {
	if pp.cases != nil {
		return pp.cases, nil
	}
	cases, err := NewCases(pp.Width, pp.Vectors())
	if err != nil {
		return nil, fmt.Errorf("failed to prepare parasite cases: %w", err)
	}
	pp.cases = cases
	return cases, nil
}

// Score records, per parasite, how many networks it defeated. defeats is
// indexed like the set returned by Cases.
func (pp *ParasitePopulation) Score(defeats []uint64) error {
	if len(defeats) != len(pp.Parasites) {
		return fmt.Errorf("got %d defeat counts for %d parasites", len(defeats), len(pp.Parasites))
	}
	for i, p := range pp.Parasites {
		p.Defeated = uint(defeats[i])
	}
	return nil
}

// Rank sorts parasites by networks defeated, most first. Ties keep their
// current order.
func (pp *ParasitePopulation) Rank() {
	sort.SliceStable(pp.Parasites, func(i, j int) bool {
		return pp.Parasites[i].Defeated > pp.Parasites[j].Defeated
	})
}

// Evolve ranks the scored parasites, keeps the top half, refills with
// mutated children of the survivors and replaces the tail with fresh
// random immigrants. It returns how often each operator was applied to
// the new children.
func (pp *ParasitePopulation) Evolve() map[VECTOR_OP]uint {
	pp.Rank()
	size := int(pp.Config.PopulationSize)
	keep := max(size/2, 1)
	immigrants := int(float64(size) * pp.Config.ImmigrantFraction)
	if immigrants > size-keep {
		immigrants = size - keep
	}

	next := make([]*Parasite, keep, size)
	copy(next, pp.Parasites[:keep])
	pp.Generation++
	ops := make(map[VECTOR_OP]uint)
	for len(next) < size-immigrants {
		parent := next[pp.rng.Intn(keep)]
		child := pp.mitosis(parent)
		for _, m := range child.Mutations {
			ops[m.Op]++
		}
		next = append(next, child)
	}
	for len(next) < size {
		next = append(next, pp.newParasite(pp.randomVector()))
	}

	if DEBUG {
		log.Printf("Parasites: kept %d, bred %d, %d immigrants", keep, size-keep-immigrants, immigrants)
	}
	pp.Parasites = next
	pp.cases = nil
	return ops
}

func (pp *ParasitePopulation) mitosis(parent *Parasite) *Parasite {
	var child Vector
	var mutations []VectorMutation
	if pp.Config.Binary {
		child, mutations = MutateBinary(pp.rng, parent.Vector, pp.Config.MutationChance)
	} else {
		var m VectorMutation
		child, m = MutatePermutation(pp.rng, parent.Vector, int(pp.Config.ValueRange))
		mutations = []VectorMutation{m}
	}
	parentID := parent.ID
	p := pp.newParasite(child)
	p.ParentID = &parentID
	p.Mutations = mutations
	return p
}

// Inject replaces the last parasite with v, typically a counterexample the
// oracle found against a champion the parasites failed to break.
func (pp *ParasitePopulation) Inject(v Vector) error {
	if len(v) != pp.Width {
		return fmt.Errorf("injected vector has %d values, expected %d", len(v), pp.Width)
	}
	if pp.Config.Binary {
		for _, x := range v {
			if x != 0 && x != 1 {
				return fmt.Errorf("injected vector %v is not binary", v)
			}
		}
	}
	pp.Parasites[len(pp.Parasites)-1] = pp.newParasite(v.Clone())
	pp.cases = nil
	return nil
}
