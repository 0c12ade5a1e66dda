package sortnet

import "fmt"

// Fitness is how many of a generation's test cases a network sorted. It is
// only meaningful next to fitness computed against the same test set.
type Fitness struct {
	Passed uint
	Total  uint
}

// Count is the raw pass count used by the sampled single population mode.
func (f Fitness) Count() uint {
	return f.Passed
}

// Fraction is Passed/Total in [0, 1], or 0 for an empty test set.
func (f Fitness) Fraction() float64 {
	if f.Total == 0 {
		return 0
	}
	return float64(f.Passed) / float64(f.Total)
}

func (f Fitness) Perfect() bool {
	return f.Total > 0 && f.Passed == f.Total
}

// Compare returns -1 if f is better than o, 1 if worse and 0 on a tie.
// Fractions are compared by cross multiplication so scores from sets of
// different sizes still order exactly.
func (f Fitness) Compare(o Fitness) int {
	a, b := uint64(f.Passed), uint64(o.Passed)
	if f.Total != o.Total {
		a *= uint64(o.Total)
		b *= uint64(f.Total)
	}
	switch {
	case a > b:
		return -1
	case a < b:
		return 1
	}
	return 0
}

func (f Fitness) String() string {
	return fmt.Sprintf("%d/%d (%.4f)", f.Passed, f.Total, f.Fraction())
}

// FitnessRanker orders individuals best first. Fitness is always the
// primary key; PreferSmaller optionally breaks ties by comparator count.
type FitnessRanker struct {
	PreferSmaller bool
}

func NewFitnessRanker(preferSmaller bool) *FitnessRanker {
	return &FitnessRanker{PreferSmaller: preferSmaller}
}

// CompareIndividuals returns -1 if a ranks before b.
func (r *FitnessRanker) CompareIndividuals(a, b *Individual) int {
	if c := a.Fitness.Compare(b.Fitness); c != 0 {
		return c
	}
	if r.PreferSmaller {
		switch {
		case a.Network.Len() < b.Network.Len():
			return -1
		case a.Network.Len() > b.Network.Len():
			return 1
		}
	}
	return 0
}
