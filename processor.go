package sortnet

import (
	"context"
	"fmt"
)

// Processor runs one generation step over a population: evaluate, rank,
// report, cull and refill.
type Processor struct {
	Evaluator  *Evaluator
	Selector   *Selector
	Culler     *Culler
	Reproducer *Reproducer
}

func NewProcessor(evaluator *Evaluator, selector *Selector, culler *Culler, reproducer *Reproducer) *Processor {
	return &Processor{
		Evaluator:  evaluator,
		Selector:   selector,
		Culler:     culler,
		Reproducer: reproducer,
	}
}

// Process evaluates pop against cases and produces the next generation,
// drawing parents from the top poolSize ranked members.
func (p *Processor) Process(ctx context.Context, pop *Population, cases *Cases, poolSize uint) (*GenerationReport, error) {
	if _, err := p.Score(ctx, pop, cases, false); err != nil {
		return nil, err
	}
	report := p.Report(pop, cases)
	p.Advance(pop, poolSize, report)
	return report, nil
}

// Score evaluates and ranks pop. With tally set it also returns how many
// networks each case defeated.
func (p *Processor) Score(ctx context.Context, pop *Population, cases *Cases, tally bool) ([]uint64, error) {
	var defeats []uint64
	var err error
	if tally {
		defeats, err = p.Evaluator.EvaluateWithDefeats(ctx, pop, cases)
	} else {
		err = p.Evaluator.EvaluatePopulation(ctx, pop, cases)
	}
	if err != nil {
		return nil, fmt.Errorf("evaluating generation %d failed: %w", pop.Generation, err)
	}
	p.Selector.Rank(pop)
	return defeats, nil
}

// Report summarises a ranked population.
func (p *Processor) Report(pop *Population, cases *Cases) *GenerationReport {
	m := pop.QueryMetrics()
	return &GenerationReport{
		Width:       pop.PopulationConfig.Width,
		Generation:  pop.Generation,
		Best:        pop.Best().Network.Clone(),
		BestFitness: m.BestFitness,
		MeanFitness: m.MeanFitness,
		BestSize:    m.BestSize,
		Diversity:   m.Diversity,
		Cases:       uint(cases.Len()),
		Evaluations: uint64(m.Size) * uint64(cases.Len()),
	}
}

// Advance culls a ranked population and refills it from the top poolSize
// members, recording the counts on report when it is non-nil.
func (p *Processor) Advance(pop *Population, poolSize uint, report *GenerationReport) {
	// The pool aliases the ranked slice, so copy it before culling replaces it.
	pool := append([]*Individual(nil), p.Selector.ParentPool(pop, poolSize)...)
	culled := p.Culler.Cull(pop)
	offspring := p.Reproducer.Refill(pop, pool, pop.PopulationConfig.PopulationSize)
	pop.Generation++
	if report != nil {
		report.Culled = culled
		report.Offspring = offspring
	}
}
