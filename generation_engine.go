package sortnet

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"

	"nickandperla.net/sortnet/network"
)

// Result is the outcome of one engine run. Best is a snapshot of the
// champion, detached from Population. Fitness is the champion's score on the
// last generation's test set; Verification is the oracle's verdict.
type Result struct {
	Mode           string
	Best           *Individual
	Fitness        Fitness
	Verification   Fitness
	Proven         bool
	Solved         bool
	GenerationsRun uint
	Population     *Population
	History        []float64
}

// GenerationEngine drives one population through either evolution loop. All
// randomness is drawn from Rand on the calling goroutine.
type GenerationEngine struct {
	Config     *PopulationConfig
	Rand       Source
	Evaluator  *Evaluator
	Selector   *Selector
	Culler     *Culler
	Reproducer *Reproducer
	Processor  *Processor
	Oracle     *Oracle
	Observers  []GenerationObserver
	Logger     *log.Entry
	IDs        *IDGenerator

	seeds []network.Network
}

func NewGenerationEngine(config *PopulationConfig, rng Source) (*GenerationEngine, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if rng == nil {
		return nil, fmt.Errorf("%w: random source cannot be nil", ErrInvalidConfig)
	}

	ids := NewIDGenerator(0)
	evaluator := NewEvaluator(config.EvaluatorConfig)
	selector := NewSelector(NewFitnessRanker(config.PreferSmaller))
	culler := NewCuller(max(config.PopulationSize/2, 1))
	reproducer := NewReproducer(rng, selector, int(config.Width), ids)

	return &GenerationEngine{
		Config:     config,
		Rand:       rng,
		Evaluator:  evaluator,
		Selector:   selector,
		Culler:     culler,
		Reproducer: reproducer,
		Processor:  NewProcessor(evaluator, selector, culler, reproducer),
		Oracle:     NewOracle(rng, config.EvaluatorConfig),
		Logger:     log.WithField("width", config.Width),
		IDs:        ids,
	}, nil
}

func (ge *GenerationEngine) AddObserver(observers ...GenerationObserver) {
	ge.Observers = append(ge.Observers, observers...)
}

// SeedNetworks places known networks at the front of the initial
// population of every subsequent run.
func (ge *GenerationEngine) SeedNetworks(nets ...network.Network) error {
	if uint(len(ge.seeds)+len(nets)) > ge.Config.PopulationSize {
		return fmt.Errorf("%d seed networks exceed population size %d", len(ge.seeds)+len(nets), ge.Config.PopulationSize)
	}
	for _, net := range nets {
		if err := net.Validate(int(ge.Config.Width)); err != nil {
			return fmt.Errorf("seed network rejected: %w", err)
		}
		ge.seeds = append(ge.seeds, net.Clone())
	}
	return nil
}

// Run dispatches to Evolve or Coevolve.
func (ge *GenerationEngine) Run(ctx context.Context, mode string) (*Result, error) {
	switch mode {
	case ModeEvolve:
		return ge.Evolve(ctx)
	case ModeCoevolve:
		return ge.Coevolve(ctx)
	}
	return nil, fmt.Errorf("%w: unknown mode %q", ErrInvalidConfig, mode)
}

func (ge *GenerationEngine) newPopulation() (*Population, error) {
	pop := NewPopulationFromConfig(ge.Config)
	if err := pop.SynthesizeIndividuals(ge.Rand, ge.IDs, ge.seeds...); err != nil {
		return nil, err
	}
	return pop, nil
}

func (ge *GenerationEngine) observe(ctx context.Context, report *GenerationReport) error {
	for _, o := range ge.Observers {
		if err := o.ObserveGeneration(ctx, report); err != nil {
			return fmt.Errorf("observer failed at generation %d: %w", report.Generation, err)
		}
	}
	return nil
}

func (ge *GenerationEngine) logGeneration(logger *log.Entry, report *GenerationReport) {
	logger.WithFields(log.Fields{
		"generation": report.Generation,
		"best":       report.BestFitness.String(),
		"size":       report.BestSize,
		"mean":       report.MeanFitness,
		"diversity":  report.Diversity,
		"parasites":  report.ParasiteCount,
	}).Debug("generation complete")
}

// Evolve runs the single population loop: for exactly Generations
// generations, score against a fresh sampled batch, keep the top half and
// refill it from the top quarter. The champion is the first member of the
// final population.
func (ge *GenerationEngine) Evolve(ctx context.Context) (*Result, error) {
	logger := ge.Logger.WithField("mode", ModeEvolve)
	pop, err := ge.newPopulation()
	if err != nil {
		return nil, err
	}

	ec := ge.Config.EvaluatorConfig
	source := NewSampledSource(ge.Rand, int(ge.Config.Width), int(ec.ValueRange), int(ec.SampleCount))
	poolSize := max(ge.Config.PopulationSize/4, 1)
	result := &Result{Mode: ModeEvolve, Population: pop}

	for g := uint(0); g < ge.Config.Generations; g++ {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("evolution stopped before generation %d: %w", pop.Generation, err)
		}
		cases, err := source.Cases()
		if err != nil {
			return nil, fmt.Errorf("failed to draw test cases: %w", err)
		}
		report, err := ge.Processor.Process(ctx, pop, cases, poolSize)
		if err != nil {
			return nil, err
		}
		report.Mode = ModeEvolve
		result.History = append(result.History, report.BestFitness.Fraction())
		result.GenerationsRun++
		ge.logGeneration(logger, report)
		if err := ge.observe(ctx, report); err != nil {
			return nil, err
		}
	}

	if err := ge.finish(result, pop.Best()); err != nil {
		return nil, err
	}
	logger.WithFields(log.Fields{
		"generations":  result.GenerationsRun,
		"fitness":      result.Fitness.String(),
		"verification": result.Verification.String(),
		"size":         result.Best.Network.Len(),
	}).Info("evolution finished")
	return result, nil
}

// Coevolve runs the parasite loop. Narrow widths are scored against every
// 0/1 input; wider ones, or any width when parasites are forced, against
// an evolving parasite population. The loop keeps the top half, refills
// from it and stops as soon as the champion is perfect. Against parasites a
// perfect champion must also pass the oracle. If it fails, the oracle's
// counterexample joins the parasites.
func (ge *GenerationEngine) Coevolve(ctx context.Context) (*Result, error) {
	logger := ge.Logger.WithField("mode", ModeCoevolve)
	pop, err := ge.newPopulation()
	if err != nil {
		return nil, err
	}

	width := int(ge.Config.Width)
	ec := ge.Config.EvaluatorConfig
	pc := ge.Config.ParasiteConfig
	var exhaustive TestCaseSource
	var parasites *ParasitePopulation
	if pc.Force || width > int(ec.MaxExhaustiveWidth) {
		if parasites, err = NewParasitePopulation(ge.Rand, width, pc); err != nil {
			return nil, err
		}
		logger.WithField("parasites", parasites.Size()).Info("scoring against evolving parasites")
	} else {
		exhaustive = NewExhaustiveSource(width, int(ec.MaxExhaustiveWidth))
	}

	poolSize := max(ge.Config.PopulationSize/2, 1)
	result := &Result{Mode: ModeCoevolve, Population: pop}

	for g := uint(0); g < ge.Config.Generations; g++ {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("co-evolution stopped before generation %d: %w", pop.Generation, err)
		}

		var cases *Cases
		if parasites != nil {
			cases, err = parasites.Cases()
		} else {
			cases, err = exhaustive.Cases()
		}
		if err != nil {
			return nil, err
		}
		defeats, err := ge.Processor.Score(ctx, pop, cases, parasites != nil)
		if err != nil {
			return nil, err
		}

		report := ge.Processor.Report(pop, cases)
		report.Mode = ModeCoevolve
		best := pop.Best()
		solved := best.Fitness.Perfect()
		var counterexample Vector
		rejected := best.Network
		if parasites != nil {
			report.ParasiteCount = uint(parasites.Size())
			if err := parasites.Score(defeats); err != nil {
				return nil, err
			}
			if solved {
				v, found, err := ge.Oracle.Counterexample(best.Network, width)
				if err != nil {
					return nil, err
				}
				if found {
					solved = false
					counterexample = v
				}
			}
		}

		result.History = append(result.History, report.BestFitness.Fraction())
		result.GenerationsRun++
		ge.logGeneration(logger, report)

		if solved {
			if err := ge.observe(ctx, report); err != nil {
				return nil, err
			}
			result.Solved = true
			logger.WithField("generation", report.Generation).Info("champion sorts every input, stopping early")
			if err := ge.finish(result, best); err != nil {
				return nil, err
			}
			return result, nil
		}

		ge.Processor.Advance(pop, poolSize, report)
		if parasites != nil {
			report.ParasiteMutations = parasites.Evolve()
			if counterexample != nil {
				counterexample = ge.asParasite(rejected, counterexample)
				if err := parasites.Inject(counterexample); err != nil {
					return nil, err
				}
				logger.WithField("counterexample", fmt.Sprint(counterexample)).Debug("oracle rejected champion")
			}
		}
		if err := ge.observe(ctx, report); err != nil {
			return nil, err
		}
	}

	if err := ge.finish(result, pop.Best()); err != nil {
		return nil, err
	}
	logger.WithFields(log.Fields{
		"generations":  result.GenerationsRun,
		"fitness":      result.Fitness.String(),
		"verification": result.Verification.String(),
	}).Info("co-evolution finished without a verified champion")
	return result, nil
}

// asParasite converts an oracle counterexample to the parasites' encoding:
// 0/1 vectors for binary parasites, permutations otherwise.
func (ge *GenerationEngine) asParasite(net network.Network, v Vector) Vector {
	binary := isBinaryVector(v)
	switch {
	case ge.Config.ParasiteConfig.Binary && !binary:
		if b, ok := BinaryCounterexample(net, v); ok {
			return b
		}
	case !ge.Config.ParasiteConfig.Binary && binary:
		return LiftBinary(v)
	}
	return v
}

func (ge *GenerationEngine) finish(result *Result, best *Individual) error {
	width := int(ge.Config.Width)
	verification, err := ge.Oracle.Verify(best.Network, width)
	if err != nil {
		return err
	}
	result.Best = best.Clone()
	result.Fitness = best.Fitness
	result.Verification = verification
	result.Proven = ge.Oracle.Exhaustive(width) && verification.Perfect()
	if result.Mode == ModeEvolve {
		result.Solved = result.Proven
	}
	return nil
}
