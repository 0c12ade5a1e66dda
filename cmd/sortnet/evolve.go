package main

import (
	"context"
	"fmt"
	"io"
	"math/rand"
	"os"
	"os/signal"

	"github.com/dustin/go-humanize"
	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"nickandperla.net/sortnet"
)

type evolveOptions struct {
	width          uint
	maxComparators uint
	generations    uint
	population     uint
	workers        int
	preferSmaller  bool
	forceParasites bool
	seedReference  bool
}

func newEvolveCommand(mode string) *cobra.Command {
	opts := &evolveOptions{}
	short := "Evolve a sorting network against sampled permutations"
	if mode == sortnet.ModeCoevolve {
		short = "Co-evolve a sorting network against 0/1 inputs or parasites"
	}
	cmd := &cobra.Command{
		Use:   mode,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEvolve(cmd, mode, opts)
		},
	}
	flags := cmd.Flags()
	flags.UintVar(&opts.width, "width", 0, "Number of lines n")
	flags.UintVar(&opts.maxComparators, "comparators", 0, "Comparators in each initial random network")
	flags.UintVar(&opts.generations, "generations", 0, "Generation count G")
	flags.UintVar(&opts.population, "population", 0, "Population size P")
	flags.IntVar(&opts.workers, "workers", 0, "Parallel fitness workers")
	flags.BoolVar(&opts.preferSmaller, "prefer-smaller", false, "Break fitness ties in favour of fewer comparators")
	flags.BoolVar(&opts.seedReference, "seed-reference", false, "Seed the population with the reference network")
	if mode == sortnet.ModeCoevolve {
		flags.BoolVar(&opts.forceParasites, "parasites", false, "Evolve parasites even when 0/1 inputs are tractable")
	}
	return cmd
}

func loadPopulationConfig(cmd *cobra.Command, mode string, opts *evolveOptions) *sortnet.PopulationConfig {
	var config *sortnet.PopulationConfig
	switch {
	case popConfigPath != "":
		var err error
		if config, err = sortnet.LoadPopulationConfig(popConfigPath); err != nil {
			log.Fatalf("Unable to load population config: %v", err)
		}
	case mode == sortnet.ModeCoevolve:
		config = sortnet.DefaultCoevolutionConfig()
	default:
		config = sortnet.DefaultPopulationConfig()
	}

	flags := cmd.Flags()
	if flags.Changed("width") {
		config.Width = opts.width
	}
	if flags.Changed("comparators") {
		config.MaxComparators = opts.maxComparators
	}
	if flags.Changed("generations") {
		config.Generations = opts.generations
	}
	if flags.Changed("population") {
		config.PopulationSize = opts.population
	}
	if flags.Changed("workers") {
		config.EvaluatorConfig.Workers = opts.workers
	}
	if flags.Changed("prefer-smaller") {
		config.PreferSmaller = opts.preferSmaller
	}
	if opts.forceParasites {
		config.ParasiteConfig.Force = true
	}
	return config
}

func runEvolve(cmd *cobra.Command, mode string, opts *evolveOptions) error {
	toolConfig := loadToolConfig(cmd)
	popConfig := loadPopulationConfig(cmd, mode, opts)

	seed := sortnet.ResolveSeed(toolConfig.Seed)
	rng := sortnet.NewRand(seed)
	engine, err := sortnet.NewGenerationEngine(popConfig, rng)
	if err != nil {
		return err
	}
	width := int(popConfig.Width)
	if opts.seedReference {
		if err := engine.SeedNetworks(engine.Oracle.Reference(width)); err != nil {
			return err
		}
	}

	if toolConfig.MetricsAddr != "" {
		reg := prometheus.NewRegistry()
		collector, err := sortnet.NewCollector(reg, mode, popConfig.Width)
		if err != nil {
			return err
		}
		engine.AddObserver(collector)
		srv := startMetricsServer(toolConfig.MetricsAddr, reg)
		defer stopMetricsServer(srv)
	}

	var persist *sortnet.Persistence
	var run *sortnet.Run
	if toolConfig.Persistence != nil {
		persist = openPersistence(toolConfig)
		defer persist.Shutdown()
		if run, err = persist.CreateRun(mode, popConfig, seed); err != nil {
			return err
		}
		engine.AddObserver(persist.Recorder(run))
		log.WithField("run", run.UUID).Info("recording run")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	log.WithFields(log.Fields{
		"mode":        mode,
		"width":       popConfig.Width,
		"population":  popConfig.PopulationSize,
		"generations": popConfig.Generations,
		"seed":        seed,
	}).Info("starting")

	result, err := engine.Run(ctx, mode)
	if err != nil {
		return err
	}
	if persist != nil {
		if err := persist.FinishRun(run, result); err != nil {
			return err
		}
	}
	printResult(os.Stdout, engine, result, rng)
	return nil
}

func printResult(w io.Writer, engine *sortnet.GenerationEngine, result *sortnet.Result, rng *rand.Rand) {
	width := int(engine.Config.Width)
	best := result.Best.Network
	reference := engine.Oracle.Reference(width)

	verdict := "sampled"
	if engine.Oracle.Exhaustive(width) {
		verdict = "exhaustive 0/1"
	}
	fmt.Fprintf(w, "Mode:            %s\n", result.Mode)
	fmt.Fprintf(w, "Generations run: %d of %d\n", result.GenerationsRun, engine.Config.Generations)
	fmt.Fprintf(w, "Solved:          %t\n", result.Solved)
	fmt.Fprintf(w, "Fitness:         %s\n", result.Fitness)
	fmt.Fprintf(w, "Verification:    %s (%s)\n", result.Verification, verdict)
	fmt.Fprintf(w, "Size:            %d comparators, depth %d\n", best.Len(), best.Depth())
	fmt.Fprintf(w, "Reference size:  %d comparators, depth %d\n", reference.Len(), reference.Depth())
	fmt.Fprintf(w, "Evaluations:     %s\n", humanize.Comma(int64(engine.Evaluator.Evaluations())))

	if width > 0 {
		sample := rng.Perm(width * 4)[:width]
		fmt.Fprintf(w, "Random check:    %v -> %t\n", sample, sortnet.ValidateAgainstSort(best, sample))
	}
	fmt.Fprintf(w, "Network:\n%s\n", best)
}
