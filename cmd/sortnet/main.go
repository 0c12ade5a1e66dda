package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
	"github.com/pkg/profile"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"nickandperla.net/sortnet"
)

var (
	toolConfigPath string
	popConfigPath  string
	dbPath         string
	metricsAddr    string
	cpuProfilePath string
	logLevel       string
	seedFlag       int64

	profiler interface{ Stop() }
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          "sortnet",
		Short:        "Synthesize and verify sorting networks",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := setupLogging(logLevel); err != nil {
				return err
			}
			if cpuProfilePath != "" {
				profiler = profile.Start(profile.CPUProfile, profile.ProfilePath(cpuProfilePath), profile.NoShutdownHook)
			}
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if profiler != nil {
				profiler.Stop()
			}
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&toolConfigPath, "config", "", "The config file for sortnet tools to use (toml or yaml)")
	flags.StringVar(&popConfigPath, "popconfig", "", "Population config (toml or yaml). Defaults depend on the mode")
	flags.StringVar(&dbPath, "db", "", "Persist runs to this sqlite file, overriding the tool config")
	flags.StringVar(&metricsAddr, "metrics-addr", "", "Serve prometheus metrics on this address, e.g. :9090")
	flags.StringVar(&cpuProfilePath, "cpuprofile", "", "Write a CPU profile into this directory")
	flags.StringVar(&logLevel, "log-level", "info", "Log level: debug, info, warn or error")
	flags.Int64Var(&seedFlag, "seed", 0, "Random seed; 0 seeds from the clock")

	root.AddCommand(
		newEvolveCommand(sortnet.ModeEvolve),
		newEvolveCommand(sortnet.ModeCoevolve),
		newBatcherCommand(),
		newVerifyCommand(),
		newRunsCommand(),
	)
	return root
}

// setupLogging colours output on a terminal and keeps it plain when piped.
func setupLogging(level string) error {
	lvl, err := log.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("bad --log-level: %w", err)
	}
	log.SetLevel(lvl)

	fd := os.Stderr.Fd()
	if isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd) {
		log.SetFormatter(&log.TextFormatter{ForceColors: true, FullTimestamp: true})
		log.SetOutput(colorable.NewColorableStderr())
	} else {
		log.SetFormatter(&log.TextFormatter{DisableColors: true, FullTimestamp: true})
		log.SetOutput(os.Stderr)
	}
	return nil
}

// loadToolConfig reads --config when given. --db, --seed and --metrics-addr
// override it.
func loadToolConfig(cmd *cobra.Command) *sortnet.ToolConfig {
	toolConfig := &sortnet.ToolConfig{}
	if toolConfigPath != "" {
		var err error
		if toolConfig, err = sortnet.LoadToolConfig(toolConfigPath); err != nil {
			log.Fatalf("Unable to load sortnet config: %v", err)
		}
	}
	if dbPath != "" {
		toolConfig.Persistence = &sortnet.PersistenceConfig{
			Path:          filepath.Dir(dbPath),
			Name:          filepath.Base(dbPath),
			SQLitePragmas: []string{"journal_mode=WAL"},
		}
	}
	if cmd.Flags().Changed("seed") {
		toolConfig.Seed = seedFlag
	}
	if cmd.Flags().Changed("metrics-addr") {
		toolConfig.MetricsAddr = metricsAddr
	}
	if toolConfig.LogLevel != "" && !cmd.Flags().Changed("log-level") {
		if err := setupLogging(toolConfig.LogLevel); err != nil {
			log.Fatalf("Invalid log_level in tool config: %v", err)
		}
	}
	return toolConfig
}

func openPersistence(toolConfig *sortnet.ToolConfig) *sortnet.Persistence {
	if toolConfig.Persistence == nil {
		log.Fatalf("No database configured: pass --db or set [persistence] in the tool config")
	}
	persist, err := sortnet.NewPersistence(toolConfig.Persistence)
	if err != nil {
		log.Fatalf("Failed to create or initialize Persistence: %v", err)
	}
	return persist
}
