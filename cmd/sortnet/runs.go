package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

func newRunsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List persisted runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			persist := openPersistence(loadToolConfig(cmd))
			defer persist.Shutdown()

			runs, err := persist.ListRuns()
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "RUN\tMODE\tN\tGENERATIONS\tSOLVED\tSIZE\tVERIFIED\tSTARTED")
			for _, run := range runs {
				fmt.Fprintf(tw, "%s\t%s\t%d\t%d/%d\t%t\t%d\t%d/%d\t%s\n",
					run.UUID, run.Mode, run.Width, run.GenerationsRun, run.Generations,
					run.Solved, run.BestSize, run.BestPassed, run.BestTotal, humanize.Time(run.CreatedAt))
			}
			return tw.Flush()
		},
	}
	cmd.AddCommand(newRunsShowCommand(), newRunsPruneCommand())
	return cmd
}

func newRunsShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show <run>",
		Short: "Print the generation history of a run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			persist := openPersistence(loadToolConfig(cmd))
			defer persist.Shutdown()

			run, err := persist.LoadRun(args[0])
			if err != nil {
				return err
			}
			fmt.Printf("Run %s: %s, n=%d, seed %d\n", run.UUID, run.Mode, run.Width, run.Seed)
			tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "GEN\tBEST\tMEAN\tSIZE\tDIVERSITY\tPARASITES")
			for _, r := range run.Records {
				fmt.Fprintf(tw, "%d\t%d/%d\t%.4f\t%d\t%.2f\t%d\n",
					r.Generation, r.BestPassed, r.BestTotal, r.MeanFitness, r.BestSize, r.Diversity, r.ParasiteCount)
			}
			return tw.Flush()
		},
	}
}

func newRunsPruneCommand() *cobra.Command {
	var keep int
	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete all but the newest runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			persist := openPersistence(loadToolConfig(cmd))
			defer persist.Shutdown()

			result, err := persist.Prune(keep)
			if err != nil {
				return err
			}
			fmt.Printf("Prune complete, kept the newest %d runs:\n", keep)
			fmt.Printf("  Runs deleted:         %s\n", humanize.Comma(result.DeletedRuns))
			fmt.Printf("  Generations deleted:  %s\n", humanize.Comma(result.DeletedRecords))
			fmt.Printf("  Networks deleted:     %s\n", humanize.Comma(result.DeletedNetworks))
			return nil
		},
	}
	cmd.Flags().IntVar(&keep, "keep", 10, "Number of runs to keep")
	return cmd
}
