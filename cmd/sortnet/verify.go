package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"nickandperla.net/sortnet"
	"nickandperla.net/sortnet/network"
)

func newVerifyCommand() *cobra.Command {
	var width int
	var runID string
	cmd := &cobra.Command{
		Use:   `verify [--width n] "0:1 2:3 ..."`,
		Short: "Check whether a network sorts every input",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var net network.Network
			var err error
			switch {
			case runID != "":
				persist := openPersistence(loadToolConfig(cmd))
				defer persist.Shutdown()
				var record *sortnet.NetworkRecord
				if net, record, err = persist.BestNetwork(runID); err != nil {
					return err
				}
				if !cmd.Flags().Changed("width") {
					width = int(record.Width)
				}
			case len(args) > 0:
				if net, err = network.Parse(strings.Join(args, " ")); err != nil {
					return err
				}
			default:
				return errors.New("give a network or --run")
			}

			oracle := sortnet.NewOracle(sortnet.NewRand(seedFlag), nil)
			fit, err := oracle.Verify(net, width)
			if err != nil {
				return err
			}
			kind := "sampled"
			if oracle.Exhaustive(width) {
				kind = "exhaustive 0/1"
			}
			fmt.Printf("n=%d, %d comparators, depth %d\n", width, net.Len(), net.Depth())
			fmt.Printf("Verification (%s): %s\n", kind, fit)
			if fit.Perfect() {
				fmt.Println("sorting network: yes")
				return nil
			}
			if v, found, err := oracle.Counterexample(net, width); err == nil && found {
				fmt.Printf("counterexample: %v -> %v\n", v, network.Apply(v.Clone(), net))
			}
			fmt.Println("sorting network: no")
			return nil
		},
	}
	cmd.Flags().IntVar(&width, "width", 16, "Number of lines n")
	cmd.Flags().StringVar(&runID, "run", "", "Verify the champion of a persisted run")
	return cmd
}
