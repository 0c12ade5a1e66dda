package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"nickandperla.net/sortnet"
	"nickandperla.net/sortnet/network"
)

func newBatcherCommand() *cobra.Command {
	var width int
	var mergeExchange bool
	cmd := &cobra.Command{
		Use:   "batcher",
		Short: "Print Batcher's recursive odd-even merge network and verify it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if width < 0 {
				return fmt.Errorf("width must not be negative, got %d", width)
			}
			net := network.Recursive(width)
			name := "odd-even merge"
			if mergeExchange {
				net = network.MergeExchange(width)
				name = "merge exchange"
			}
			if !network.IsPowerOfTwo(width) && !mergeExchange {
				fmt.Fprintf(os.Stderr, "warning: %d is not a power of two, the recursive network may not sort\n", width)
			}

			oracle := sortnet.NewOracle(sortnet.NewRand(seedFlag), nil)
			fit, err := oracle.Verify(net, width)
			if err != nil {
				return err
			}
			fmt.Printf("%s, n=%d: %d comparators, depth %d\n", name, width, net.Len(), net.Depth())
			fmt.Printf("Verification: %s\n", fit)
			fmt.Println(net)
			return nil
		},
	}
	cmd.Flags().IntVar(&width, "width", 16, "Number of lines n")
	cmd.Flags().BoolVar(&mergeExchange, "merge-exchange", false, "Use merge exchange, which sorts for every n")
	return cmd
}
