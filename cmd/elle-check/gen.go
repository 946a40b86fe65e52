package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jepsen-go/elle-core/pkg/workload"
)

var (
	txnCountFlag int
	seedFlag     int64
	keyDistFlag  string
	keyCountFlag uint
	minLenFlag   uint
	maxLenFlag   uint
)

func newGenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "gen",
		Short: "Generate a synthetic rw-register workload",
		PreRunE: func(cmd *cobra.Command, args []string) error {
			if keyDistFlag != "uniform" && keyDistFlag != "exponential" {
				return fmt.Errorf("key-dist must be uniform or exponential, got %q", keyDistFlag)
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := workload.DefaultOpts()
			if keyDistFlag == "uniform" {
				opts.KeyDist = workload.Uniform
			}
			opts.KeyCount = keyCountFlag
			opts.MinTxnLength = minLenFlag
			opts.MaxTxnLength = maxLenFlag

			gen := workload.NewGenerator(opts, seedFlag)
			for i := 0; i < txnCountFlag; i++ {
				fmt.Println(gen.GenOp().String())
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&txnCountFlag, "txns", "n", 100, "number of transactions to emit")
	cmd.Flags().Int64Var(&seedFlag, "seed", 0, "random seed")
	cmd.Flags().StringVar(&keyDistFlag, "key-dist", "exponential", "key distribution: uniform or exponential")
	cmd.Flags().UintVar(&keyCountFlag, "key-count", 0, "active key pool size (0 picks the distribution's default)")
	cmd.Flags().UintVar(&minLenFlag, "min-txn-length", 1, "minimum mops per transaction")
	cmd.Flags().UintVar(&maxLenFlag, "max-txn-length", 2, "maximum mops per transaction")
	return cmd
}
