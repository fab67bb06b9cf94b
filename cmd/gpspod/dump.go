package main

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/ivorwanders-go/gpspod/internal/pmem/memview"
)

func newDumpCommand(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "dump <path>",
		Short: "Dump the entire memory region to a file, for later use with --fs",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, closeFn, err := flags.connect()
			if err != nil {
				return err
			}
			defer closeFn()

			if err := client.DumpMemory(args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s to %s\n", humanize.Bytes(uint64(memview.RegionSize)), args[0])
			return nil
		},
	}
}
