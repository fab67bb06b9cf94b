package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newStatusCommand(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Print device status (battery level)",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, closeFn, err := flags.connect()
			if err != nil {
				return err
			}
			defer closeFn()

			status, err := client.DeviceStatus()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Charge: %d%%\n", status.BatteryPercent)
			return nil
		},
	}
}
