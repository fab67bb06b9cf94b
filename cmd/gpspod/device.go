package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newDeviceCommand(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "device",
		Short: "Print device identification info",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, closeFn, err := flags.connect()
			if err != nil {
				return err
			}
			defer closeFn()

			info, err := client.DeviceInfo()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Model:             %s\n", info.Model)
			fmt.Fprintf(cmd.OutOrStdout(), "Serial number:     %s\n", info.SerialNumber)
			fmt.Fprintf(cmd.OutOrStdout(), "Firmware version:  %s\n", info.FirmwareVersion)
			fmt.Fprintf(cmd.OutOrStdout(), "Hardware version:  %s\n", info.HardwareVersion)
			fmt.Fprintf(cmd.OutOrStdout(), "Bootloader version: %s\n", info.BootloaderVersion)
			return nil
		},
	}
}
