package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ivorwanders-go/gpspod/internal/hidtransport"
	"github.com/ivorwanders-go/gpspod/internal/session"
	"github.com/ivorwanders-go/gpspod/pkg/gpspod"
)

func newDebugCommand(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "debug",
		Short: "Diagnostic subcommands",
	}
	cmd.AddCommand(newDebugReplayCommand(flags))
	cmd.AddCommand(newDebugUSBListCommand())
	return cmd
}

func newDebugReplayCommand(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "replay <recording>",
		Short: "Replay a captured JSON session and print the device info it reports",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			transcript, err := session.LoadTranscript(args[0])
			if err != nil {
				return err
			}
			player := session.NewPlayer(transcript)
			client := gpspod.New(player, gpspod.DefaultReadTimeout, nil)

			info, err := client.DeviceInfo()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Replayed device info: %+v\n", info)
			return nil
		},
	}
}

func newDebugUSBListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "usb-list",
		Short: "Enumerate matching HID devices without opening one",
		RunE: func(cmd *cobra.Command, args []string) error {
			devices, err := hidtransport.EnumerateRaw()
			if err != nil {
				return err
			}
			for _, d := range devices {
				fmt.Fprintf(cmd.OutOrStdout(), "%s  VID:0x%04X PID:0x%04X  %s %s  serial=%s\n",
					d.Path, d.VendorID, d.ProductID, d.Manufacturer, d.Product, d.SerialNumber)
			}
			return nil
		},
	}
}
