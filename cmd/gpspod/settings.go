package main

import (
	"encoding/hex"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/ivorwanders-go/gpspod/internal/gpserr"
)

func newSettingsCommand(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Read or write the device's settings blob",
	}
	cmd.AddCommand(newSettingsGetCommand(flags))
	cmd.AddCommand(newSettingsSetCommand(flags))
	return cmd
}

func newSettingsGetCommand(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "get",
		Short: "Print the raw settings blob as hex",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, closeFn, err := flags.connect()
			if err != nil {
				return err
			}
			defer closeFn()

			data, err := client.ReadSettings()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), hex.EncodeToString(data))
			return nil
		},
	}
}

func newSettingsSetCommand(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "set <offset> <hex-bytes>",
		Short: "Write hex-encoded bytes at an offset within the settings blob",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			offset, err := strconv.ParseUint(args[0], 0, 16)
			if err != nil {
				return gpserr.New(gpserr.Usage, "settings set", fmt.Errorf("invalid offset %q: %w", args[0], err))
			}
			data, err := hex.DecodeString(args[1])
			if err != nil {
				return gpserr.New(gpserr.Usage, "settings set", fmt.Errorf("invalid hex bytes %q: %w", args[1], err))
			}

			client, closeFn, err := flags.connect()
			if err != nil {
				return err
			}
			defer closeFn()

			return client.WriteSetting(uint16(offset), data)
		},
	}
}
