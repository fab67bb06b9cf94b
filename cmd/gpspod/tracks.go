package main

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

func newTracksCommand(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "tracks",
		Short: "List recorded tracks",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, closeFn, err := flags.connect()
			if err != nil {
				return err
			}
			defer closeFn()

			tracks, err := client.LoadTracks()
			if err != nil {
				return err
			}
			for i, tr := range tracks {
				status := ""
				if tr.Truncated {
					status = " (truncated)"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%3d  %s  %-8s  %-9s  %d samples%s  id=%s\n",
					i,
					tr.StartTime.Format("2006-01-02 15:04:05"),
					humanize.Comma(int64(tr.Distance))+"m",
					tr.Duration,
					len(tr.Samples),
					status,
					tr.ID,
				)
			}
			return nil
		},
	}
}
