package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/oklog/ulid"
	"github.com/spf13/cobra"

	"github.com/ivorwanders-go/gpspod/internal/gpserr"
	"github.com/ivorwanders-go/gpspod/internal/gpx"
	"github.com/ivorwanders-go/gpspod/internal/samples"
)

func newRetrieveCommand(flags *globalFlags) *cobra.Command {
	var output string
	var noLapSplitsSegment, lapAddsWpt, noPoints bool

	cmd := &cobra.Command{
		Use:   "retrieve <n>",
		Short: "Download and export one track as GPX. <n> may be a list index or a track's ULID.",
		Args:  cobra.ExactArgs(1),
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
			track, err := selectTrack(tracks, args[0])
			if err != nil {
				return err
			}

			opts := gpx.DefaultOptions()
			opts.LapSplitsSegment = !noLapSplitsSegment
			opts.LapAddsWaypoint = lapAddsWpt
			opts.WritePoints = !noPoints

			out := cmd.OutOrStdout()
			if output != "" {
				f, err := os.Create(output)
				if err != nil {
					return gpserr.New(gpserr.Usage, "retrieve", err)
				}
				defer f.Close()
				out = f
			}
			return gpx.Write(out, track, opts)
		},
	}

	cmd.Flags().StringVar(&output, "output", "", "Write GPX to this path instead of stdout.")
	cmd.Flags().BoolVar(&noLapSplitsSegment, "no-lap-splits-segment", false, "Don't start a new track segment at every lap.")
	cmd.Flags().BoolVar(&lapAddsWpt, "lap-adds-wpt", true, "Emit a waypoint for every lap.")
	cmd.Flags().BoolVar(&noPoints, "no-points", false, "Don't emit any trkpt elements.")
	return cmd
}

// selectTrack resolves n as either a decimal list index into tracks or a
// track's ULID string.
func selectTrack(tracks []samples.Track, n string) (samples.Track, error) {
	if idx, err := strconv.Atoi(n); err == nil {
		if idx < 0 || idx >= len(tracks) {
			return samples.Track{}, gpserr.New(gpserr.Usage, "retrieve", fmt.Errorf("track index %d out of range (have %d tracks)", idx, len(tracks)))
		}
		return tracks[idx], nil
	}

	id, err := ulid.Parse(n)
	if err != nil {
		return samples.Track{}, gpserr.New(gpserr.Usage, "retrieve", fmt.Errorf("%q is neither a track index nor a valid ULID", n))
	}
	for _, tr := range tracks {
		if tr.ID == id {
			return tr, nil
		}
	}
	return samples.Track{}, gpserr.New(gpserr.Usage, "retrieve", fmt.Errorf("no track with id %s", id))
}
