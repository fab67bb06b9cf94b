package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/ivorwanders-go/gpspod/internal/gpslog"
	"github.com/ivorwanders-go/gpspod/internal/hidtransport"
	"github.com/ivorwanders-go/gpspod/internal/pmem/memview"
	"github.com/ivorwanders-go/gpspod/internal/session"
	"github.com/ivorwanders-go/gpspod/pkg/gpspod"
)

// Flag/env var names, following the LogLevelOptionName convention in
// jinr-greenlab-go-adc/cmd/root.go.
const (
	FSOptionName                = "fs"
	RecordOptionName            = "record"
	ReadTimeoutOptionName       = "read-timeout"
	ReadSleepMinSizeOptionName  = "read-sleep-minsize"
	ReadSleepDurationOptionName = "read-sleep-duration"
	CacheDirOptionName          = "cache-dir"
	LogLevelOptionName          = "log-level"
)

type globalFlags struct {
	fs                string
	record            string
	readTimeoutMs     int
	readSleepMinSize  int
	readSleepDuration int
	cacheDir          string
	logLevel          string
}

func newRootCommand() *cobra.Command {
	flags := &globalFlags{}
	cmd := &cobra.Command{
		Use:   "gpspod",
		Short: "Talk to a GpsPod GPS recording device over USB HID",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return gpslog.Init(cmd.ErrOrStderr(), envOr(flags.logLevel, "GPSPOD_LOG_LEVEL"))
		},
	}

	cmd.PersistentFlags().StringVar(&flags.fs, FSOptionName, "", "Operate against a previously-dumped memory image instead of a live device.")
	cmd.PersistentFlags().StringVar(&flags.record, RecordOptionName, "", "Tee live traffic to a session recording at this path (.gz for gzip).")
	cmd.PersistentFlags().IntVar(&flags.readTimeoutMs, ReadTimeoutOptionName, 0, "Milliseconds per transport read. Env: GPSPOD_READ_TIMEOUT.")
	cmd.PersistentFlags().IntVar(&flags.readSleepMinSize, ReadSleepMinSizeOptionName, 0, "Bytes threshold above which to pause after a read. Env: GPSPOD_READ_SLEEP_MINSIZE.")
	cmd.PersistentFlags().IntVar(&flags.readSleepDuration, ReadSleepDurationOptionName, 0, "Milliseconds to pause after a large read. Env: GPSPOD_READ_SLEEP_DURATION.")
	cmd.PersistentFlags().StringVar(&flags.cacheDir, CacheDirOptionName, "", "Directory for the bolt-backed memory view cache. Env: GPSPOD_CACHE_DIR.")
	cmd.PersistentFlags().StringVar(&flags.logLevel, LogLevelOptionName, "", fmt.Sprintf("Log level. %s Env: GPSPOD_LOG_LEVEL.", gpslog.HelpLevels))

	cmd.AddCommand(newDeviceCommand(flags))
	cmd.AddCommand(newStatusCommand(flags))
	cmd.AddCommand(newSettingsCommand(flags))
	cmd.AddCommand(newTracksCommand(flags))
	cmd.AddCommand(newRetrieveCommand(flags))
	cmd.AddCommand(newDumpCommand(flags))
	cmd.AddCommand(newDebugCommand(flags))

	return cmd
}

// envOr returns flagValue if non-empty, otherwise the named environment
// variable (which may also be empty, in which case the callee applies its
// own default).
func envOr(flagValue, envName string) string {
	if flagValue != "" {
		return flagValue
	}
	return os.Getenv(envName)
}

func envOrInt(flagValue int, envName string) int {
	if flagValue != 0 {
		return flagValue
	}
	if v := os.Getenv(envName); v != "" {
		var parsed int
		if _, err := fmt.Sscanf(v, "%d", &parsed); err == nil {
			return parsed
		}
	}
	return 0
}

// pacing resolves the three read-pacing knobs from flags, falling back to
// their environment variables and finally hidtransport.DefaultPacing.
func (f *globalFlags) pacing() hidtransport.Pacing {
	p := hidtransport.DefaultPacing
	if ms := envOrInt(f.readTimeoutMs, "GPSPOD_READ_TIMEOUT"); ms != 0 {
		p.ReadTimeout = time.Duration(ms) * time.Millisecond
	}
	if n := envOrInt(f.readSleepMinSize, "GPSPOD_READ_SLEEP_MINSIZE"); n != 0 {
		p.ReadSleepMinSize = n
	}
	if ms := envOrInt(f.readSleepDuration, "GPSPOD_READ_SLEEP_DURATION"); ms != 0 {
		p.ReadSleepDuration = time.Duration(ms) * time.Millisecond
	}
	return p
}

// connect opens either a live device or an offline dump according to
// --fs, applying --record and --cache-dir as configured. The returned
// closer must be called once the caller is done with the client.
func (f *globalFlags) connect() (*gpspod.Client, func() error, error) {
	if f.fs != "" {
		return gpspod.OpenFile(f.fs)
	}

	pacing := f.pacing()
	dev, info, err := hidtransport.OpenWithInfo()
	if err != nil {
		return nil, nil, err
	}
	dev = hidtransport.WithPacing(dev, pacing)

	var recorder *session.Recorder
	if f.record != "" {
		recorder = session.NewRecorder(dev)
	}

	var transport interface {
		WriteReport([]byte) error
		ReadReport(time.Duration) ([]byte, error)
	} = dev
	if recorder != nil {
		transport = recorder
	}

	cache, err := f.openCache(info.SerialNumber)
	if err != nil {
		dev.Close()
		return nil, nil, err
	}

	client := gpspod.New(transport, pacing.ReadTimeout, cache)

	closeAll := func() error {
		var firstErr error
		if recorder != nil {
			if err := recorder.Save(f.record); err != nil {
				firstErr = err
			}
		}
		if bc, ok := cache.(*memview.BoltCache); ok {
			if err := bc.Close(); err != nil && firstErr == nil {
				firstErr = err
			}
		}
		if err := dev.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		return firstErr
	}
	return client, closeAll, nil
}

// openCache resolves --cache-dir/GPSPOD_CACHE_DIR into a bolt-backed
// persistent cache keyed by the device's serial number, or nil when no
// cache directory is configured (leaving the client in-process-cache-only).
func (f *globalFlags) openCache(serial string) (memview.Cache, error) {
	dir := envOr(f.cacheDir, "GPSPOD_CACHE_DIR")
	if dir == "" || serial == "" {
		return nil, nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	path := filepath.Join(dir, "gpspod-cache.db")
	return memview.OpenBoltCache(path, serial)
}
