// Package gpslog wires the CLI's --log-level flag to the standard
// log/slog handler used throughout the client (see internal/gpspacket,
// internal/gpscmd, internal/session for direct slog.* call sites).
package gpslog

import (
	"fmt"
	"io"
	"log/slog"
)

const HelpLevels = "Must be one of: error, warn, info, debug."

// Init installs a text handler on out at the named level and makes it the
// process-wide default logger.
func Init(out io.Writer, levelName string) error {
	level, err := parseLevel(levelName)
	if err != nil {
		return err
	}
	handler := slog.NewTextHandler(out, &slog.HandlerOptions{Level: level})
	slog.SetDefault(slog.New(handler))
	return nil
}

func parseLevel(name string) (slog.Level, error) {
	if name == "" {
		return slog.LevelInfo, nil
	}
	switch name {
	case "error":
		return slog.LevelError, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q. %s", name, HelpLevels)
	}
}
