package internal

import (
	"io"
	"log/slog"
	"time"
)

// NewLogger builds the process logger. Prod deployments emit JSON for the
// log shipper; everything else gets human-readable text. Level strings are
// validated by NewConfig, so an unknown value simply falls back to info.
func NewLogger(w io.Writer, env string, level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: lvl}
	if env != "prod" {
		return slog.New(slog.NewTextHandler(w, opts))
	}

	// Nanosecond RFC3339 timestamps keep event ordering stable when log
	// lines from concurrent requests interleave.
	opts.ReplaceAttr = func(groups []string, a slog.Attr) slog.Attr {
		if a.Key == slog.TimeKey {
			return slog.String("time", a.Value.Time().Format(time.RFC3339Nano))
		}
		return a
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}
