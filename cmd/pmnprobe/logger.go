package main

import (
	"io"
	"log/slog"

	"github.com/use-agent/pmnprobe/config"
)

// initLogger configures slog based on the LogConfig. Logs go to w so that
// stdout stays reserved for progress lines.
func initLogger(cfg config.LogConfig, verbose bool, w io.Writer) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	if verbose {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	slog.SetDefault(slog.New(handler))
}
