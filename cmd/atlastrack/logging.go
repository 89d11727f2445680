package main

import (
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/lmittmann/tint"

	"github.com/atlastrack/atlastrack/internal/config"
)

// setupLogging installs the default slog logger. The --debug and --log-format
// flags win over the config file.
func setupLogging(w io.Writer, cfg config.LoggingConfig) *slog.Logger {
	level := parseLevel(cfg.Level)
	if debug {
		level = slog.LevelDebug
	}
	format := cfg.Format
	if logFormat != "" {
		format = logFormat
	}

	var h slog.Handler
	switch format {
	case "text":
		h = tint.NewHandler(w, &tint.Options{Level: level, TimeFormat: time.RFC3339})
	default:
		h = slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})
	}
	logger := slog.New(h)
	slog.SetDefault(logger)
	return logger
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
