package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/conorfennell/flashdeck/internal/config"
)

// New creates a *slog.Logger writing to stderr and sets it as the default.
//
// Format "json" produces structured JSON output; anything else produces
// human-readable text. Level is one of debug, info, warn, error
// (case-insensitive) and defaults to info.
func New(cfg config.LogConfig) *slog.Logger {
	logger := NewWithWriter(cfg, os.Stderr)
	slog.SetDefault(logger)
	return logger
}

// NewWithWriter is New without touching the default logger.
func NewWithWriter(cfg config.LogConfig, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(cfg.Level)}

	var handler slog.Handler
	if strings.EqualFold(cfg.Format, "json") {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler)
}

// Discard returns a logger that drops everything, for tests.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
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
