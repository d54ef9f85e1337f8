// Package observability provides logging initialization.
package observability

import (
	"log/slog"
	"os"

	"golang.org/x/term"

	"github.com/castellan/castellan/internal/config"
)

// InitSlog initializes a logger with the given config. When running in a
// terminal, it uses a human-readable text format; otherwise it uses JSON for
// structured logging.
func InitSlog(cfg *config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{
		AddSource: cfg.DevMode,
		Level:     toLogLevel(cfg.LogLevel),
	}
	var handler slog.Handler
	if term.IsTerminal(int(os.Stdin.Fd())) {
		handler = slog.NewTextHandler(os.Stderr, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	}
	return slog.New(handler)
}

func toLogLevel(lvl string) slog.Level {
	switch lvl {
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
