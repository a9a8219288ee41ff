// Package logging builds the process logger.
package logging

import (
	"io"
	"log/slog"
	"strings"

	"github.com/hpn/grok-manifold/internal/config"
	"github.com/hpn/grok-manifold/internal/security"
)

// ParseLevel maps a config level name to an slog level. Unknown names mean info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
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

// New creates a structured logger writing to w.
// Every record passes through the credential redactor; secrets are extra literal
// values to scrub, normally the configured API key.
func New(cfg config.LoggingConfig, w io.Writer, secrets ...string) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: ParseLevel(cfg.Level),
	}

	var handler slog.Handler
	if cfg.Format == "text" {
		handler = slog.NewTextHandler(w, opts)
	} else {
		handler = slog.NewJSONHandler(w, opts)
	}

	return slog.New(security.NewRedactedHandler(handler, secrets...))
}

// Setup creates the logger with New and installs it as the slog default.
func Setup(cfg config.LoggingConfig, w io.Writer, secrets ...string) *slog.Logger {
	logger := New(cfg, w, secrets...)
	slog.SetDefault(logger)
	return logger
}
