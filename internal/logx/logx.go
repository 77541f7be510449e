// Package logx is the one place triadctl touches zerolog: a stderr-only
// logger for advisory diagnostics that must never land on stdout, where
// the hook protocol's single JSON object (internal/hookenv) lives.
package logx

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
)

// New builds a logger writing to w (os.Stderr when nil) with component
// set as the "component" field, e.g. logx.New(nil, "orchestrator").
func New(w io.Writer, component string) zerolog.Logger {
	if w == nil {
		w = os.Stderr
	}
	return zerolog.New(w).With().Timestamp().Str("component", component).Logger()
}

// ParseLevel maps a case-insensitive level name to a zerolog.Level,
// defaulting to InfoLevel on anything unrecognized.
func ParseLevel(level string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "disabled", "silent", "off":
		return zerolog.Disabled
	default:
		return zerolog.InfoLevel
	}
}
