// Package logging constructs the structured JSON logger every component
// receives by injection.
package logging

import (
	"io"
	"log/slog"
)

// Options configures the constructed logger.
type Options struct {
	Level  slog.Level
	Output io.Writer // not read by New, which writes to its w argument
}

// New builds a JSON slog.Logger. correlation_id, event_type, and every other
// structured field flow through via slog attributes rather than a bespoke
// formatter; loggers are passed in everywhere rather than read from a
// package-global.
func New(w io.Writer, opts Options) *slog.Logger {
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: opts.Level,
	})
	return slog.New(handler)
}

// Discard returns a logger that drops everything, for callers (tests,
// throwaway tools) that don't care about audit output.
func Discard() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}
