// Package logging configures the process-wide slog handler.
package logging

import (
	"io"
	"log/slog"
)

// Setup returns the default slog.Logger for the process: structured JSON in
// production (so log aggregators can parse it), human-readable text in
// development.
func Setup(w io.Writer, production bool) *slog.Logger {
	level := slog.LevelInfo
	if !production {
		level = slog.LevelDebug
	}

	var handler slog.Handler
	if production {
		handler = slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})
	} else {
		handler = slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})
	}

	return slog.New(handler)
}
