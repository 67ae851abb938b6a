// Package logging configures the structured logger the release flow
// reports progress through.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Setup creates a slog logger writing to output at the given level, in
// text or json format. A nil output means stderr and an unknown level
// means info.
func Setup(level, format string, output io.Writer) *slog.Logger {
	var slogLevel slog.Level
	switch strings.ToUpper(level) {
	case "DEBUG":
		slogLevel = slog.LevelDebug
	case "INFO":
		slogLevel = slog.LevelInfo
	case "WARN":
		slogLevel = slog.LevelWarn
	case "ERROR":
		slogLevel = slog.LevelError
	default:
		slogLevel = slog.LevelInfo
	}

	if output == nil {
		output = os.Stderr
	}

	opts := &slog.HandlerOptions{Level: slogLevel}

	var handler slog.Handler
	if strings.ToLower(format) == "json" {
		handler = slog.NewJSONHandler(output, opts)
	} else {
		handler = slog.NewTextHandler(output, opts)
	}

	return slog.New(handler)
}

// Quiet returns a logger that drops everything, the default for library
// use and tests.
func Quiet() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}
