package main

import (
	"log/slog"
	"os"
)

// NewLogger returns a JSON slog.Logger on stdout and installs it as the
// default so library code using slog.Default logs the same way.
func NewLogger(level slog.Leveler) *slog.Logger {
	h := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	logger := slog.New(h).With("pid", os.Getpid())
	slog.SetDefault(logger)
	return logger
}
