// Package logging sets up the process-wide structured logger.
package logging

import (
	"log/slog"
	"os"
)

// New builds a text-handler slog.Logger writing to stderr, tagged with
// the given component name so log lines from the sync engine, the HTTP
// server, and the mempool tracker are distinguishable when interleaved.
func New(component string) *slog.Logger {
	h := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo})
	return slog.New(h).With("component", component)
}
