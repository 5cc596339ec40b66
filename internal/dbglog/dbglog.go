// Package dbglog provides structured logging for the debug session
// manager, gated by the DBGMGR_DEBUG environment variable.
//
// This is the teacher's internal/debug package (GT_DEBUG-gated,
// hand-formatted timestamp lines to a file) rebuilt on log/slog so that
// callers attach structured fields (engine id, pid, runtime id) instead
// of interpolating them into a format string.
package dbglog

import (
	"log/slog"
	"os"
	"sync"
)

var (
	once   sync.Once
	logger *slog.Logger
)

func initLogger() {
	once.Do(func() {
		level := slog.LevelWarn
		if os.Getenv("DBGMGR_DEBUG") != "" {
			level = slog.LevelDebug
		}
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: level,
		}))
	})
}

// Logger returns the process-wide logger, initializing it on first call.
func Logger() *slog.Logger {
	initLogger()
	return logger
}

// Component returns a logger with a "component" field set to name, the
// equivalent of the teacher's per-call component argument but attached
// once per subsystem.
func Component(name string) *slog.Logger {
	return Logger().With("component", name)
}
