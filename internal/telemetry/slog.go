package telemetry

import (
	"io"
	"log/slog"

	"github.com/google/uuid"
)

// LevelFor maps a -v count to a level: warn, info, then debug.
func LevelFor(verbosity int) slog.Level {
	switch {
	case verbosity <= 0:
		return slog.LevelWarn
	case verbosity == 1:
		return slog.LevelInfo
	default:
		return slog.LevelDebug
	}
}

// NewRunID returns a fresh identifier for one batch run.
func NewRunID() string {
	return uuid.NewString()
}

// InitSlog installs a text logger on w as the slog default. Every record
// carries run_id when runID is non-empty.
func InitSlog(w io.Writer, verbosity int, runID string) *slog.Logger {
	h := slog.NewTextHandler(w, &slog.HandlerOptions{Level: LevelFor(verbosity)})
	l := slog.New(h)
	if runID != "" {
		l = l.With("run_id", runID)
	}
	slog.SetDefault(l)
	return l
}
