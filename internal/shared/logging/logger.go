package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Config holds the logging settings read from the environment at startup.
type Config struct {
	// Level is the textual minimum level (debug, info, warn, error).
	Level string
	// Format selects the handler encoding, "json" for ingestion pipelines
	// or anything else for human-readable text.
	Format string
	// AddSource attaches file:line attribution to every record.
	AddSource bool
}

// ParseLevel maps a textual level onto slog. Unknown input falls back to
// info so a typo in the environment never silences the service.
func ParseLevel(raw string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(raw)) {
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

// New builds the process logger writing to w. A nil writer falls back to
// stdout, which keeps the console path alive when the log file cannot be
// opened.
func New(w io.Writer, cfg Config) *slog.Logger {
	if w == nil {
		w = os.Stdout
	}
	opts := &slog.HandlerOptions{Level: ParseLevel(cfg.Level), AddSource: cfg.AddSource}
	if strings.EqualFold(strings.TrimSpace(cfg.Format), "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
