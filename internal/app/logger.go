package app

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/pttsw/wiki-dnd-parser/internal/config"
)

const (
	formatJSON = "json"
	formatText = "text"
)

// NewLogger writes to stderr, tags every line with the binary version and
// installs the result as the slog default. Reports go to files, never stdout.
func NewLogger(cfg config.LogConfig) *slog.Logger {
	logger := newLogger(os.Stderr, cfg).With(slog.String("app", "merge"), slog.String("version", Version))
	slog.SetDefault(logger)
	return logger
}

// newLogger picks the handler by format. Text output carries source
// positions for local runs; anything but "text" logs JSON.
func newLogger(w io.Writer, cfg config.LogConfig) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(cfg.Level)}
	switch strings.ToLower(strings.TrimSpace(cfg.Format)) {
	case formatText:
		opts.AddSource = true
		return slog.New(slog.NewTextHandler(w, opts))
	default:
		return slog.New(slog.NewJSONHandler(w, opts))
	}
}

// parseLevel accepts slog level names in any case plus "warning". Unknown
// values log at info.
func parseLevel(s string) slog.Level {
	s = strings.TrimSpace(s)
	if strings.EqualFold(s, "warning") {
		s = "warn"
	}
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo
	}
	return lvl
}
