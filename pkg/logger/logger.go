package logger

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// Config configures the process logger.
type Config struct {
	Level  string `env:"LOG_LEVEL" envDefault:"info"`
	Format string `env:"LOG_FORMAT" envDefault:"json"`
	Sentry SentryConfig
}

// ParseLevel converts debug, info, warn or error to a slog.Level.
func ParseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return slog.LevelInfo, fmt.Errorf("logger: unknown level %q", s)
	}
	return level, nil
}

// New creates a logger writing to w in the configured format.
// An unknown level falls back to info; an empty format means JSON.
func New(cfg Config, w io.Writer, extractors ...ContextExtractor) *slog.Logger {
	return slog.New(WithExtractors(newBaseHandler(cfg, w), extractors...))
}

func newBaseHandler(cfg Config, w io.Writer) slog.Handler {
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}

	if strings.EqualFold(cfg.Format, "text") {
		return slog.NewTextHandler(w, opts)
	}
	return slog.NewJSONHandler(w, opts)
}
