package logger

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/getsentry/sentry-go"
	sentryslog "github.com/getsentry/sentry-go/slog"
)

// SentryConfig holds Sentry integration configuration.
type SentryConfig struct {
	DSN         string `env:"SENTRY_DSN"`
	Environment string `env:"SENTRY_ENVIRONMENT" envDefault:"production"`
	Release     string `env:"SENTRY_RELEASE"`
	// MinLevel is the lowest level forwarded to Sentry as a log entry.
	// Errors always create issues.
	MinLevel slog.Level `env:"SENTRY_MIN_LEVEL" envDefault:"WARN"`
}

// NewWithSentry creates a logger writing to w and forwarding to Sentry.
// Without a DSN, or when the SDK fails to initialize, only w is used.
// The returned flush function waits for buffered Sentry events; it is a no-op
// when Sentry is disabled.
func NewWithSentry(cfg Config, w io.Writer, extractors ...ContextExtractor) (*slog.Logger, func(time.Duration)) {
	base := newBaseHandler(cfg, w)
	noFlush := func(time.Duration) {}

	if cfg.Sentry.DSN == "" {
		return slog.New(WithExtractors(base, extractors...)), noFlush
	}

	if err := sentry.Init(sentry.ClientOptions{
		Dsn:         cfg.Sentry.DSN,
		Environment: cfg.Sentry.Environment,
		Release:     cfg.Sentry.Release,
		EnableLogs:  true,
	}); err != nil {
		slog.New(base).Error("failed to initialize Sentry", slog.Any("error", err))
		return slog.New(WithExtractors(base, extractors...)), noFlush
	}

	sentryHandler := sentryslog.Option{
		EventLevel: []slog.Level{slog.LevelError},
		LogLevel:   sentryLogLevels(cfg.Sentry.MinLevel),
	}.NewSentryHandler(context.Background())

	log := slog.New(WithExtractors(newMultiHandler(base, sentryHandler), extractors...))
	return log, func(timeout time.Duration) { sentry.Flush(timeout) }
}

// sentryLogLevels lists the levels at or above floor that Sentry stores as logs.
func sentryLogLevels(floor slog.Level) []slog.Level {
	var levels []slog.Level
	for _, l := range []slog.Level{slog.LevelDebug, slog.LevelInfo, slog.LevelWarn, slog.LevelError} {
		if l >= floor {
			levels = append(levels, l)
		}
	}
	return levels
}
