// Package logger builds the process-wide slog logger.
//
// Records are written as JSON (or text) to any io.Writer and can additionally
// be forwarded to Sentry. Context extractors copy request-scoped values such
// as the request ID, upload batch ID and tenant onto every record logged with
// that context.
//
// # Basic Usage
//
//	log := logger.New(logger.Config{Level: "debug"}, os.Stdout, logger.DefaultExtractors()...)
//
//	ctx = logger.WithUploadID(ctx, batchID)
//	log.InfoContext(ctx, "upload accepted", slog.Int("files", 3))
//	// {"level":"INFO","msg":"upload accepted","files":3,"upload_id":"..."}
//
// # Sentry Integration
//
//	log, flush := logger.NewWithSentry(cfg, os.Stdout, logger.DefaultExtractors()...)
//	defer flush(2 * time.Second)
//
// Errors create Sentry issues; records at or above SentryConfig.MinLevel are
// stored as Sentry logs. Without a DSN the logger writes to the writer only,
// so the same code path works in development.
//
// NewNope returns a logger that discards everything and is the default for
// packages that accept an optional *slog.Logger.
package logger
