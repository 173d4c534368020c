// Command uploadd runs the multipart upload service.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/dmitrymomot/uploadkit/internal/config"
	"github.com/dmitrymomot/uploadkit/internal/handlers"
	"github.com/dmitrymomot/uploadkit/internal/manifest"
	"github.com/dmitrymomot/uploadkit/internal/quota"
	"github.com/dmitrymomot/uploadkit/internal/server"
	"github.com/dmitrymomot/uploadkit/internal/tasks"
	"github.com/dmitrymomot/uploadkit/pkg/db"
	"github.com/dmitrymomot/uploadkit/pkg/health"
	"github.com/dmitrymomot/uploadkit/pkg/job"
	"github.com/dmitrymomot/uploadkit/pkg/logger"
	"github.com/dmitrymomot/uploadkit/pkg/redis"
	"github.com/dmitrymomot/uploadkit/pkg/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	log, flush := logger.NewWithSentry(cfg.Log, os.Stdout, logger.DefaultExtractors()...)
	log = log.With(slog.String("app", "uploadd"))

	err = run(context.Background(), cfg, log)
	flush(2 * time.Second)
	if err != nil {
		log.Error("uploadd stopped", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, log *slog.Logger) error {
	pool, err := db.Connect(ctx, cfg.DB)
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := manifest.Migrate(ctx, pool, cfg.DB.MigrationsTable, log); err != nil {
		return err
	}
	if err := job.Migrate(ctx, pool, log); err != nil {
		return err
	}

	rdb, err := redis.Connect(ctx, cfg.Redis)
	if err != nil {
		return err
	}

	store, err := storage.New(cfg.Storage)
	if err != nil {
		return err
	}

	repo := manifest.NewRepository(pool)
	quotas := quota.New(rdb, cfg.Upload.TenantQuota, quota.WithLogger(log))

	jobs, err := job.NewManager(pool,
		job.WithLogger(log),
		job.WithTask[tasks.FinalizePayload](tasks.NewFinalize(repo, store, log)),
		job.WithScheduledTask(tasks.NewSweep(repo, store, quotas, cfg.Upload.SweepAfter,
			tasks.WithSweepSchedule(cfg.Upload.SweepSchedule),
			tasks.WithSweepBatch(cfg.Upload.SweepBatch),
			tasks.WithSweepLogger(log),
		)),
	)
	if err != nil {
		return err
	}

	opts := []handlers.Option{
		handlers.WithLogger(log),
		handlers.WithDevelopment(cfg.Development()),
		handlers.WithURLExpiry(cfg.Upload.URLExpiry),
	}
	if cfg.Upload.TenantQuota > 0 {
		opts = append(opts, handlers.WithQuota(quotas))
	}
	uploads := handlers.NewUploads(store, repo, jobs, cfg.Upload.Policies, opts...)

	r := chi.NewRouter()
	r.Use(server.RequestID, server.AccessLog(log), server.Recover(log))
	r.Get("/health/live", health.LivenessHandler())
	r.Get("/health/ready", health.ReadinessHandler(health.Checks{
		"postgres": db.Healthcheck(pool),
		"redis":    redis.Healthcheck(rdb),
		"jobs":     job.Healthcheck(jobs),
	}, health.WithLogger(log), health.WithErrorDetails(cfg.Development())))
	uploads.Routes(r)

	srv := server.New(cfg.HTTP.Addr, r,
		server.WithLogger(log),
		server.WithTimeouts(cfg.HTTP.ReadHeaderTimeout, cfg.HTTP.ReadTimeout, cfg.HTTP.WriteTimeout, cfg.HTTP.IdleTimeout),
		server.WithShutdownTimeout(cfg.HTTP.ShutdownTimeout),
		server.WithStartHook(jobs.Start),
		server.WithShutdownHook(jobs.Shutdown()),
		server.WithShutdownHook(redis.Shutdown(rdb)),
		server.WithShutdownHook(db.Shutdown(pool)),
	)

	log.Info("starting uploadd", slog.String("addr", cfg.HTTP.Addr), slog.Int("policies", len(cfg.Upload.Policies)))
	return srv.Run(ctx)
}
