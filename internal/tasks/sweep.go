package tasks

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/dmitrymomot/uploadkit/pkg/logger"
)

const SweepTaskName = "upload.sweep"

// Sweep removes pending uploads older than a threshold. They belong to
// batches whose process stopped before rollback or finalization could run.
type Sweep struct {
	manifest Manifest
	objects  Objects
	quota    Releaser
	log      *slog.Logger
	now      func() time.Time
	schedule string
	after    time.Duration
	batch    int
}

type SweepOption func(*Sweep)

func WithSweepSchedule(expr string) SweepOption {
	return func(s *Sweep) {
		if expr != "" {
			s.schedule = expr
		}
	}
}

func WithSweepBatch(n int) SweepOption {
	return func(s *Sweep) {
		if n > 0 {
			s.batch = n
		}
	}
}

func WithSweepLogger(l *slog.Logger) SweepOption {
	return func(s *Sweep) {
		if l != nil {
			s.log = l
		}
	}
}

// NewSweep deletes pending rows older than after. A nil quota skips releasing.
func NewSweep(m Manifest, objects Objects, quota Releaser, after time.Duration, opts ...SweepOption) *Sweep {
	s := &Sweep{
		manifest: m,
		objects:  objects,
		quota:    quota,
		after:    after,
		schedule: "*/10 * * * *",
		batch:    100,
		log:      logger.NewNope(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Sweep) Name() string     { return SweepTaskName }
func (s *Sweep) Schedule() string { return s.schedule }

func (s *Sweep) Handle(ctx context.Context) error {
	stale, err := s.manifest.ListStalePending(ctx, s.now().Add(-s.after), s.batch)
	if err != nil {
		return err
	}

	var errs []error
	removed := 0
	for _, f := range stale {
		fctx := logger.WithTenant(logger.WithUploadID(ctx, f.BatchID.String()), f.Tenant)

		// The row goes last so a failed object delete is retried next run.
		if err := s.objects.Delete(fctx, f.StorageKey); err != nil {
			errs = append(errs, err)
			s.log.WarnContext(fctx, "sweep: delete object failed", slog.String("key", f.StorageKey), slog.Any("error", err))
			continue
		}
		if s.quota != nil {
			if err := s.quota.Release(fctx, f.Tenant, f.Size); err != nil {
				s.log.WarnContext(fctx, "sweep: release quota failed", slog.Any("error", err))
			}
		}
		if err := s.manifest.Delete(fctx, f.ID); err != nil {
			errs = append(errs, err)
			continue
		}
		removed++
	}

	if removed > 0 {
		s.log.InfoContext(ctx, "sweep removed stale uploads", slog.Int("files", removed))
	}
	return errors.Join(errs...)
}
