package tasks

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/dmitrymomot/uploadkit/pkg/logger"
)

const FinalizeTaskName = "upload.finalize"

var ErrSizeMismatch = errors.New("tasks: stored object size mismatch")

// FinalizePayload is enqueued in the transaction that marks a batch ready.
type FinalizePayload struct {
	Tenant  string    `json:"tenant"`
	BatchID uuid.UUID `json:"batch_id"`
	Files   int       `json:"files"`
}

// Finalize verifies that every object of a ready batch exists with the
// recorded size, then stamps the batch verified. Errors are retried by the queue.
type Finalize struct {
	manifest Manifest
	objects  Objects
	log      *slog.Logger
}

func NewFinalize(m Manifest, objects Objects, log *slog.Logger) *Finalize {
	if log == nil {
		log = logger.NewNope()
	}
	return &Finalize{manifest: m, objects: objects, log: log}
}

func (t *Finalize) Name() string { return FinalizeTaskName }

func (t *Finalize) Handle(ctx context.Context, p FinalizePayload) error {
	ctx = logger.WithTenant(logger.WithUploadID(ctx, p.BatchID.String()), p.Tenant)

	files, err := t.manifest.ListBatch(ctx, p.Tenant, p.BatchID)
	if err != nil {
		return err
	}

	var errs []error
	for _, f := range files {
		info, err := t.objects.Stat(ctx, f.StorageKey)
		if err != nil {
			errs = append(errs, fmt.Errorf("file %d: %w", f.FileIndex, err))
			continue
		}
		if info.Size != f.Size {
			errs = append(errs, fmt.Errorf("%w: file %d: recorded %d, stored %d", ErrSizeMismatch, f.FileIndex, f.Size, info.Size))
		}
	}
	if err := errors.Join(errs...); err != nil {
		return err
	}

	if err := t.manifest.MarkVerified(ctx, p.BatchID); err != nil {
		return err
	}
	t.log.InfoContext(ctx, "upload batch verified", slog.Int("files", len(files)))
	return nil
}
