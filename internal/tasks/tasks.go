package tasks

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/uploadkit/internal/manifest"
	"github.com/dmitrymomot/uploadkit/pkg/storage"
)

// Manifest is the subset of manifest.Repository the tasks need.
type Manifest interface {
	ListBatch(ctx context.Context, tenant string, batchID uuid.UUID) ([]manifest.File, error)
	MarkVerified(ctx context.Context, batchID uuid.UUID) error
	ListStalePending(ctx context.Context, cutoff time.Time, limit int) ([]manifest.File, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// Objects is satisfied by *storage.S3Storage.
type Objects interface {
	Stat(ctx context.Context, key string) (*storage.FileInfo, error)
	Delete(ctx context.Context, key string) error
}

// Releaser is satisfied by *quota.Store.
type Releaser interface {
	Release(ctx context.Context, tenant string, n int64) error
}
