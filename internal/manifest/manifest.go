package manifest

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dmitrymomot/uploadkit/pkg/db"
	"github.com/dmitrymomot/uploadkit/pkg/sanitizer"
	"github.com/dmitrymomot/uploadkit/pkg/storage"
	"github.com/dmitrymomot/uploadkit/pkg/upload"
)

//go:embed migrations/*.sql
var migrations embed.FS

var (
	ErrNotFound    = errors.New("manifest: not found")
	ErrQueryFailed = errors.New("manifest: query failed")
	ErrEmptyBatch  = errors.New("manifest: batch has no pending files")
)

type Status string

const (
	StatusPending Status = "pending"
	StatusReady   Status = "ready"
)

// File is one stored upload. Rows start pending and become ready when the
// whole batch finalizes.
type File struct {
	CreatedAt   time.Time  `json:"created_at"`
	ReadyAt     *time.Time `json:"ready_at,omitempty"`
	VerifiedAt  *time.Time `json:"verified_at,omitempty"`
	Tenant      string     `json:"tenant"`
	Policy      string     `json:"policy"`
	FieldName   string     `json:"field_name"`
	Filename    string     `json:"filename"`
	StorageKey  string     `json:"storage_key"`
	ContentType string     `json:"content_type"`
	Status      Status     `json:"status"`
	Size        int64      `json:"size"`
	FileIndex   int        `json:"file_index"`
	ID          uuid.UUID  `json:"id"`
	BatchID     uuid.UUID  `json:"batch_id"`
}

// Migrate applies the manifest schema.
func Migrate(ctx context.Context, pool *pgxpool.Pool, table string, log *slog.Logger) error {
	sub, err := fs.Sub(migrations, "migrations")
	if err != nil {
		return err
	}
	return db.Migrate(ctx, pool, sub, table, log)
}

type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const fileColumns = `id, batch_id, tenant, policy, file_index, field_name, filename,
	storage_key, content_type, size, status, created_at, ready_at, verified_at`

func scanFile(row pgx.Row) (File, error) {
	var f File
	err := row.Scan(&f.ID, &f.BatchID, &f.Tenant, &f.Policy, &f.FileIndex, &f.FieldName, &f.Filename,
		&f.StorageKey, &f.ContentType, &f.Size, &f.Status, &f.CreatedAt, &f.ReadyAt, &f.VerifiedAt)
	return f, err
}

func collect(rows pgx.Rows, err error) ([]File, error) {
	if err != nil {
		return nil, errors.Join(ErrQueryFailed, err)
	}
	files, err := pgx.CollectRows(rows, func(r pgx.CollectableRow) (File, error) { return scanFile(r) })
	if err != nil {
		return nil, errors.Join(ErrQueryFailed, err)
	}
	return files, nil
}

// InsertPending records a stored object before the batch is finalized.
func (r *Repository) InsertPending(ctx context.Context, f *File) error {
	if f.ID == uuid.Nil {
		f.ID = uuid.Must(uuid.NewV7())
	}
	f.Status = StatusPending

	err := r.pool.QueryRow(ctx, `
		INSERT INTO upload_files (id, batch_id, tenant, policy, file_index, field_name, filename,
			storage_key, content_type, size)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING created_at`,
		f.ID, f.BatchID, f.Tenant, f.Policy, f.FileIndex, f.FieldName, f.Filename,
		f.StorageKey, f.ContentType, f.Size,
	).Scan(&f.CreatedAt)
	if err != nil {
		return errors.Join(ErrQueryFailed, err)
	}
	return nil
}

// Delete removes a row. Missing rows are not an error.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := r.pool.Exec(ctx, `DELETE FROM upload_files WHERE id = $1`, id); err != nil {
		return errors.Join(ErrQueryFailed, err)
	}
	return nil
}

// MarkReady flips every pending row of the batch to ready inside q.
func (r *Repository) MarkReady(ctx context.Context, q db.Querier, batchID uuid.UUID) (int64, error) {
	tag, err := q.Exec(ctx, `
		UPDATE upload_files SET status = 'ready', ready_at = now()
		WHERE batch_id = $1 AND status = 'pending'`, batchID)
	if err != nil {
		return 0, errors.Join(ErrQueryFailed, err)
	}
	if tag.RowsAffected() == 0 {
		return 0, fmt.Errorf("%w: %s", ErrEmptyBatch, batchID)
	}
	return tag.RowsAffected(), nil
}

// Finalize marks the batch ready and runs enqueue in the same transaction.
func (r *Repository) Finalize(ctx context.Context, batchID uuid.UUID, enqueue func(ctx context.Context, tx pgx.Tx) error) (int64, error) {
	var n int64
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		var err error
		if n, err = r.MarkReady(ctx, tx, batchID); err != nil {
			return err
		}
		return enqueue(ctx, tx)
	})
	return n, err
}

// MarkVerified stamps every ready row of the batch.
func (r *Repository) MarkVerified(ctx context.Context, batchID uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE upload_files SET verified_at = now()
		WHERE batch_id = $1 AND status = 'ready' AND verified_at IS NULL`, batchID)
	if err != nil {
		return errors.Join(ErrQueryFailed, err)
	}
	return nil
}

// ListBatch returns the batch's files in arrival order.
func (r *Repository) ListBatch(ctx context.Context, tenant string, batchID uuid.UUID) ([]File, error) {
	files, err := collect(r.pool.Query(ctx,
		`SELECT `+fileColumns+` FROM upload_files WHERE batch_id = $1 AND tenant = $2 ORDER BY file_index`,
		batchID, tenant))
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, ErrNotFound
	}
	return files, nil
}

// ListStalePending returns pending rows created before cutoff, oldest first.
// These belong to batches whose process died before cleanup or finalization.
func (r *Repository) ListStalePending(ctx context.Context, cutoff time.Time, limit int) ([]File, error) {
	return collect(r.pool.Query(ctx,
		`SELECT `+fileColumns+` FROM upload_files
		WHERE status = 'pending' AND created_at < $1
		ORDER BY created_at LIMIT $2`,
		cutoff, limit))
}

// Record returns an upload step that inserts a pending row for each stored
// object and deletes it again when the batch rolls back.
func (r *Repository) Record(batchID uuid.UUID, tenant, policy string) upload.Step[*storage.FileInfo] {
	return func(ctx context.Context, info *storage.FileInfo, meta upload.FileMetadata, pc *upload.ProcessorContext) (*storage.FileInfo, error) {
		f := &File{
			BatchID:     batchID,
			Tenant:      tenant,
			Policy:      policy,
			FileIndex:   meta.Index,
			FieldName:   meta.FieldName,
			Filename:    sanitizer.Filename(meta.Filename),
			StorageKey:  info.Key,
			ContentType: info.ContentType,
			Size:        info.Size,
		}
		if err := r.InsertPending(ctx, f); err != nil {
			return nil, err
		}

		id := f.ID
		pc.OnCleanup(func(ctx context.Context, _ upload.Reason, _ map[string]any) error {
			return r.Delete(ctx, id)
		})
		return info, nil
	}
}
