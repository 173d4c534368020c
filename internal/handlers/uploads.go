package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"regexp"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/dmitrymomot/uploadkit/internal/config"
	"github.com/dmitrymomot/uploadkit/internal/manifest"
	"github.com/dmitrymomot/uploadkit/internal/quota"
	"github.com/dmitrymomot/uploadkit/internal/server"
	"github.com/dmitrymomot/uploadkit/internal/tasks"
	"github.com/dmitrymomot/uploadkit/pkg/job"
	"github.com/dmitrymomot/uploadkit/pkg/logger"
	"github.com/dmitrymomot/uploadkit/pkg/sanitizer"
	"github.com/dmitrymomot/uploadkit/pkg/storage"
	"github.com/dmitrymomot/uploadkit/pkg/upload"
)

// TenantHeader carries the tenant every upload is accounted to.
const TenantHeader = "X-Tenant-ID"

var tenantPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9-]{0,62}$`)

// Quota is satisfied by *quota.Store.
type Quota interface {
	Guard(tenant string) upload.Guard
	Step(tenant string) upload.Step[*storage.FileInfo]
}

// Manifest is satisfied by *manifest.Repository.
type Manifest interface {
	Record(batchID uuid.UUID, tenant, policy string) upload.Step[*storage.FileInfo]
	Finalize(ctx context.Context, batchID uuid.UUID, enqueue func(ctx context.Context, tx pgx.Tx) error) (int64, error)
	ListBatch(ctx context.Context, tenant string, batchID uuid.UUID) ([]manifest.File, error)
}

// Jobs is satisfied by *job.Manager.
type Jobs interface {
	EnqueueTx(ctx context.Context, tx pgx.Tx, name string, payload any, opts ...job.EnqueueOption) error
}

// Uploads serves the upload routes.
type Uploads struct {
	store     storage.Storage
	manifest  Manifest
	jobs      Jobs
	quota     Quota
	log       *slog.Logger
	policies  map[string]config.Policy
	urlExpiry time.Duration
	dev       bool
}

// Option configures Uploads.
type Option func(*Uploads)

// WithQuota enables per-tenant byte accounting.
func WithQuota(q Quota) Option {
	return func(h *Uploads) {
		h.quota = q
	}
}

// WithLogger sets the handler logger. A nil logger is ignored.
func WithLogger(l *slog.Logger) Option {
	return func(h *Uploads) {
		if l != nil {
			h.log = l
		}
	}
}

// WithDevelopment exposes raw internal error messages in error details.
func WithDevelopment(dev bool) Option {
	return func(h *Uploads) {
		h.dev = dev
	}
}

// WithURLExpiry sets the lifetime of presigned download URLs returned for
// private objects. Non-positive values keep the default.
func WithURLExpiry(d time.Duration) Option {
	return func(h *Uploads) {
		if d > 0 {
			h.urlExpiry = d
		}
	}
}

// NewUploads returns upload handlers that stream files into store, record them
// in the manifest and enqueue finalize jobs. Requests name one of policies.
func NewUploads(store storage.Storage, m Manifest, jobs Jobs, policies map[string]config.Policy, opts ...Option) *Uploads {
	h := &Uploads{
		store:     store,
		manifest:  m,
		jobs:      jobs,
		policies:  policies,
		log:       logger.NewNope(),
		urlExpiry: storage.DefaultURLExpiry,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Routes mounts POST /uploads/{policy} and GET /uploads/batches/{batchID} on r.
func (h *Uploads) Routes(r chi.Router) {
	r.Post("/uploads/{policy}", h.upload)
	r.Get("/uploads/batches/{batchID}", h.batch)
}

type fileResponse struct {
	URL         string `json:"url,omitempty"`
	Filename    string `json:"filename"`
	Key         string `json:"key"`
	ContentType string `json:"content_type"`
	Size        int64  `json:"size"`
	Index       int    `json:"index"`
}

type uploadResponse struct {
	Fields  map[string]string `json:"fields,omitempty"`
	Policy  string            `json:"policy"`
	Files   []fileResponse    `json:"files"`
	BatchID uuid.UUID         `json:"batch_id"`
}

func tenantOf(w http.ResponseWriter, r *http.Request) (string, bool) {
	tenant := r.Header.Get(TenantHeader)
	if !tenantPattern.MatchString(tenant) {
		server.WriteError(w, http.StatusBadRequest, "tenant_required",
			"A valid "+TenantHeader+" header is required", nil)
		return "", false
	}
	return tenant, true
}

func (h *Uploads) upload(w http.ResponseWriter, r *http.Request) {
	policy, ok := h.policies[chi.URLParam(r, "policy")]
	if !ok {
		server.WriteError(w, http.StatusNotFound, "policy_not_found", "Unknown upload policy", nil)
		return
	}
	tenant, ok := tenantOf(w, r)
	if !ok {
		return
	}

	batchID := uuid.Must(uuid.NewV7())
	ctx := logger.WithUploadID(logger.WithTenant(r.Context(), tenant), batchID.String())
	r = r.WithContext(ctx)
	req := upload.NewHTTPRequest(w, r)

	res, err := upload.Process(ctx, req, upload.Config[*storage.FileInfo]{
		MaxFiles:     policy.MaxFiles,
		MaxFileSize:  int64(policy.MaxFileSize),
		MaxFields:    policy.MaxFields,
		MaxFieldSize: int64(policy.MaxFieldSize),
		AllowedTypes: policy.AllowedTypes,
		Timeout:      policy.Timeout,
		Processor:    h.processor(batchID, tenant, policy),
		OnComplete:   h.complete(batchID, tenant),
		Logger:       h.log,
		Development:  h.dev,
	})
	if err != nil {
		h.log.ErrorContext(ctx, "upload rejected before streaming", slog.Any("error", err))
		server.WriteError(w, http.StatusInternalServerError, upload.CodeInternalError, "Internal server error", nil)
		return
	}

	if !res.OK() {
		h.fail(ctx, w, res.Err)
		return
	}

	resp := uploadResponse{
		BatchID: batchID,
		Policy:  policy.Name,
		Files:   make([]fileResponse, 0, len(res.Files)),
		Fields:  fieldsOf(req),
	}
	for _, f := range res.Files {
		resp.Files = append(resp.Files, fileResponse{
			Index:       f.Index,
			Filename:    sanitizer.Filename(f.Filename),
			Key:         f.Data.Key,
			ContentType: f.Data.ContentType,
			Size:        f.Data.Size,
		})
	}
	h.log.InfoContext(ctx, "upload stored", slog.String("policy", policy.Name), slog.Int("files", len(resp.Files)))
	server.WriteJSON(w, http.StatusCreated, resp)
}

// processor stores the stream first, then accounts quota, then records the
// manifest row. Each step registers its own compensation.
func (h *Uploads) processor(batchID uuid.UUID, tenant string, policy config.Policy) upload.ProcessorFunc[*storage.FileInfo] {
	opts := []storage.Option{storage.WithTenant(tenant), storage.WithPrefix(policy.Prefix)}
	if policy.ACL != "" {
		opts = append(opts, storage.WithACL(policy.ACL))
	}

	var (
		guards []upload.Guard
		steps  []upload.Step[*storage.FileInfo]
	)
	if h.quota != nil {
		guards = append(guards, h.quota.Guard(tenant))
		steps = append(steps, h.quota.Step(tenant))
	}
	steps = append(steps, h.manifest.Record(batchID, tenant, policy.Name))

	return upload.Chain(guards, storage.Processor(h.store, opts...), steps...)
}

// complete finalizes a successful batch: rows become ready and the finalize job
// is inserted in one transaction. An error here rolls the whole batch back.
func (h *Uploads) complete(batchID uuid.UUID, tenant string) func(context.Context, *upload.Result[*storage.FileInfo]) error {
	return func(ctx context.Context, res *upload.Result[*storage.FileInfo]) error {
		if !res.OK() {
			return nil
		}

		payload := tasks.FinalizePayload{Tenant: tenant, BatchID: batchID, Files: len(res.Files)}
		_, err := h.manifest.Finalize(ctx, batchID, func(ctx context.Context, tx pgx.Tx) error {
			return h.jobs.EnqueueTx(ctx, tx, tasks.FinalizeTaskName, payload,
				job.UniqueFor(batchID.String(), time.Hour),
				job.MaxAttempts(10),
				job.Tags("upload"),
			)
		})
		return err
	}
}

func (h *Uploads) fail(ctx context.Context, w http.ResponseWriter, uerr *upload.Error) {
	if errors.Is(uerr, quota.ErrExceeded) {
		h.log.InfoContext(ctx, "upload refused by quota")
		server.WriteError(w, http.StatusForbidden, "tenant_quota_exceeded", "Tenant storage quota exceeded", nil)
		return
	}

	level := slog.LevelInfo
	if uerr.Status >= http.StatusInternalServerError {
		level = slog.LevelError
	}
	h.log.Log(ctx, level, "upload failed",
		slog.String("code", uerr.Code),
		slog.String("reason", uerr.Reason.String()),
		slog.Any("error", uerr.Err),
	)
	server.WriteJSON(w, uerr.StatusCode(), uerr.Envelope())
}

func fieldsOf(req *upload.HTTPRequest) map[string]string {
	values := req.Fields()
	if len(values) == 0 {
		return nil
	}
	out := make(map[string]string, len(values))
	for k, v := range values {
		if len(v) > 0 {
			out[k] = sanitizer.StripHTML(v[0])
		}
	}
	return out
}

type batchResponse struct {
	Files   []fileResponse `json:"files"`
	Status  string         `json:"status"`
	BatchID uuid.UUID      `json:"batch_id"`
}

func (h *Uploads) batch(w http.ResponseWriter, r *http.Request) {
	tenant, ok := tenantOf(w, r)
	if !ok {
		return
	}
	batchID, err := uuid.Parse(chi.URLParam(r, "batchID"))
	if err != nil {
		server.WriteError(w, http.StatusBadRequest, "invalid_batch_id", "Batch ID must be a UUID", nil)
		return
	}

	ctx := logger.WithUploadID(logger.WithTenant(r.Context(), tenant), batchID.String())
	files, err := h.manifest.ListBatch(ctx, tenant, batchID)
	if errors.Is(err, manifest.ErrNotFound) {
		server.WriteError(w, http.StatusNotFound, "batch_not_found", "Upload batch not found", nil)
		return
	}
	if err != nil {
		h.log.ErrorContext(ctx, "list batch failed", slog.Any("error", err))
		server.WriteError(w, http.StatusInternalServerError, upload.CodeInternalError, "Internal server error", nil)
		return
	}

	resp := batchResponse{BatchID: batchID, Status: string(manifest.StatusReady), Files: make([]fileResponse, 0, len(files))}
	for _, f := range files {
		fr := fileResponse{
			Index:       f.FileIndex,
			Filename:    f.Filename,
			Key:         f.StorageKey,
			ContentType: f.ContentType,
			Size:        f.Size,
		}
		if f.Status != manifest.StatusReady {
			resp.Status = string(manifest.StatusPending)
		} else if fr.URL, err = h.store.URL(ctx, f.StorageKey, storage.WithExpiry(h.urlExpiry), storage.WithDownload(f.Filename)); err != nil {
			h.log.WarnContext(ctx, "signing download url failed", slog.String("key", f.StorageKey), slog.Any("error", err))
		}
		resp.Files = append(resp.Files, fr)
	}
	server.WriteJSON(w, http.StatusOK, resp)
}
