package upload

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/dmitrymomot/uploadkit/pkg/logger"
)

// Config configures a single Process call.
type Config[T any] struct {
	// Processor consumes each accepted file stream (required).
	Processor ProcessorFunc[T]

	// OnComplete runs once after all cleanup finished, for success and failure alike.
	// An error after a successful upload turns the result into a failure.
	OnComplete func(ctx context.Context, result *Result[T]) error

	// TypeValidator decides which MIME types are accepted.
	// Takes precedence over AllowedTypes.
	TypeValidator TypeValidator

	// Logger receives cleanup, drain and completion diagnostics. Defaults to a no-op logger.
	Logger *slog.Logger

	// AllowedTypes lists accepted MIME patterns, e.g. "image/*".
	AllowedTypes []string

	// MaxFileSize is the per-file byte ceiling (required).
	MaxFileSize int64

	// MaxFieldSize bounds a single non-file form field.
	MaxFieldSize int64

	// MaxFiles is the number of files accepted in one call (default: 1).
	MaxFiles int

	// MaxFields bounds the number of non-file form fields.
	MaxFields int

	// Timeout aborts the whole upload after this duration. Zero disables it.
	Timeout time.Duration

	// DrainTimeout bounds discarding the remaining parts after an abort (default: 1s).
	DrainTimeout time.Duration

	// Development includes raw internal error messages in error details.
	Development bool
}

func (c *Config[T]) applyDefaults() {
	if c.MaxFiles == 0 {
		c.MaxFiles = 1
	}
	if c.DrainTimeout <= 0 {
		c.DrainTimeout = DefaultDrainTimeout
	}
	if c.Logger == nil {
		c.Logger = logger.NewNope()
	}
	if c.TypeValidator == nil && len(c.AllowedTypes) > 0 {
		c.TypeValidator = AllowTypes(c.AllowedTypes...)
	}
}

func (c *Config[T]) validate() error {
	if c.Processor == nil {
		return ErrNilProcessor
	}
	if c.MaxFileSize <= 0 {
		return fmt.Errorf("%w: max file size is required", ErrInvalidConfig)
	}
	if c.TypeValidator == nil && len(c.AllowedTypes) == 0 {
		return fmt.Errorf("%w: allowed types or a type validator is required", ErrInvalidConfig)
	}
	if c.Timeout < 0 {
		return fmt.Errorf("%w: timeout must not be negative", ErrInvalidConfig)
	}
	return c.limits().Validate()
}

func (c *Config[T]) limits() Limits {
	return Limits{
		MaxFiles:     c.MaxFiles,
		MaxFileSize:  c.MaxFileSize,
		MaxFields:    c.MaxFields,
		MaxFieldSize: c.MaxFieldSize,
	}
}

// Process runs one upload transaction over req.
//
// Files are handled one at a time in arrival order. If any file fails, every
// file already accepted in the batch is compensated through its cleanup handlers
// before the failure is reported. Upload failures are returned in Result.Err;
// the error return is reserved for misconfiguration such as ErrMultipartDisabled.
func Process[T any](ctx context.Context, req Request, cfg Config[T]) (*Result[T], error) {
	if req == nil {
		return nil, ErrNilRequest
	}
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	if !req.MultipartEnabled() {
		return nil, ErrMultipartDisabled
	}

	// Nothing has started yet, so gate failures skip cleanup and OnComplete.
	if !IsMultipartFormData(req.ContentType()) {
		return &Result[T]{Err: Classify(ErrInvalidContentType, cfg.Development)}, nil
	}

	parts, err := req.Multipart(cfg.limits())
	if err != nil {
		if errors.Is(err, ErrMultipartDisabled) {
			return nil, err
		}
		return &Result[T]{Err: Classify(errors.Join(ErrInvalidContentType, err), cfg.Development)}, nil
	}

	ctx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	u := &uploader[T]{
		cfg:      cfg,
		parts:    parts,
		log:      cfg.Logger,
		state:    newUploadState(cancel),
		registry: newCleanupRegistry(),
	}

	return u.run(ctx, req), nil
}

// uploader drives one Process call.
type uploader[T any] struct {
	parts    PartReader
	log      *slog.Logger
	state    *uploadState
	registry *cleanupRegistry
	cfg      Config[T]
}

func (u *uploader[T]) run(ctx context.Context, req Request) *Result[T] {
	transport, _ := u.parts.(io.Closer)
	coord := startAbortCoordinator(u.state, u.cfg.Timeout, req.Disconnected(), transport)
	defer coord.Stop()

	files, err := u.loop(ctx, coord)
	coord.Stop()

	// Compensation must run even when the request context is gone.
	return u.finish(context.WithoutCancel(ctx), files, err)
}

// loop processes file parts sequentially until the body is exhausted or the upload aborts.
func (u *uploader[T]) loop(ctx context.Context, coord *abortCoordinator) ([]ProcessedFile[T], error) {
	var files []ProcessedFile[T]
	observed := 0

	for {
		part, err := u.parts.NextPart()
		// Only the bare sentinel marks a clean end; a wrapped EOF is a cut-off body.
		if err == io.EOF { //nolint:errorlint
			break
		}
		if errors.Is(err, ErrFilesLimit) {
			u.state.abort(newAbort(ReasonFilesLimitExceeded, map[string]any{
				"limit": u.cfg.MaxFiles,
			}, nil))
			return files, u.abandon(nil)
		}
		if err != nil {
			coord.check()
			u.state.abort(newAbort(ReasonConnectionBroken, map[string]any{
				"processedFiles": u.state.processedFiles(),
			}, err))
			return files, u.state.failure()
		}

		meta := metadataOf(part, observed)
		observed++

		if u.state.isAborted() {
			return files, u.abandon(part)
		}

		if rejection := checkType(u.cfg.TypeValidator, meta); rejection != nil {
			u.state.abort(u.perFile(rejection, meta))
			return files, u.abandon(part)
		}

		data, err := u.processFile(ctx, coord, part, meta)
		if err != nil {
			return files, u.abandon(nil)
		}

		files = append(files, ProcessedFile[T]{
			Index:    meta.Index,
			Filename: meta.Filename,
			Data:     data,
		})
	}

	// A trigger may have fired while NextPart was blocked.
	coord.check()
	if failure := u.state.failure(); failure != nil {
		return files, failure
	}

	if observed == 0 {
		u.state.abort(newAbort(ReasonNoFilesProvided, nil, nil))
		return nil, u.state.failure()
	}

	return files, nil
}

// processFile hands one accepted part to the processor and decides its outcome.
func (u *uploader[T]) processFile(ctx context.Context, coord *abortCoordinator, part Part, meta FileMetadata) (T, error) {
	var zero T

	counter := newCountingReader(part)
	pc := &ProcessorContext{
		FileIndex: meta.Index,
		registry:  u.registry,
		state:     u.state,
	}

	u.state.setCurrent(part)
	data, err := u.callProcessor(ctx, counter, meta, pc)
	u.state.setCurrent(nil)

	// A trigger may have fired while the processor was blocked.
	coord.check()

	switch {
	case u.state.isAborted():
	case err != nil:
		u.state.abort(u.perFile(newAbort(ReasonProcessorError, map[string]any{
			"fileIndex":     meta.Index,
			"filename":      meta.Filename,
			"bytesReceived": counter.Count(),
		}, err), meta))
	case part.Truncated():
		u.state.abort(u.perFile(newAbort(ReasonSizeExceeded, map[string]any{
			"fileIndex":     meta.Index,
			"filename":      meta.Filename,
			"limit":         u.cfg.MaxFileSize,
			"bytesReceived": counter.Count(),
		}, nil), meta))
	default:
		u.state.fileDone()
		return data, nil
	}

	failure := u.state.failure()
	if cerr := u.registry.runFile(context.WithoutCancel(ctx), meta.Index, failure); cerr != nil {
		u.log.WarnContext(ctx, "file cleanup failed",
			slog.Int("file_index", meta.Index),
			slog.String("reason", failure.reason.String()),
			slog.Any("error", cerr),
		)
	}
	return zero, failure
}

func (u *uploader[T]) callProcessor(ctx context.Context, r io.Reader, meta FileMetadata, pc *ProcessorContext) (data T, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("upload: processor panicked: %v", p)
		}
	}()
	return u.cfg.Processor(ctx, r, meta, pc)
}

// perFile wraps a single file's failure as a batch failure when the call accepts more than one file.
func (u *uploader[T]) perFile(inner *abortError, meta FileMetadata) *abortError {
	if u.cfg.MaxFiles <= 1 {
		return inner
	}

	details := inner.detailsCopy()
	details["reason"] = inner.reason.String()
	details["fileIndex"] = meta.Index
	details["filename"] = meta.Filename
	return newAbort(ReasonBatchFileFailed, details, inner.cause)
}

// abandon cancels an unread part, drains the body and returns the recorded failure.
func (u *uploader[T]) abandon(part Part) error {
	failure := u.state.failure()
	if part != nil {
		part.Cancel(failure)
	}
	drainParts(u.parts, failure, u.cfg.DrainTimeout, u.log)
	return failure
}

// finish runs the batch compensation, builds the result and calls OnComplete.
func (u *uploader[T]) finish(ctx context.Context, files []ProcessedFile[T], err error) *Result[T] {
	result := &Result[T]{Files: files}

	if err != nil {
		u.rollback(ctx, err)
		result = &Result[T]{Err: Classify(err, u.cfg.Development)}
	}

	if u.cfg.OnComplete == nil {
		return result
	}

	cerr := u.complete(ctx, result)
	if cerr == nil {
		return result
	}

	if !result.OK() {
		u.log.ErrorContext(ctx, "upload completion callback failed after failed upload",
			slog.String("code", result.Err.Code),
			slog.Any("error", cerr),
		)
		return result
	}

	u.log.ErrorContext(ctx, "upload completion callback failed",
		slog.Int("files", len(files)),
		slog.Any("error", cerr),
	)
	perr := fmt.Errorf("%w: %w", ErrPostProcessing, cerr)
	failure := newAbort(ReasonProcessorError, map[string]any{"stage": "on_complete"}, perr)
	u.state.abort(failure)
	u.rollback(ctx, failure)
	return &Result[T]{Err: Classify(perr, u.cfg.Development)}
}

// rollback runs every cleanup handler left in the registry.
func (u *uploader[T]) rollback(ctx context.Context, err error) {
	var failure *abortError
	if !errors.As(err, &failure) {
		failure = newAbort(ReasonProcessorError, nil, err)
	}

	if cerr := u.registry.runAll(ctx, failure); cerr != nil {
		u.log.WarnContext(ctx, "batch cleanup failed",
			slog.String("reason", failure.reason.String()),
			slog.Any("error", cerr),
		)
	}
}

func (u *uploader[T]) complete(ctx context.Context, result *Result[T]) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("upload: completion callback panicked: %v", p)
		}
	}()
	return u.cfg.OnComplete(ctx, result)
}

func metadataOf(part Part, index int) FileMetadata {
	h := part.Header()
	mimeType := h.ContentType
	if mimeType == "" {
		mimeType = DefaultMIMEType
	}
	return FileMetadata{
		Filename:  h.FileName,
		MimeType:  mimeType,
		Encoding:  h.Encoding,
		FieldName: h.FieldName,
		Index:     index,
	}
}
