package upload

import "errors"

// Configuration and transport errors.
// These are returned from Process directly; runtime upload failures are reported in Result.Err.
var (
	ErrNilRequest        = errors.New("upload: request is nil")
	ErrNilProcessor      = errors.New("upload: processor is required")
	ErrInvalidConfig     = errors.New("upload: invalid configuration")
	ErrMultipartDisabled = errors.New("upload: multipart support is not enabled")
)

// Stream errors surfaced by transports.
var (
	// ErrFilesLimit is returned by PartReader.NextPart when a file part
	// arrives after the configured number of files has been reached.
	ErrFilesLimit = errors.New("upload: files limit exceeded")

	// ErrPartCancelled is the default cause reported by a cancelled part.
	ErrPartCancelled = errors.New("upload: part stream cancelled")

	// ErrInvalidContentType is the cause attached to content-type gate failures.
	ErrInvalidContentType = errors.New("upload: request is not multipart/form-data")

	// ErrPostProcessing wraps errors returned by Config.OnComplete.
	ErrPostProcessing = errors.New("upload: post-processing failed")
)
