package upload

import (
	"context"
	"io"
)

// FileMetadata is captured when a file part is observed and never changes afterwards.
type FileMetadata struct {
	Filename  string
	MimeType  string
	Encoding  string
	FieldName string
	// Index is the 0-based position of the file in arrival order.
	Index int
}

// ProcessedFile is a file the processor handled successfully.
type ProcessedFile[T any] struct {
	Data     T
	Filename string
	Index    int
}

// Result is the outcome of an upload. Exactly one of Files and Err is set.
type Result[T any] struct {
	Err   *Error
	Files []ProcessedFile[T]
}

// OK reports whether the upload succeeded.
func (r *Result[T]) OK() bool {
	return r != nil && r.Err == nil
}

// ProcessorFunc stores or otherwise consumes one file stream.
// The stream is cancelled when the upload aborts; a correct processor propagates
// the resulting read error (or ctx.Err()) instead of swallowing it.
type ProcessorFunc[T any] func(ctx context.Context, r io.Reader, meta FileMetadata, pc *ProcessorContext) (T, error)

// ProcessorContext is handed to the processor for one file.
type ProcessorContext struct {
	registry  *cleanupRegistry
	state     *uploadState
	FileIndex int
}

// OnCleanup registers a compensating action for this file.
// It runs at most once, if this file or any other file of the batch fails.
func (pc *ProcessorContext) OnCleanup(fn CleanupFunc) {
	pc.registry.add(pc.FileIndex, fn)
}

// IsAborted reports whether the upload has been aborted.
func (pc *ProcessorContext) IsAborted() bool {
	return pc.state.isAborted()
}
