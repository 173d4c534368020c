package upload

import (
	"context"
	"io"
)

// Guard runs before a file's bytes are consumed. An error rejects the file
// as a processor error without reading it.
type Guard func(ctx context.Context, meta FileMetadata, pc *ProcessorContext) error

// Step runs after the processor stored a file, in order. Each step may register
// its own compensation through pc; a failing step rolls back the batch like any
// processor error, including the compensations of earlier steps.
type Step[T any] func(ctx context.Context, data T, meta FileMetadata, pc *ProcessorContext) (T, error)

// Chain composes guards, a stream-consuming processor and post-store steps into
// one processor.
func Chain[T any](guards []Guard, p ProcessorFunc[T], steps ...Step[T]) ProcessorFunc[T] {
	return func(ctx context.Context, r io.Reader, meta FileMetadata, pc *ProcessorContext) (T, error) {
		var zero T
		for _, g := range guards {
			if err := g(ctx, meta, pc); err != nil {
				return zero, err
			}
		}

		data, err := p(ctx, r, meta, pc)
		if err != nil {
			return zero, err
		}

		for _, step := range steps {
			if err := ctx.Err(); err != nil {
				return zero, context.Cause(ctx)
			}
			if data, err = step(ctx, data, meta, pc); err != nil {
				return zero, err
			}
		}
		return data, nil
	}
}
