package upload

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"sync"

	"golang.org/x/sync/errgroup"
)

// CleanupFunc undoes a side effect of a processed file, e.g. deletes a stored object.
// It receives the reason the batch failed and a copy of the failure details.
type CleanupFunc func(ctx context.Context, reason Reason, details map[string]any) error

// cleanupRegistry keeps compensating actions per file index.
// Taking a file's handlers removes them, so every handler runs at most once
// no matter how many sweeps are triggered.
type cleanupRegistry struct {
	handlers map[int][]CleanupFunc
	mu       sync.Mutex
}

func newCleanupRegistry() *cleanupRegistry {
	return &cleanupRegistry{handlers: make(map[int][]CleanupFunc)}
}

// add registers fn for the file at index.
func (r *cleanupRegistry) add(index int, fn CleanupFunc) {
	if fn == nil {
		return
	}
	r.mu.Lock()
	r.handlers[index] = append(r.handlers[index], fn)
	r.mu.Unlock()
}

// takeFile detaches and returns the handlers of a single file.
func (r *cleanupRegistry) takeFile(index int) []CleanupFunc {
	r.mu.Lock()
	defer r.mu.Unlock()
	fns := r.handlers[index]
	delete(r.handlers, index)
	return fns
}

// takeAll detaches and returns every remaining handler.
func (r *cleanupRegistry) takeAll() []CleanupFunc {
	r.mu.Lock()
	defer r.mu.Unlock()

	var fns []CleanupFunc
	for _, index := range slices.Sorted(maps.Keys(r.handlers)) {
		fns = append(fns, r.handlers[index]...)
	}
	clear(r.handlers)
	return fns
}

// pending returns the number of handlers not yet run.
func (r *cleanupRegistry) pending() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, fns := range r.handlers {
		n += len(fns)
	}
	return n
}

// runFile runs the handlers of one file and removes them from the registry.
func (r *cleanupRegistry) runFile(ctx context.Context, index int, failure *abortError) error {
	return runCleanup(ctx, r.takeFile(index), failure)
}

// runAll runs every handler still registered.
func (r *cleanupRegistry) runAll(ctx context.Context, failure *abortError) error {
	return runCleanup(ctx, r.takeAll(), failure)
}

// runCleanup fans the handlers out and collects every failure.
// A failing or panicking handler never prevents its siblings from running.
func runCleanup(ctx context.Context, fns []CleanupFunc, failure *abortError) error {
	if len(fns) == 0 {
		return nil
	}

	var (
		g    errgroup.Group
		mu   sync.Mutex
		errs []error
	)

	for _, fn := range fns {
		g.Go(func() error {
			if err := callCleanup(ctx, fn, failure); err != nil {
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()

	return errors.Join(errs...)
}

func callCleanup(ctx context.Context, fn CleanupFunc, failure *abortError) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("upload: cleanup panicked: %v", p)
		}
	}()
	return fn(ctx, failure.reason, failure.detailsCopy())
}
