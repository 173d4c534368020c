package upload

import (
	"context"
	"sync"
)

// uploadState is owned by a single Process call and never shared between calls.
// The orchestrator and the abort coordinator goroutine both mutate it, hence the mutex.
type uploadState struct {
	current   Cancellable
	cancel    context.CancelCauseFunc
	err       *abortError
	mu        sync.Mutex
	processed int
	aborted   bool
}

func newUploadState(cancel context.CancelCauseFunc) *uploadState {
	return &uploadState{cancel: cancel}
}

// abort records err as the abort cause if none is recorded yet.
// On the first call it cancels the processor context and the in-flight stream.
// Returns false if the upload was already aborted; the first reason always wins.
func (s *uploadState) abort(err *abortError) bool {
	s.mu.Lock()
	if s.aborted {
		s.mu.Unlock()
		return false
	}
	s.aborted = true
	s.err = err
	current, cancel := s.current, s.cancel
	s.mu.Unlock()

	if cancel != nil {
		cancel(err)
	}
	if current != nil {
		current.Cancel(err)
	}
	return true
}

func (s *uploadState) isAborted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.aborted
}

// failure returns the recorded abort error, or nil if the upload is not aborted.
func (s *uploadState) failure() *abortError {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// setCurrent tracks the stream the processor is reading.
// A stream attached after the abort fired is cancelled right away.
func (s *uploadState) setCurrent(c Cancellable) {
	s.mu.Lock()
	s.current = c
	err := s.err
	s.mu.Unlock()

	if c != nil && err != nil {
		c.Cancel(err)
	}
}

func (s *uploadState) fileDone() {
	s.mu.Lock()
	s.processed++
	s.mu.Unlock()
}

func (s *uploadState) processedFiles() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.processed
}
