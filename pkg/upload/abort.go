package upload

import (
	"io"
	"sync"
	"time"
)

// abortCoordinator watches the wall-clock timeout and the connection concurrently
// with file processing. Whichever trigger fires first aborts the upload; the other
// is disarmed with it.
type abortCoordinator struct {
	state        *uploadState
	transport    io.Closer
	disconnected <-chan struct{}
	stop         chan struct{}
	done         chan struct{}
	deadline     time.Time
	timeout      time.Duration
	stopOnce     sync.Once
}

// startAbortCoordinator arms both triggers. A zero timeout disables the timer
// and a nil disconnected channel disables the connection trigger.
// When a trigger wins, transport (if not nil) is closed so that a NextPart
// blocked between files returns.
func startAbortCoordinator(state *uploadState, timeout time.Duration, disconnected <-chan struct{}, transport io.Closer) *abortCoordinator {
	c := &abortCoordinator{
		state:        state,
		transport:    transport,
		disconnected: disconnected,
		timeout:      timeout,
		stop:         make(chan struct{}),
		done:         make(chan struct{}),
	}
	if timeout > 0 {
		c.deadline = time.Now().Add(timeout)
	}

	go c.watch()
	return c
}

func (c *abortCoordinator) watch() {
	defer close(c.done)

	var timerC <-chan time.Time
	if c.timeout > 0 {
		timer := time.NewTimer(c.timeout)
		defer timer.Stop()
		timerC = timer.C
	}

	select {
	case <-timerC:
		c.fireTimeout()
	case <-c.disconnected:
		c.fireDisconnect()
	case <-c.stop:
	}
}

// check fires any trigger whose condition already holds without waiting for the
// watcher goroutine to be scheduled. Called right after each processor returns.
func (c *abortCoordinator) check() {
	select {
	case <-c.disconnected:
		c.fireDisconnect()
		return
	default:
	}

	if c.timeout > 0 && !time.Now().Before(c.deadline) {
		c.fireTimeout()
	}
}

func (c *abortCoordinator) fireTimeout() {
	c.fire(newAbort(ReasonTimeout, map[string]any{
		"timeoutMs":      c.timeout.Milliseconds(),
		"processedFiles": c.state.processedFiles(),
	}, nil))
}

func (c *abortCoordinator) fireDisconnect() {
	c.fire(newAbort(ReasonConnectionBroken, map[string]any{
		"processedFiles": c.state.processedFiles(),
	}, nil))
}

func (c *abortCoordinator) fire(err *abortError) {
	if c.state.abort(err) && c.transport != nil {
		_ = c.transport.Close()
	}
}

// Stop disarms both triggers and waits for the watcher to exit. Safe to call twice.
func (c *abortCoordinator) Stop() {
	c.stopOnce.Do(func() {
		close(c.stop)
	})
	<-c.done
}
