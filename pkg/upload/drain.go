package upload

import (
	"errors"
	"io"
	"log/slog"
	"time"
)

// DefaultDrainTimeout bounds how long remaining parts are discarded after an abort.
const DefaultDrainTimeout = time.Second

// drainParts discards every part not yet observed, cancelling each without reading it.
// A stalled peer cannot hold the call longer than timeout: once it expires the
// reader is closed if possible and draining is abandoned.
func drainParts(parts PartReader, cause error, timeout time.Duration, log *slog.Logger) {
	done := make(chan int, 1)
	go func() {
		discarded := 0
		defer func() { done <- discarded }()
		for {
			part, err := parts.NextPart()
			if errors.Is(err, ErrFilesLimit) {
				discarded++
				continue
			}
			if err != nil {
				return
			}
			part.Cancel(cause)
			discarded++
		}
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case n := <-done:
		if n > 0 {
			log.Debug("drained remaining parts", slog.Int("parts", n))
		}
	case <-timer.C:
		log.Warn("abandoned draining stalled multipart stream",
			slog.Duration("timeout", timeout),
		)
		if c, ok := parts.(io.Closer); ok {
			_ = c.Close()
		}
	}
}
