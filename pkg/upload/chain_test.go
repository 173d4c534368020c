package upload

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestChain(t *testing.T) {
	t.Parallel()

	t.Run("runs guards then processor then steps", func(t *testing.T) {
		t.Parallel()

		var order []string
		guard := func(context.Context, FileMetadata, *ProcessorContext) error {
			order = append(order, "guard")
			return nil
		}
		store := func(_ context.Context, r io.Reader, _ FileMetadata, _ *ProcessorContext) (string, error) {
			b, err := io.ReadAll(r)
			order = append(order, "store")
			return string(b), err
		}
		upper := func(_ context.Context, s string, _ FileMetadata, _ *ProcessorContext) (string, error) {
			order = append(order, "step")
			return strings.ToUpper(s), nil
		}

		counter := newCleanupCounter()
		cfg := baseConfig(counter)
		cfg.Processor = Chain([]Guard{guard}, store, upper)

		res, err := Process(context.Background(), newMemRequest(textFile("a.txt", "abc")), cfg)
		require.NoError(t, err)
		require.True(t, res.OK())
		require.Equal(t, "ABC", res.Files[0].Data)
		require.Equal(t, []string{"guard", "store", "step"}, order)
	})

	t.Run("guard rejection skips the stream", func(t *testing.T) {
		t.Parallel()

		req := newMemRequest(textFile("a.txt", "abc"))
		denied := errors.New("quota exhausted")
		cfg := baseConfig(newCleanupCounter())
		cfg.Processor = Chain([]Guard{func(context.Context, FileMetadata, *ProcessorContext) error { return denied }},
			func(context.Context, io.Reader, FileMetadata, *ProcessorContext) (string, error) {
				t.Error("processor must not run")
				return "", nil
			})

		res, err := Process(context.Background(), req, cfg)
		require.NoError(t, err)
		require.Equal(t, ReasonProcessorError, res.Err.Reason)
		require.ErrorIs(t, res.Err, denied)
		require.Zero(t, req.part(0).read.Load())
	})

	t.Run("failing step compensates earlier steps", func(t *testing.T) {
		t.Parallel()

		counter := newCleanupCounter()
		cfg := baseConfig(counter)
		cfg.Processor = Chain(nil,
			func(_ context.Context, r io.Reader, meta FileMetadata, pc *ProcessorContext) (string, error) {
				_, err := io.Copy(io.Discard, r)
				pc.OnCleanup(counter.handler(meta.Index))
				return "stored", err
			},
			func(_ context.Context, s string, _ FileMetadata, _ *ProcessorContext) (string, error) {
				return "", errBoom
			},
		)

		res, err := Process(context.Background(), newMemRequest(textFile("a.txt", "abc")), cfg)
		require.NoError(t, err)
		require.Equal(t, ReasonProcessorError, res.Err.Reason)
		require.Equal(t, 1, counter.count(0))
	})
}
