package job

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

type finalizePayload struct {
	BatchID string `json:"batch_id"`
	Files   int    `json:"files"`
}

type recordingTask struct {
	err  error
	got  finalizePayload
	runs int
}

func (t *recordingTask) Name() string { return "upload.finalize" }

func (t *recordingTask) Handle(_ context.Context, p finalizePayload) error {
	t.runs++
	t.got = p
	return t.err
}

type tickTask struct{ runs int }

func (t *tickTask) Name() string     { return "upload.sweep" }
func (t *tickTask) Schedule() string { return "*/5 * * * *" }
func (t *tickTask) Handle(context.Context) error {
	t.runs++
	return nil
}

func TestTypedExecutor(t *testing.T) {
	t.Parallel()

	t.Run("decodes payload", func(t *testing.T) {
		t.Parallel()
		task := &recordingTask{}
		raw, err := json.Marshal(finalizePayload{BatchID: "b-1", Files: 3})
		require.NoError(t, err)

		require.NoError(t, typedExecutor[finalizePayload](task).execute(context.Background(), raw))
		require.Equal(t, finalizePayload{BatchID: "b-1", Files: 3}, task.got)
	})

	t.Run("empty payload is the zero value", func(t *testing.T) {
		t.Parallel()
		task := &recordingTask{}
		require.NoError(t, typedExecutor[finalizePayload](task).execute(context.Background(), nil))
		require.Equal(t, 1, task.runs)
		require.Zero(t, task.got)
	})

	t.Run("invalid payload", func(t *testing.T) {
		t.Parallel()
		task := &recordingTask{}
		err := typedExecutor[finalizePayload](task).execute(context.Background(), json.RawMessage("{"))
		require.ErrorIs(t, err, ErrInvalidPayload)
		require.Zero(t, task.runs)
	})

	t.Run("handler error", func(t *testing.T) {
		t.Parallel()
		boom := errors.New("manifest unavailable")
		task := &recordingTask{err: boom}
		require.ErrorIs(t, typedExecutor[finalizePayload](task).execute(context.Background(), nil), boom)
	})
}

func TestOptions_RegisterTasks(t *testing.T) {
	t.Parallel()

	cfg := newConfig()
	tick := &tickTask{}
	WithTask[finalizePayload](&recordingTask{})(cfg)
	WithScheduledTask(tick)(cfg)
	WithQueue("uploads", 4)(cfg)
	WithQueue("", 4)(cfg)
	WithQueue("ignored", 0)(cfg)
	WithMaxWorkers(-1)(cfg)
	WithLogger(nil)(cfg)

	require.Equal(t, []string{"upload.finalize", "upload.sweep"}, cfg.registry.names())
	require.Equal(t, map[string]int{"uploads": 4}, cfg.queues)
	require.Zero(t, cfg.maxWorkers)
	require.Nil(t, cfg.logger)
	require.Len(t, cfg.schedules, 1)
	require.Equal(t, "*/5 * * * *", cfg.schedules[0].expr)

	e, ok := cfg.registry.get("upload.sweep")
	require.True(t, ok)
	require.NoError(t, e.execute(context.Background(), json.RawMessage(`{"ignored":true}`)))
	require.Equal(t, 1, tick.runs)

	_, ok = cfg.registry.get("missing")
	require.False(t, ok)
}
