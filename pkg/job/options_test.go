package job

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestBuildInsert(t *testing.T) {
	t.Parallel()

	t.Run("nil payload", func(t *testing.T) {
		t.Parallel()
		args, ins, err := buildInsert("upload.finalize", nil)
		require.NoError(t, err)
		require.Equal(t, "upload.finalize", args.TaskName)
		require.Empty(t, args.Payload)
		require.Empty(t, ins.Queue)
		require.True(t, ins.ScheduledAt.IsZero())
		require.False(t, ins.UniqueOpts.ByArgs)
	})

	t.Run("all options", func(t *testing.T) {
		t.Parallel()
		before := time.Now()
		args, ins, err := buildInsert("upload.finalize", finalizePayload{BatchID: "b-2"},
			InQueue("uploads"),
			InQueue(""),
			ScheduledIn(time.Minute),
			MaxAttempts(3),
			MaxAttempts(0),
			Priority(2),
			Tags("upload"),
			Tags("finalize"),
			UniqueFor("b-2", time.Hour),
		)
		require.NoError(t, err)
		require.JSONEq(t, `{"batch_id":"b-2","files":0}`, string(args.Payload))
		require.Equal(t, "b-2", args.UniqueKey)
		require.Equal(t, "uploads", ins.Queue)
		require.Equal(t, 3, ins.MaxAttempts)
		require.Equal(t, 2, ins.Priority)
		require.Equal(t, []string{"upload", "finalize"}, ins.Tags)
		require.True(t, ins.UniqueOpts.ByArgs)
		require.Equal(t, time.Hour, ins.UniqueOpts.ByPeriod)
		require.WithinDuration(t, before.Add(time.Minute), ins.ScheduledAt, time.Second)
	})

	t.Run("unmarshalable payload", func(t *testing.T) {
		t.Parallel()
		_, _, err := buildInsert("upload.finalize", make(chan int))
		require.Error(t, err)
	})
}

func TestArgsKind(t *testing.T) {
	t.Parallel()
	require.Equal(t, "uploadkit:task", taskArgs{}.Kind())
}
