package quota

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/uploadkit/pkg/upload"
)

func TestStore_DisabledLimitSkipsBackend(t *testing.T) {
	t.Parallel()

	// A nil client proves the guard never reaches Redis when the limit is off.
	s := New(nil, 0)
	guard := s.Guard("acme")
	require.NoError(t, guard(context.Background(), upload.FileMetadata{}, nil))
}

func TestStore_NonPositiveAmounts(t *testing.T) {
	t.Parallel()

	s := New(nil, 10)
	require.NoError(t, s.Reserve(context.Background(), "acme", 0))
	require.NoError(t, s.Release(context.Background(), "acme", -1))
}

func TestStore_Options(t *testing.T) {
	t.Parallel()

	s := New(nil, 10, WithKeyPrefix("q:"), WithKeyPrefix(""), WithLogger(nil))
	require.Equal(t, "q:acme", s.key("acme"))
	require.NotNil(t, s.log)
}
