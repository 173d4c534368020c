//go:build integration

package quota_test

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/uploadkit/internal/quota"
	"github.com/dmitrymomot/uploadkit/pkg/redis"
)

func newStore(t *testing.T, limit int64) (*quota.Store, string) {
	t.Helper()

	url := os.Getenv("REDIS_URL")
	if url == "" {
		url = "redis://localhost:6379/0"
	}
	client, err := redis.Connect(context.Background(), redis.Config{URL: url, RetryAttempts: 1})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	return quota.New(client, limit, quota.WithKeyPrefix("uploadkit:test:quota:")), uuid.NewString()
}

func TestStore_ReserveRelease(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s, tenant := newStore(t, 100)

	require.NoError(t, s.Reserve(ctx, tenant, 60))
	require.ErrorIs(t, s.Reserve(ctx, tenant, 41), quota.ErrExceeded)
	require.NoError(t, s.Reserve(ctx, tenant, 40))

	used, err := s.Usage(ctx, tenant)
	require.NoError(t, err)
	require.Equal(t, int64(100), used)

	require.NoError(t, s.Release(ctx, tenant, 150))
	used, err = s.Usage(ctx, tenant)
	require.NoError(t, err)
	require.Zero(t, used)
}

func TestStore_Unlimited(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s, tenant := newStore(t, 0)

	require.NoError(t, s.Reserve(ctx, tenant, 1<<40))
	used, err := s.Usage(ctx, tenant)
	require.NoError(t, err)
	require.Equal(t, int64(1<<40), used)
	require.NoError(t, s.Release(ctx, tenant, 1<<40))
}
