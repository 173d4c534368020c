package quota

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/dmitrymomot/uploadkit/pkg/logger"
	"github.com/dmitrymomot/uploadkit/pkg/storage"
	"github.com/dmitrymomot/uploadkit/pkg/upload"
)

var (
	ErrExceeded = errors.New("quota: tenant quota exceeded")
	ErrBackend  = errors.New("quota: backend unavailable")
)

const defaultKeyPrefix = "uploadkit:quota:"

// reserveScript adds ARGV[2] bytes to the tenant counter unless the result
// would exceed ARGV[1]. Returns the new usage, or -1 when refused.
var reserveScript = redis.NewScript(`
local used = tonumber(redis.call("GET", KEYS[1]) or "0")
local n = tonumber(ARGV[2])
if used + n > tonumber(ARGV[1]) then
	return -1
end
return redis.call("INCRBY", KEYS[1], n)
`)

// releaseScript subtracts bytes without letting the counter drop below zero.
var releaseScript = redis.NewScript(`
local left = redis.call("DECRBY", KEYS[1], ARGV[1])
if left <= 0 then
	redis.call("DEL", KEYS[1])
	return 0
end
return left
`)

// Store tracks stored bytes per tenant in Redis.
type Store struct {
	client redis.UniversalClient
	log    *slog.Logger
	prefix string
	limit  int64
}

type Option func(*Store)

func WithKeyPrefix(prefix string) Option {
	return func(s *Store) {
		if prefix != "" {
			s.prefix = prefix
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.log = l
		}
	}
}

// New returns a Store enforcing limit bytes per tenant. A zero limit disables
// enforcement but usage is still tracked.
func New(client redis.UniversalClient, limit int64, opts ...Option) *Store {
	s := &Store{
		client: client,
		limit:  limit,
		prefix: defaultKeyPrefix,
		log:    logger.NewNope(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) key(tenant string) string {
	return s.prefix + tenant
}

// Reserve accounts n bytes to tenant.
func (s *Store) Reserve(ctx context.Context, tenant string, n int64) error {
	if n <= 0 {
		return nil
	}
	if s.limit <= 0 {
		if err := s.client.IncrBy(ctx, s.key(tenant), n).Err(); err != nil {
			return errors.Join(ErrBackend, err)
		}
		return nil
	}

	used, err := reserveScript.Run(ctx, s.client, []string{s.key(tenant)}, s.limit, n).Int64()
	if err != nil {
		return errors.Join(ErrBackend, err)
	}
	if used < 0 {
		return fmt.Errorf("%w: %d bytes requested, limit %d", ErrExceeded, n, s.limit)
	}
	return nil
}

// Release returns n bytes to tenant.
func (s *Store) Release(ctx context.Context, tenant string, n int64) error {
	if n <= 0 {
		return nil
	}
	if err := releaseScript.Run(ctx, s.client, []string{s.key(tenant)}, n).Err(); err != nil {
		return errors.Join(ErrBackend, err)
	}
	return nil
}

// Usage reports the bytes currently accounted to tenant.
func (s *Store) Usage(ctx context.Context, tenant string) (int64, error) {
	used, err := s.client.Get(ctx, s.key(tenant)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, errors.Join(ErrBackend, err)
	}
	return used, nil
}

// Guard rejects a file before it is streamed when tenant has no headroom left.
func (s *Store) Guard(tenant string) upload.Guard {
	return func(ctx context.Context, meta upload.FileMetadata, _ *upload.ProcessorContext) error {
		if s.limit <= 0 {
			return nil
		}
		used, err := s.Usage(ctx, tenant)
		if err != nil {
			return err
		}
		if used >= s.limit {
			return fmt.Errorf("%w: file %d", ErrExceeded, meta.Index)
		}
		return nil
	}
}

// Step reserves the stored object's size and releases it if the batch rolls back.
func (s *Store) Step(tenant string) upload.Step[*storage.FileInfo] {
	return func(ctx context.Context, info *storage.FileInfo, meta upload.FileMetadata, pc *upload.ProcessorContext) (*storage.FileInfo, error) {
		if err := s.Reserve(ctx, tenant, info.Size); err != nil {
			return nil, err
		}

		size := info.Size
		pc.OnCleanup(func(ctx context.Context, reason upload.Reason, _ map[string]any) error {
			s.log.DebugContext(ctx, "releasing quota",
				slog.String("tenant", tenant),
				slog.Int("file_index", meta.Index),
				slog.Int64("bytes", size),
				slog.String("reason", reason.String()),
			)
			return s.Release(ctx, tenant, size)
		})
		return info, nil
	}
}
