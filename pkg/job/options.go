package job

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/riverqueue/river"
)

type schedule struct {
	name string
	expr string
	run  func(context.Context) error
}

type config struct {
	registry   *registry
	queues     map[string]int
	logger     *slog.Logger
	schedules  []schedule
	maxWorkers int
}

func newConfig() *config {
	return &config{
		registry: newRegistry(),
		queues:   make(map[string]int),
	}
}

// Option configures the Manager.
type Option func(*config)

// WithTask registers a payload task. The payload type is inferred from Handle.
func WithTask[P any](task Task[P]) Option {
	return func(c *config) {
		c.registry.register(task.Name(), typedExecutor(task))
	}
}

// WithScheduledTask registers a periodic task, e.g. the pending upload sweep.
func WithScheduledTask(task ScheduledTask) Option {
	return func(c *config) {
		c.schedules = append(c.schedules, schedule{
			name: task.Name(),
			expr: task.Schedule(),
			run:  task.Handle,
		})
		c.registry.register(task.Name(), executorFunc(func(ctx context.Context, _ json.RawMessage) error {
			return task.Handle(ctx)
		}))
	}
}

// WithQueue adds a named queue with its own worker count.
func WithQueue(name string, workers int) Option {
	return func(c *config) {
		if name != "" && workers > 0 {
			c.queues[name] = workers
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(c *config) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithMaxWorkers sets the default queue's concurrency (default 100).
func WithMaxWorkers(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.maxWorkers = n
		}
	}
}

type enqueueConfig struct {
	scheduledAt time.Time
	queue       string
	uniqueKey   string
	tags        []string
	maxAttempts int
	uniqueFor   time.Duration
	priority    int
}

// EnqueueOption configures a single insert.
type EnqueueOption func(*enqueueConfig)

func InQueue(name string) EnqueueOption {
	return func(c *enqueueConfig) {
		if name != "" {
			c.queue = name
		}
	}
}

// ScheduledIn delays the job by d.
func ScheduledIn(d time.Duration) EnqueueOption {
	return func(c *enqueueConfig) {
		c.scheduledAt = time.Now().Add(d)
	}
}

// MaxAttempts caps retries. Non-positive values keep River's default.
func MaxAttempts(n int) EnqueueOption {
	return func(c *enqueueConfig) {
		if n > 0 {
			c.maxAttempts = n
		}
	}
}

// UniqueFor skips the insert when a job with the same key was inserted within d.
// Finalizing a batch uses the batch ID as the key so retries of OnComplete
// never enqueue twice.
func UniqueFor(key string, d time.Duration) EnqueueOption {
	return func(c *enqueueConfig) {
		c.uniqueKey = key
		c.uniqueFor = d
	}
}

func Priority(p int) EnqueueOption {
	return func(c *enqueueConfig) {
		if p > 0 {
			c.priority = p
		}
	}
}

func Tags(tags ...string) EnqueueOption {
	return func(c *enqueueConfig) {
		c.tags = append(c.tags, tags...)
	}
}

func buildInsert(name string, payload any, opts ...EnqueueOption) (*taskArgs, *river.InsertOpts, error) {
	args := &taskArgs{TaskName: name}
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, nil, err
		}
		args.Payload = raw
	}

	ec := &enqueueConfig{}
	for _, opt := range opts {
		opt(ec)
	}

	ins := &river.InsertOpts{
		Queue:       ec.queue,
		ScheduledAt: ec.scheduledAt,
		MaxAttempts: ec.maxAttempts,
		Priority:    ec.priority,
		Tags:        ec.tags,
	}
	if ec.uniqueFor > 0 {
		args.UniqueKey = ec.uniqueKey
		ins.UniqueOpts = river.UniqueOpts{ByArgs: true, ByPeriod: ec.uniqueFor}
	}
	return args, ins, nil
}
