package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

const defaultRedisKey = "reactor:queue:tasks"

// RedisQueue implements Queue on a Redis list. Multiple workers may
// share the list; BRPOP gives each task to exactly one of them.
type RedisQueue struct {
	client *goredis.Client
	key    string
}

// RedisQueueOption configures the Redis queue.
type RedisQueueOption func(*RedisQueue)

// WithRedisClient supplies an existing client instead of dialing.
func WithRedisClient(client *goredis.Client) RedisQueueOption {
	return func(q *RedisQueue) {
		if client != nil {
			q.client = client
		}
	}
}

// WithRedisKey overrides the list key.
func WithRedisKey(key string) RedisQueueOption {
	return func(q *RedisQueue) {
		key = strings.TrimSpace(key)
		if key != "" {
			q.key = key
		}
	}
}

// NewRedisQueue creates a Redis-backed task queue.
func NewRedisQueue(addr string, opts ...RedisQueueOption) (*RedisQueue, error) {
	q := &RedisQueue{key: defaultRedisKey}
	for _, opt := range opts {
		opt(q)
	}
	if q.client == nil {
		addr = strings.TrimSpace(addr)
		if addr == "" {
			return nil, fmt.Errorf("redis addr is required")
		}
		q.client = goredis.NewClient(&goredis.Options{Addr: addr})
	}
	if err := q.client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return q, nil
}

// Enqueue adds a task to the queue.
func (q *RedisQueue) Enqueue(ctx context.Context, task Task) error {
	payload, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("failed to marshal task: %w", err)
	}
	if err := q.client.LPush(ctx, q.key, payload).Err(); err != nil {
		return fmt.Errorf("failed to enqueue task: %w", err)
	}
	return nil
}

// Dequeue retrieves the next task, blocking until one is available or
// the context is cancelled.
func (q *RedisQueue) Dequeue(ctx context.Context) (*Task, error) {
	for {
		res, err := q.client.BRPop(ctx, time.Second, q.key).Result()
		if err != nil {
			if errors.Is(err, goredis.Nil) {
				if ctx.Err() != nil {
					return nil, ctx.Err()
				}
				continue
			}
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, fmt.Errorf("failed to dequeue task: %w", err)
		}

		// BRPOP returns [key, value].
		var task Task
		if err := json.Unmarshal([]byte(res[1]), &task); err != nil {
			return nil, fmt.Errorf("failed to unmarshal task: %w", err)
		}
		return &task, nil
	}
}

// Size returns the current number of queued tasks.
func (q *RedisQueue) Size(ctx context.Context) (int, error) {
	n, err := q.client.LLen(ctx, q.key).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to read queue length: %w", err)
	}
	return int(n), nil
}

// Close closes the Redis connection.
func (q *RedisQueue) Close() error {
	return q.client.Close()
}

// Ensure RedisQueue implements Queue.
var _ Queue = (*RedisQueue)(nil)
