package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"

	"github.com/felixgeelhaar/reactor-go/domain/agent"
)

// saveScript writes the checkpoint document and its position key in one
// atomic step, rejecting position regressions. Returns 1 on success and
// 0 when the stored position is ahead of the incoming one.
var saveScript = redis.NewScript(`
local stored = redis.call('GET', KEYS[2])
if stored and tonumber(stored) > tonumber(ARGV[2]) then
	return 0
end
redis.call('SET', KEYS[1], ARGV[1])
redis.call('SET', KEYS[2], ARGV[2])
return 1
`)

// CheckpointStore is a Redis-backed implementation of
// agent.CheckpointStore. Monotonic advancement is enforced server-side
// with a Lua script, so concurrent savers cannot move a checkpoint
// backwards.
type CheckpointStore struct {
	client    *redis.Client
	keyPrefix string
}

// NewCheckpointStore creates a Redis checkpoint store with the given
// configuration.
func NewCheckpointStore(cfg Config, opts ...ConfigOption) (*CheckpointStore, error) {
	for _, opt := range opts {
		opt(&cfg)
	}

	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Address,
		Password:     cfg.Password,
		DB:           cfg.DB,
		MaxRetries:   cfg.MaxRetries,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
	})

	ctx, cancel := context.WithTimeout(context.Background(), cfg.DialTimeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &CheckpointStore{
		client:    client,
		keyPrefix: cfg.KeyPrefix,
	}, nil
}

// NewCheckpointStoreFromClient creates a store from an existing client.
func NewCheckpointStoreFromClient(client *redis.Client, keyPrefix string) *CheckpointStore {
	return &CheckpointStore{
		client:    client,
		keyPrefix: keyPrefix,
	}
}

func (s *CheckpointStore) docKey(agentID, subscriptionID string) string {
	return s.keyPrefix + "checkpoint:" + agentID + ":" + subscriptionID
}

func (s *CheckpointStore) posKey(agentID, subscriptionID string) string {
	return s.keyPrefix + "checkpoint-pos:" + agentID + ":" + subscriptionID
}

// Load returns the checkpoint for the pair, or ErrCheckpointNotFound.
func (s *CheckpointStore) Load(ctx context.Context, agentID, subscriptionID string) (*agent.Checkpoint, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := s.client.Get(ctx, s.docKey(agentID, subscriptionID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, agent.ErrCheckpointNotFound
		}
		return nil, fmt.Errorf("failed to load checkpoint: %w", err)
	}

	var cp agent.Checkpoint
	if err := json.Unmarshal(data, &cp); err != nil {
		return nil, fmt.Errorf("failed to decode checkpoint: %w", err)
	}
	return &cp, nil
}

// Save persists the checkpoint, creating it if absent. Saves whose
// position is behind the stored one fail.
func (s *CheckpointStore) Save(ctx context.Context, cp *agent.Checkpoint) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.Marshal(cp)
	if err != nil {
		return fmt.Errorf("failed to encode checkpoint: %w", err)
	}

	keys := []string{
		s.docKey(cp.AgentID, cp.SubscriptionID),
		s.posKey(cp.AgentID, cp.SubscriptionID),
	}
	res, err := saveScript.Run(ctx, s.client, keys,
		data, strconv.FormatInt(cp.LastProcessedPosition, 10)).Int()
	if err != nil {
		return fmt.Errorf("failed to save checkpoint: %w", err)
	}
	if res == 0 {
		return fmt.Errorf("checkpoint %s/%s: position %d regresses stored position",
			cp.AgentID, cp.SubscriptionID, cp.LastProcessedPosition)
	}
	return nil
}

// List returns all checkpoints for an agent.
func (s *CheckpointStore) List(ctx context.Context, agentID string) ([]*agent.Checkpoint, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	pattern := s.keyPrefix + "checkpoint:" + agentID + ":*"
	iter := s.client.Scan(ctx, 0, pattern, 100).Iterator()

	var out []*agent.Checkpoint
	for iter.Next(ctx) {
		data, err := s.client.Get(ctx, iter.Val()).Bytes()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue
			}
			return nil, fmt.Errorf("failed to load checkpoint: %w", err)
		}
		var cp agent.Checkpoint
		if err := json.Unmarshal(data, &cp); err != nil {
			return nil, fmt.Errorf("failed to decode checkpoint: %w", err)
		}
		out = append(out, &cp)
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("checkpoint scan failed: %w", err)
	}
	return out, nil
}

// Ping checks the Redis connection.
func (s *CheckpointStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close closes the Redis connection.
func (s *CheckpointStore) Close() error {
	return s.client.Close()
}

// Ensure CheckpointStore implements agent.CheckpointStore.
var _ agent.CheckpointStore = (*CheckpointStore)(nil)
