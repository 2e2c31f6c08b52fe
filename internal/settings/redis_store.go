package settings

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"blofin-trading-bot/config"
)

// settingsKey is the Redis key holding the serialized trading parameters
const settingsKey = "bandbot:settings"

// RedisStore keeps the trading parameters in Redis so they survive restarts
// and can be edited by external tooling. Reads fall back to the seed snapshot
// until the key exists.
type RedisStore struct {
	client *redis.Client
	seed   config.Snapshot
}

func NewRedisStore(client *redis.Client, seed config.Snapshot) *RedisStore {
	return &RedisStore{client: client, seed: seed}
}

func (s *RedisStore) Snapshot(ctx context.Context) (config.Snapshot, error) {
	data, err := s.client.Get(ctx, settingsKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return s.seed, nil
	}
	if err != nil {
		return config.Snapshot{}, fmt.Errorf("error reading settings from redis: %w", err)
	}

	var snap config.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return config.Snapshot{}, fmt.Errorf("error parsing stored settings: %w", err)
	}
	return snap, nil
}

func (s *RedisStore) Update(ctx context.Context, snap config.Snapshot) error {
	if err := snap.Validate(); err != nil {
		return err
	}

	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("error serializing settings: %w", err)
	}

	if err := s.client.Set(ctx, settingsKey, data, 0).Err(); err != nil {
		return fmt.Errorf("error writing settings to redis: %w", err)
	}
	return nil
}
