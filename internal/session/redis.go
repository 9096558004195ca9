package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/pavelanni/memorylane/internal/model"
	"github.com/redis/go-redis/v9"
)

// RedisStore keeps JSON snapshots under memorylane:session:{id}. Every Put
// refreshes the key's TTL.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore returns a store backed by client. A non-positive ttl keeps
// keys until they are deleted.
func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

func (r *RedisStore) Put(ctx context.Context, id string, st model.SessionState) error {
	data, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("marshal session %s: %w", id, err)
	}
	ttl := r.ttl
	if ttl < 0 {
		ttl = 0
	}
	if err := r.client.Set(ctx, r.key(id), data, ttl).Err(); err != nil {
		return fmt.Errorf("save session %s: %w", id, err)
	}
	return nil
}

func (r *RedisStore) Load(ctx context.Context, id string) (model.SessionState, error) {
	data, err := r.client.Get(ctx, r.key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return model.SessionState{}, ErrNotFound
	}
	if err != nil {
		return model.SessionState{}, fmt.Errorf("load session %s: %w", id, err)
	}
	var st model.SessionState
	if err := json.Unmarshal(data, &st); err != nil {
		return model.SessionState{}, fmt.Errorf("decode session %s: %w", id, err)
	}
	return st, nil
}

func (r *RedisStore) Delete(ctx context.Context, id string) error {
	if err := r.client.Del(ctx, r.key(id)).Err(); err != nil {
		return fmt.Errorf("delete session %s: %w", id, err)
	}
	return nil
}

func (r *RedisStore) key(id string) string {
	return "memorylane:session:" + id
}
