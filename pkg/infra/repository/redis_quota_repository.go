package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ApexGov/inspector/pkg/domain/quota"
	"github.com/go-redis/redis/v8"
)

const (
	QuotaKeyPattern = "quota:%s"
	quotaTTLGrace   = time.Minute
)

type RedisQuotaRepositoryOpts struct {
	TimeProvider func() time.Time
}

type redisQuotaRepository struct {
	client       *redis.Client
	timeProvider func() time.Time
}

func NewRedisQuotaRepository(client *redis.Client, opts *RedisQuotaRepositoryOpts) quota.Repository {
	timeProvider := time.Now
	if opts != nil && opts.TimeProvider != nil {
		timeProvider = opts.TimeProvider
	}
	return &redisQuotaRepository{
		client:       client,
		timeProvider: timeProvider,
	}
}

func (r *redisQuotaRepository) Get(ctx context.Context, key string) (*quota.State, error) {
	raw, err := r.client.Get(ctx, fmt.Sprintf(QuotaKeyPattern, key)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, quota.ErrStateNotFound
		}
		return nil, fmt.Errorf("failed to read quota state: %w", err)
	}
	var state quota.State
	if err := json.Unmarshal([]byte(raw), &state); err != nil {
		return nil, quota.ErrStateNotFound
	}
	return &state, nil
}

// Save keeps the key alive until shortly after the window ends so redis
// evicts stale windows on its own.
func (r *redisQuotaRepository) Save(ctx context.Context, key string, state quota.State) error {
	payload, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to marshal quota state: %w", err)
	}
	ttl := state.ResetTime().Sub(r.timeProvider()) + quotaTTLGrace
	if ttl < quotaTTLGrace {
		ttl = quotaTTLGrace
	}
	return r.client.Set(ctx, fmt.Sprintf(QuotaKeyPattern, key), string(payload), ttl).Err()
}

func (r *redisQuotaRepository) Delete(ctx context.Context, key string) error {
	return r.client.Del(ctx, fmt.Sprintf(QuotaKeyPattern, key)).Err()
}

func (r *redisQuotaRepository) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	var (
		cursor  uint64
		removed int64
	)
	for {
		keys, next, err := r.client.Scan(ctx, cursor, fmt.Sprintf(QuotaKeyPattern, "*"), 100).Result()
		if err != nil {
			return removed, fmt.Errorf("error scanning keys: %w", err)
		}
		for _, key := range keys {
			raw, err := r.client.Get(ctx, key).Result()
			if err != nil {
				continue
			}
			var state quota.State
			if err := json.Unmarshal([]byte(raw), &state); err == nil && state.ResetAt >= before.UnixMilli() {
				continue
			}
			n, err := r.client.Del(ctx, key).Result()
			if err != nil {
				return removed, fmt.Errorf("error deleting key %s: %w", key, err)
			}
			removed += n
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}
	return removed, nil
}
