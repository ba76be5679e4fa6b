package redis

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jahatelomain/jahatelo-sub002/internal/domain"

	wbfredis "github.com/wb-go/wbf/redis"
	"github.com/wb-go/wbf/retry"
)

// RedisCache is a write-through cache for scheduled notification records.
// It is advisory only: every dispatch-relevant mutation goes to Postgres
// first and invalidates the cached copy.
type RedisCache struct {
	client  *wbfredis.Client
	retries retry.Strategy
}

func NewRedisCache(client *wbfredis.Client, retries retry.Strategy) *RedisCache {
	return &RedisCache{
		client:  client,
		retries: retries,
	}
}

func (r *RedisCache) Get(ctx context.Context, id string) (*domain.ScheduledNotification, error) {
	val, err := r.client.GetWithRetry(ctx, r.retries, "sched:"+id)
	if err != nil || val == "" {
		return nil, err
	}
	var notif domain.ScheduledNotification
	if err := json.Unmarshal([]byte(val), &notif); err != nil {
		return nil, err
	}
	return &notif, nil
}

func (r *RedisCache) Set(ctx context.Context, id string, notif *domain.ScheduledNotification, ttl time.Duration) error {
	data, err := json.Marshal(notif)
	if err != nil {
		return err
	}
	return r.client.SetWithRetry(ctx, r.retries, "sched:"+id, string(data))
}

func (r *RedisCache) Del(ctx context.Context, id string) error {
	return r.client.DelWithRetry(ctx, r.retries, "sched:"+id)
}
