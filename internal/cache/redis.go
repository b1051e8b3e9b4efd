package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/z00rs/learn2earn-herman-test/internal/models"
)

const redisKeyPrefix = "learn2earn:status:"

// Redis backs the status cache with a shared store so multiple API instances
// see the same views and the same invalidations. Redis failures degrade to
// cache misses; the ledger remains the fallback source of truth.
type Redis struct {
	rdb *redis.Client
	ttl time.Duration
}

var _ StatusCache = (*Redis)(nil)

func NewRedis(addr string, ttl time.Duration) (*Redis, error) {
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		return nil, err
	}
	return &Redis{rdb: rdb, ttl: ttl}, nil
}

func (r *Redis) Get(ctx context.Context, address string) (*models.StatusView, bool) {
	raw, err := r.rdb.Get(ctx, redisKeyPrefix+address).Bytes()
	if err != nil {
		lookupsTotal.WithLabelValues("redis", "miss").Inc()
		return nil, false
	}
	var view models.StatusView
	if err := json.Unmarshal(raw, &view); err != nil {
		lookupsTotal.WithLabelValues("redis", "miss").Inc()
		return nil, false
	}
	lookupsTotal.WithLabelValues("redis", "hit").Inc()
	return &view, true
}

func (r *Redis) Set(ctx context.Context, address string, view *models.StatusView) {
	raw, err := json.Marshal(view)
	if err != nil {
		return
	}
	r.rdb.Set(ctx, redisKeyPrefix+address, raw, r.ttl)
}

func (r *Redis) Delete(ctx context.Context, address string) {
	r.rdb.Del(ctx, redisKeyPrefix+address)
}
