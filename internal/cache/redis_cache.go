package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/LeventeLantos/sms-queue/internal/model"
)

const (
	pendingKeyPrefix = "sms:pending:"
	generationKey    = "sms:pending:gen"
)

func pendingKey(gen int64) string {
	return pendingKeyPrefix + strconv.FormatInt(gen, 10)
}

type RedisCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisCache(rdb *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{rdb: rdb, ttl: ttl}
}

// Generation returns the current snapshot generation; 0 before the first
// invalidation.
func (c *RedisCache) Generation(ctx context.Context) (int64, error) {
	gen, err := c.rdb.Get(ctx, generationKey).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read pending generation: %w", err)
	}
	return gen, nil
}

func (c *RedisCache) GetPending(ctx context.Context) ([]model.Message, error) {
	gen, err := c.Generation(ctx)
	if err != nil {
		return nil, err
	}

	raw, err := c.rdb.Get(ctx, pendingKey(gen)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrMiss
	}
	if err != nil {
		return nil, err
	}

	var msgs []model.Message
	if err := json.Unmarshal(raw, &msgs); err != nil {
		return nil, fmt.Errorf("decode pending snapshot: %w", err)
	}
	return msgs, nil
}

// StorePending writes msgs under gen. A gen that has since been invalidated
// lands under a key no reader looks at and expires with the TTL.
func (c *RedisCache) StorePending(ctx context.Context, gen int64, msgs []model.Message) error {
	if msgs == nil {
		msgs = []model.Message{}
	}

	b, err := json.Marshal(msgs)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, pendingKey(gen), b, c.ttl).Err()
}

func (c *RedisCache) InvalidatePending(ctx context.Context) error {
	return c.rdb.Incr(ctx, generationKey).Err()
}
