package status

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"proctor/internal/proctoring/models"
	id "proctor/pkg/domain"
	"proctor/pkg/platform/sentinel"
)

const (
	statusKeyPrefix = "proctor:status:"
	DefaultTTL      = 6 * time.Hour
)

// RedisCache stores snapshots as JSON with a TTL so abandoned sessions
// expire on their own.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

type RedisOption func(*RedisCache)

func WithTTL(ttl time.Duration) RedisOption {
	return func(c *RedisCache) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

func NewRedis(client *redis.Client, opts ...RedisOption) *RedisCache {
	c := &RedisCache{client: client, ttl: DefaultTTL}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *RedisCache) Put(ctx context.Context, status models.SessionStatus) error {
	payload, err := json.Marshal(status)
	if err != nil {
		return fmt.Errorf("marshal status: %w", err)
	}
	return c.client.Set(ctx, statusKeyPrefix+status.SessionID.String(), payload, c.ttl).Err()
}

func (c *RedisCache) Get(ctx context.Context, sessionID id.SessionID) (*models.SessionStatus, error) {
	payload, err := c.client.Get(ctx, statusKeyPrefix+sessionID.String()).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("status for session %s: %w", sessionID, sentinel.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get status: %w", err)
	}
	var st models.SessionStatus
	if err := json.Unmarshal(payload, &st); err != nil {
		return nil, fmt.Errorf("unmarshal status: %w", err)
	}
	return &st, nil
}
