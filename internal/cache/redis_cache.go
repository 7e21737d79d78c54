package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	redis "github.com/redis/go-redis/v9"

	"inventorypro/backend/internal/domain"
)

type RedisPermissionCache struct {
	client *redis.Client
	ttl    time.Duration
}

type cachedActor struct {
	UserID      int64               `json:"userId"`
	Username    string              `json:"username"`
	Role        domain.Role         `json:"role"`
	Permissions []domain.Permission `json:"permissions"`
}

func NewRedisPermissionCache(addr string, password string, db int, ttl time.Duration) *RedisPermissionCache {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	return &RedisPermissionCache{client: client, ttl: ttl}
}

func (c *RedisPermissionCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *RedisPermissionCache) Close() error {
	return c.client.Close()
}

func (c *RedisPermissionCache) Get(ctx context.Context, userID int64) (*domain.Actor, bool, error) {
	val, err := c.client.Get(ctx, permissionKey(userID)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var entry cachedActor
	if err := json.Unmarshal([]byte(val), &entry); err != nil {
		return nil, false, err
	}
	return &domain.Actor{
		UserID:      entry.UserID,
		Username:    entry.Username,
		Role:        entry.Role,
		Permissions: domain.NewPermissionSet(entry.Permissions...),
	}, true, nil
}

func (c *RedisPermissionCache) Set(ctx context.Context, actor domain.Actor) error {
	payload, err := json.Marshal(cachedActor{
		UserID:      actor.UserID,
		Username:    actor.Username,
		Role:        actor.Role,
		Permissions: actor.Permissions.List(),
	})
	if err != nil {
		return err
	}
	return c.client.Set(ctx, permissionKey(actor.UserID), payload, c.ttl).Err()
}

func (c *RedisPermissionCache) Invalidate(ctx context.Context, userID int64) error {
	return c.client.Del(ctx, permissionKey(userID)).Err()
}
