package cache

import (
	"context"
	"strconv"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"inventorypro/backend/internal/domain"
)

// PermissionCache holds the resolved actor for a user id so the auth gate
// does not reload role and permissions on every request.
type PermissionCache interface {
	Get(ctx context.Context, userID int64) (*domain.Actor, bool, error)
	Set(ctx context.Context, actor domain.Actor) error
	Invalidate(ctx context.Context, userID int64) error
}

type NoopPermissionCache struct{}

func (NoopPermissionCache) Get(_ context.Context, _ int64) (*domain.Actor, bool, error) {
	return nil, false, nil
}

func (NoopPermissionCache) Set(_ context.Context, _ domain.Actor) error {
	return nil
}

func (NoopPermissionCache) Invalidate(_ context.Context, _ int64) error {
	return nil
}

const lruSize = 1024

type LRUPermissionCache struct {
	lru *expirable.LRU[int64, domain.Actor]
}

func NewLRUPermissionCache(ttl time.Duration) *LRUPermissionCache {
	return &LRUPermissionCache{lru: expirable.NewLRU[int64, domain.Actor](lruSize, nil, ttl)}
}

func (c *LRUPermissionCache) Get(_ context.Context, userID int64) (*domain.Actor, bool, error) {
	actor, ok := c.lru.Get(userID)
	if !ok {
		return nil, false, nil
	}
	actor.Permissions = clonePermissions(actor.Permissions)
	return &actor, true, nil
}

func (c *LRUPermissionCache) Set(_ context.Context, actor domain.Actor) error {
	actor.Permissions = clonePermissions(actor.Permissions)
	c.lru.Add(actor.UserID, actor)
	return nil
}

func (c *LRUPermissionCache) Invalidate(_ context.Context, userID int64) error {
	c.lru.Remove(userID)
	return nil
}

func clonePermissions(perms domain.PermissionSet) domain.PermissionSet {
	return domain.NewPermissionSet(perms.List()...)
}

func permissionKey(userID int64) string {
	return "perm:user:" + strconv.FormatInt(userID, 10)
}
