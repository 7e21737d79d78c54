package cache

import (
	"context"
	"testing"
	"time"

	"inventorypro/backend/internal/domain"
)

func TestLRUPermissionCacheRoundTrip(t *testing.T) {
	ctx := context.Background()
	c := NewLRUPermissionCache(time.Minute)

	if _, ok, _ := c.Get(ctx, 7); ok {
		t.Fatalf("expected miss on empty cache")
	}

	perms := domain.NewPermissionSet(domain.PermManageSales)
	if err := c.Set(ctx, domain.Actor{UserID: 7, Username: "staff", Role: domain.RoleStaff, Permissions: perms}); err != nil {
		t.Fatalf("set: %v", err)
	}
	perms[domain.PermManageStaff] = struct{}{}

	actor, ok, err := c.Get(ctx, 7)
	if err != nil || !ok {
		t.Fatalf("expected hit, ok=%v err=%v", ok, err)
	}
	if !actor.Permissions.Has(domain.PermManageSales) || actor.Permissions.Has(domain.PermManageStaff) {
		t.Fatalf("cached permissions should be a snapshot, got %v", actor.Permissions.List())
	}

	actor.Permissions[domain.PermManageProducts] = struct{}{}
	again, _, _ := c.Get(ctx, 7)
	if again.Permissions.Has(domain.PermManageProducts) {
		t.Fatalf("mutating a returned actor must not change the cache")
	}
}

func TestLRUPermissionCacheInvalidate(t *testing.T) {
	ctx := context.Background()
	c := NewLRUPermissionCache(time.Minute)
	_ = c.Set(ctx, domain.Actor{UserID: 1, Role: domain.RoleSuperAdmin})

	if err := c.Invalidate(ctx, 1); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	if _, ok, _ := c.Get(ctx, 1); ok {
		t.Fatalf("expected miss after invalidate")
	}
}

func TestLRUPermissionCacheExpires(t *testing.T) {
	ctx := context.Background()
	c := NewLRUPermissionCache(20 * time.Millisecond)
	_ = c.Set(ctx, domain.Actor{UserID: 3, Role: domain.RoleStaff})

	time.Sleep(80 * time.Millisecond)
	if _, ok, _ := c.Get(ctx, 3); ok {
		t.Fatalf("expected entry to expire")
	}
}
