package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"inventorypro/backend/internal/cache"
	"inventorypro/backend/internal/domain"
	"inventorypro/backend/internal/events"
	"inventorypro/backend/internal/store"
	"inventorypro/backend/internal/xid"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUnauthenticated    = errors.New("unauthenticated")
)

type actorContextKey struct{}

func WithActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

func ActorFromContext(ctx context.Context) (domain.Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(domain.Actor)
	return actor, ok
}

type Service struct {
	repo      store.Repository
	perms     cache.PermissionCache
	publisher events.Publisher
	now       func() time.Time
}

func New(repo store.Repository, perms cache.PermissionCache, publisher events.Publisher) *Service {
	if perms == nil {
		perms = cache.NoopPermissionCache{}
	}
	if publisher == nil {
		publisher = events.NoopPublisher{}
	}

	return &Service{
		repo:      repo,
		perms:     perms,
		publisher: publisher,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// authorize returns the request actor if it holds perm. Super admins hold
// every permission.
func (s *Service) authorize(ctx context.Context, perm domain.Permission) (domain.Actor, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok {
		return domain.Actor{}, ErrUnauthenticated
	}
	if !actor.Can(perm) {
		return domain.Actor{}, fmt.Errorf("%w: missing permission %s", store.ErrForbidden, perm)
	}
	return actor, nil
}

func (s *Service) requireActor(ctx context.Context) (domain.Actor, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok {
		return domain.Actor{}, ErrUnauthenticated
	}
	return actor, nil
}

func (s *Service) requireSuperAdmin(ctx context.Context) (domain.Actor, error) {
	actor, err := s.requireActor(ctx)
	if err != nil {
		return domain.Actor{}, err
	}
	if actor.Role != domain.RoleSuperAdmin {
		return domain.Actor{}, fmt.Errorf("%w: super admin only", store.ErrForbidden)
	}
	return actor, nil
}

// logAudit records a mutation. Failures are logged and never surface to the caller.
func (s *Service) logAudit(ctx context.Context, action string, entityType string, entityID string, detail string) {
	actor, ok := ActorFromContext(ctx)
	if !ok {
		actor = domain.Actor{Username: "system", Role: "SYSTEM"}
	}

	if err := s.repo.CreateAuditLog(ctx, domain.AuditLog{
		ID:            xid.New("audit"),
		ActorUsername: actor.Username,
		ActorRole:     string(actor.Role),
		Action:        action,
		EntityType:    entityType,
		EntityID:      entityID,
		Detail:        detail,
		CreatedAt:     s.now(),
	}); err != nil {
		log.Warn().Err(err).
			Str("action", action).
			Str("entity", entityType+"/"+entityID).
			Msg("failed to write audit log")
	}
}
