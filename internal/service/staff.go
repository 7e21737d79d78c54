package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"inventorypro/backend/internal/domain"
	"inventorypro/backend/internal/store"
)

func (s *Service) ListPermissions(ctx context.Context) ([]domain.PermissionInfo, error) {
	if _, err := s.requireActor(ctx); err != nil {
		return nil, err
	}
	return domain.Permissions(), nil
}

func (s *Service) ListStaff(ctx context.Context) ([]domain.UserView, error) {
	if _, err := s.authorize(ctx, domain.PermManageStaff); err != nil {
		return nil, err
	}
	users, err := s.repo.ListUsers(ctx, domain.RoleStaff)
	if err != nil {
		return nil, err
	}
	views := make([]domain.UserView, 0, len(users))
	for _, u := range users {
		views = append(views, domain.NewUserView(u))
	}
	return views, nil
}

func (s *Service) GetStaff(ctx context.Context, id int64) (domain.UserView, error) {
	if _, err := s.authorize(ctx, domain.PermManageStaff); err != nil {
		return domain.UserView{}, err
	}
	user, err := s.repo.GetUserByID(ctx, id)
	if err != nil {
		return domain.UserView{}, err
	}
	return domain.NewUserView(*user), nil
}

func (s *Service) CreateStaff(ctx context.Context, req domain.StaffCreateRequest) (domain.UserView, error) {
	if _, err := s.authorize(ctx, domain.PermManageStaff); err != nil {
		return domain.UserView{}, err
	}

	username := strings.TrimSpace(req.Username)
	if err := validateUsername(username); err != nil {
		return domain.UserView{}, err
	}
	if len(req.Password) < 8 || len(req.Password) > maxCredentialLength {
		return domain.UserView{}, store.Invalid("password must be between 8 and %d characters", maxCredentialLength)
	}
	perms, err := parsePermissions(req.Permissions)
	if err != nil {
		return domain.UserView{}, err
	}

	hash, err := hashPassword(req.Password)
	if err != nil {
		return domain.UserView{}, err
	}
	created, err := s.repo.CreateUser(ctx, domain.User{
		Username:     username,
		PasswordHash: hash,
		Role:         domain.RoleStaff,
		Active:       true,
		Permissions:  perms,
	})
	if err != nil {
		return domain.UserView{}, err
	}

	s.logAudit(ctx, "staff_create", "user", fmt.Sprint(created.ID), "username="+created.Username+" permissions="+joinPermissions(perms))
	return domain.NewUserView(*created), nil
}

// UpdateStaffPermissions replaces the granted permission set of a staff user.
func (s *Service) UpdateStaffPermissions(ctx context.Context, id int64, req domain.StaffPermissionsRequest) (domain.UserView, error) {
	if _, err := s.authorize(ctx, domain.PermManageStaff); err != nil {
		return domain.UserView{}, err
	}
	if _, err := s.modifiableStaff(ctx, id); err != nil {
		return domain.UserView{}, err
	}
	perms, err := parsePermissions(req.Permissions)
	if err != nil {
		return domain.UserView{}, err
	}

	if err := s.repo.SetUserPermissions(ctx, id, perms); err != nil {
		return domain.UserView{}, err
	}
	s.invalidateActor(ctx, id)

	updated, err := s.repo.GetUserByID(ctx, id)
	if err != nil {
		return domain.UserView{}, err
	}
	s.logAudit(ctx, "staff_permissions_update", "user", fmt.Sprint(id), "permissions="+joinPermissions(perms))
	return domain.NewUserView(*updated), nil
}

// DeactivateStaff disables login and revokes every permission. The row is kept.
func (s *Service) DeactivateStaff(ctx context.Context, id int64) (domain.DeleteResponse, error) {
	if _, err := s.authorize(ctx, domain.PermManageStaff); err != nil {
		return domain.DeleteResponse{}, err
	}
	user, err := s.modifiableStaff(ctx, id)
	if err != nil {
		return domain.DeleteResponse{}, err
	}

	if err := s.repo.DeactivateUser(ctx, id); err != nil {
		return domain.DeleteResponse{}, err
	}
	s.invalidateActor(ctx, id)

	s.logAudit(ctx, "staff_deactivate", "user", fmt.Sprint(id), "username="+user.Username)
	return domain.DeleteResponse{OK: true, Message: "user deactivated"}, nil
}

func (s *Service) modifiableStaff(ctx context.Context, id int64) (*domain.User, error) {
	user, err := s.repo.GetUserByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if user.Role == domain.RoleSuperAdmin {
		return nil, fmt.Errorf("%w: super admin accounts cannot be modified", store.ErrForbidden)
	}
	return user, nil
}

func (s *Service) invalidateActor(ctx context.Context, id int64) {
	if err := s.perms.Invalidate(ctx, id); err != nil {
		log.Warn().Err(err).Int64("user_id", id).Msg("permission cache invalidate failed")
	}
}

func parsePermissions(raw []domain.Permission) (domain.PermissionSet, error) {
	set := domain.NewPermissionSet()
	for _, p := range raw {
		parsed, err := domain.ParsePermission(string(p))
		if err != nil {
			return nil, store.Invalid("%s", err.Error())
		}
		set[parsed] = struct{}{}
	}
	return set, nil
}

func joinPermissions(perms domain.PermissionSet) string {
	list := perms.List()
	names := make([]string, 0, len(list))
	for _, p := range list {
		names = append(names, string(p))
	}
	return strings.Join(names, "|")
}
