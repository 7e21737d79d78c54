package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"

	"inventorypro/backend/internal/domain"
	"inventorypro/backend/internal/store"
)

const maxCredentialLength = 128

// Authenticate checks a username and password and returns the active user.
func (s *Service) Authenticate(ctx context.Context, req domain.LoginRequest) (domain.User, error) {
	username := strings.TrimSpace(req.Username)
	if username == "" || req.Password == "" {
		return domain.User{}, store.Invalid("username and password are required")
	}
	if len(username) > maxCredentialLength || len(req.Password) > maxCredentialLength {
		return domain.User{}, ErrInvalidCredentials
	}

	user, err := s.repo.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.User{}, ErrInvalidCredentials
		}
		return domain.User{}, err
	}
	if !verifyPassword(user.PasswordHash, req.Password) {
		return domain.User{}, ErrInvalidCredentials
	}
	if !user.Active {
		return domain.User{}, fmt.Errorf("%w: account is inactive", ErrInvalidCredentials)
	}
	return *user, nil
}

// ResolveActor loads the current role and permissions of a token subject.
// Deleted and deactivated users resolve to ErrUnauthenticated.
func (s *Service) ResolveActor(ctx context.Context, userID int64) (domain.Actor, error) {
	cached, ok, err := s.perms.Get(ctx, userID)
	if err != nil {
		log.Warn().Err(err).Int64("user_id", userID).Msg("permission cache read failed")
	}
	if ok && cached != nil {
		return *cached, nil
	}

	user, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.Actor{}, ErrUnauthenticated
		}
		return domain.Actor{}, err
	}
	if !user.Active {
		return domain.Actor{}, ErrUnauthenticated
	}

	actor := domain.Actor{
		UserID:      user.ID,
		Username:    user.Username,
		Role:        user.Role,
		Permissions: user.Permissions,
	}
	if err := s.perms.Set(ctx, actor); err != nil {
		log.Warn().Err(err).Int64("user_id", userID).Msg("permission cache write failed")
	}
	return actor, nil
}

func (s *Service) Me(ctx context.Context) (domain.MeResponse, error) {
	actor, err := s.requireActor(ctx)
	if err != nil {
		return domain.MeResponse{}, err
	}
	user, err := s.repo.GetUserByID(ctx, actor.UserID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.MeResponse{}, ErrUnauthenticated
		}
		return domain.MeResponse{}, err
	}

	view := domain.NewUserView(*user)
	grants := view.Permissions
	if user.Role == domain.RoleSuperAdmin {
		grants = make([]domain.PermissionGrant, 0, len(domain.Permissions()))
		for _, info := range domain.Permissions() {
			grants = append(grants, domain.PermissionGrant{PermissionName: info.Name, Granted: true})
		}
	}
	return domain.MeResponse{User: view, Permissions: grants}, nil
}

// Setup creates the first super admin. It refuses once any user exists; the
// count below only fails fast, the store re-checks atomically on insert.
func (s *Service) Setup(ctx context.Context, req domain.SetupRequest) (domain.UserView, error) {
	count, err := s.repo.CountUsers(ctx)
	if err != nil {
		return domain.UserView{}, err
	}
	if count > 0 {
		return domain.UserView{}, fmt.Errorf("%w: setup has already been completed", store.ErrForbidden)
	}

	username := strings.TrimSpace(req.Username)
	if err := validateUsername(username); err != nil {
		return domain.UserView{}, err
	}
	if !isStrongPassword(req.Password) {
		return domain.UserView{}, store.Invalid("password must be at least 8 characters and include upper case, lower case, a digit and one of @$!%%*?&")
	}

	hash, err := hashPassword(req.Password)
	if err != nil {
		return domain.UserView{}, err
	}
	created, err := s.repo.CreateFirstUser(ctx, domain.User{
		Username:     username,
		PasswordHash: hash,
		Role:         domain.RoleSuperAdmin,
		Active:       true,
		Permissions:  domain.NewPermissionSet(),
	})
	if err != nil {
		return domain.UserView{}, err
	}

	if name := strings.TrimSpace(req.BusinessName); name != "" {
		settings, err := s.repo.GetSettings(ctx)
		if err == nil {
			settings.BusinessName = name
			_, err = s.repo.SaveSettings(ctx, settings)
		}
		if err != nil {
			log.Warn().Err(err).Msg("setup: failed to store business name")
		}
	}

	ctx = WithActor(ctx, domain.Actor{UserID: created.ID, Username: created.Username, Role: created.Role})
	s.logAudit(ctx, "setup", "user", fmt.Sprint(created.ID), "username="+created.Username)
	return domain.NewUserView(*created), nil
}

func validateUsername(username string) error {
	if len(username) < 3 || len(username) > 64 {
		return store.Invalid("username must be between 3 and 64 characters")
	}
	if strings.ContainsAny(username, " \t\r\n") {
		return store.Invalid("username must not contain spaces")
	}
	return nil
}

func isStrongPassword(password string) bool {
	if len(password) < 8 || len(password) > maxCredentialLength {
		return false
	}
	var upper, lower, digit, special bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		case strings.ContainsRune("@$!%*?&", r):
			special = true
		}
	}
	return upper && lower && digit && special
}

func verifyPassword(stored string, input string) bool {
	if stored == "" || strings.TrimSpace(input) == "" || !isPasswordHash(stored) {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(stored), []byte(input)) == nil
}

func hashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(bytes), nil
}

func isPasswordHash(value string) bool {
	return strings.HasPrefix(value, "$2a$") || strings.HasPrefix(value, "$2b$") || strings.HasPrefix(value, "$2y$")
}
