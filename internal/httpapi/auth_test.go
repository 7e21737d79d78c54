package httpapi

import (
	"context"
	"net/http"
	"testing"
	"time"

	"inventorypro/backend/internal/domain"
	"inventorypro/backend/internal/service"
)

type authenticatorStub struct {
	user domain.User
	err  error
}

func (s authenticatorStub) Authenticate(_ context.Context, _ domain.LoginRequest) (domain.User, error) {
	return s.user, s.err
}

func TestAuthManagerTokenRoundTrip(t *testing.T) {
	auth := NewAuthManager("round-trip-secret-that-is-32-bytes", time.Hour, authenticatorStub{
		user: domain.User{ID: 7, Username: "clerk", Role: domain.RoleStaff, Active: true},
	})

	resp, expiresAt, err := auth.Login(context.Background(), domain.LoginRequest{Username: "clerk", Password: "irrelevant"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if resp.User.ID != 7 || resp.User.Role != domain.RoleStaff {
		t.Fatalf("unexpected login user %+v", resp.User)
	}
	if time.Until(expiresAt) <= 0 {
		t.Fatalf("expected expiry in the future, got %s", expiresAt)
	}

	userID, err := auth.ParseToken(resp.AccessToken)
	if err != nil {
		t.Fatalf("parse token: %v", err)
	}
	if userID != 7 {
		t.Fatalf("expected subject 7, got %d", userID)
	}
}

func TestAuthManagerPropagatesAuthenticationError(t *testing.T) {
	auth := NewAuthManager("propagate-secret-that-is-32-bytes", time.Hour, authenticatorStub{err: service.ErrInvalidCredentials})

	if _, _, err := auth.Login(context.Background(), domain.LoginRequest{Username: "x", Password: "y"}); err != service.ErrInvalidCredentials {
		t.Fatalf("expected invalid credentials, got %v", err)
	}
}

func TestParseTokenRejectsForeignSecret(t *testing.T) {
	issuer := NewAuthManager("issuer-secret-that-is-at-least-32b", time.Hour, nil)
	verifier := NewAuthManager("another-secret-that-is-at-least-32", time.Hour, nil)

	token, err := issuer.sign(domain.User{ID: 1, Username: "superadmin", Role: domain.RoleSuperAdmin}, time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := verifier.ParseToken(token); err == nil {
		t.Fatalf("expected token signed with another secret to be rejected")
	}
}

func TestParseTokenRejectsExpired(t *testing.T) {
	auth := NewAuthManager("expired-secret-that-is-at-least-32", time.Hour, nil)

	token, err := auth.sign(domain.User{ID: 1, Username: "superadmin", Role: domain.RoleSuperAdmin}, time.Now().Add(-time.Minute))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := auth.ParseToken(token); err == nil {
		t.Fatalf("expected expired token to be rejected")
	}
}

func TestDeactivatedUserTokenStopsWorking(t *testing.T) {
	api := newTestAPI(t)
	staffToken := loginAsStaff(t, api)
	adminToken := loginAsAdmin(t, api)

	rec := doJSON(t, api, http.MethodGet, "/api/auth/me", staffToken, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("me before deactivation: expected 200, got %d", rec.Code)
	}

	rec = doJSON(t, api, http.MethodDelete, "/api/users/2", adminToken, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("deactivate: expected 200, got %d (body: %s)", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, api, http.MethodGet, "/api/auth/me", staffToken, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("me after deactivation: expected 401, got %d", rec.Code)
	}
}

func TestPermissionGrantTakesEffectWithoutRelogin(t *testing.T) {
	api := newTestAPI(t)
	staffToken := loginAsStaff(t, api)
	adminToken := loginAsAdmin(t, api)

	supplier := map[string]any{"name": "Coastal Traders"}
	rec := doJSON(t, api, http.MethodPost, "/api/suppliers", staffToken, supplier)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("suppliers before grant: expected 403, got %d", rec.Code)
	}

	rec = doJSON(t, api, http.MethodPut, "/api/users/2", adminToken, domain.StaffPermissionsRequest{
		Permissions: []domain.Permission{domain.PermManageSales, domain.PermManageSuppliers},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("grant: expected 200, got %d (body: %s)", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, api, http.MethodPost, "/api/suppliers", staffToken, supplier)
	if rec.Code != http.StatusCreated {
		t.Fatalf("suppliers after grant: expected 201, got %d", rec.Code)
	}
}
