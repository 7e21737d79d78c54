package httpapi

import (
	"context"
	"errors"
	"strconv"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"

	"inventorypro/backend/internal/domain"
)

const tokenIssuer = "inventorypro"

type AuthManager struct {
	secret   []byte
	tokenTTL time.Duration
	users    Authenticator
}

// Authenticator verifies a username and password.
type Authenticator interface {
	Authenticate(ctx context.Context, req domain.LoginRequest) (domain.User, error)
}

type inventoryClaims struct {
	jwtlib.RegisteredClaims
	Username string      `json:"username"`
	Role     domain.Role `json:"role"`
}

func NewAuthManager(secret string, tokenTTL time.Duration, users Authenticator) *AuthManager {
	if tokenTTL <= 0 {
		tokenTTL = 7 * 24 * time.Hour
	}
	return &AuthManager{
		secret:   []byte(secret),
		tokenTTL: tokenTTL,
		users:    users,
	}
}

// Login returns a signed access token for valid credentials along with its expiry.
func (a *AuthManager) Login(ctx context.Context, req domain.LoginRequest) (domain.LoginResponse, time.Time, error) {
	user, err := a.users.Authenticate(ctx, req)
	if err != nil {
		return domain.LoginResponse{}, time.Time{}, err
	}

	expiresAt := time.Now().UTC().Add(a.tokenTTL)
	token, err := a.sign(user, expiresAt)
	if err != nil {
		return domain.LoginResponse{}, time.Time{}, err
	}

	return domain.LoginResponse{
		OK: true,
		User: domain.LoginUser{
			ID:       user.ID,
			Username: user.Username,
			Role:     user.Role,
		},
		AccessToken: token,
		ExpiresAt:   expiresAt.Format(time.RFC3339),
	}, expiresAt, nil
}

// ParseToken validates a token and returns the user id it was issued for.
// Role and permissions are always reloaded from the store, never trusted
// from the token.
func (a *AuthManager) ParseToken(tokenStr string) (int64, error) {
	claims := &inventoryClaims{}
	token, err := jwtlib.ParseWithClaims(tokenStr, claims, func(t *jwtlib.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwtlib.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return a.secret, nil
	}, jwtlib.WithValidMethods([]string{"HS256"}), jwtlib.WithIssuer(tokenIssuer))
	if err != nil || !token.Valid {
		return 0, errors.New("invalid or expired token")
	}
	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return 0, errors.New("invalid token subject")
	}
	userID, err := strconv.ParseInt(sub, 10, 64)
	if err != nil || userID < 1 {
		return 0, errors.New("invalid token subject")
	}
	return userID, nil
}

func (a *AuthManager) sign(user domain.User, expiresAt time.Time) (string, error) {
	claims := inventoryClaims{
		RegisteredClaims: jwtlib.RegisteredClaims{
			Subject:   strconv.FormatInt(user.ID, 10),
			IssuedAt:  jwtlib.NewNumericDate(time.Now().UTC()),
			ExpiresAt: jwtlib.NewNumericDate(expiresAt),
			Issuer:    tokenIssuer,
		},
		Username: user.Username,
		Role:     user.Role,
	}
	token := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims)
	return token.SignedString(a.secret)
}
