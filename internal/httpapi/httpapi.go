package httpapi

import (
	"crypto/rand"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"inventorypro/backend/internal/domain"
	"inventorypro/backend/internal/service"
	"inventorypro/backend/internal/store"
)

const (
	tokenCookieName = "token"
	maxListLimit    = 1000
)

type API struct {
	service       *service.Service
	auth          *AuthManager
	allowedOrigin string
	cookieSecure  bool
	loginLimiter  *attemptLimiter
	setupLimiter  *attemptLimiter
	csrfSecret    []byte
}

func New(svc *service.Service, auth *AuthManager, allowedOrigin string, cookieSecure bool) *API {
	csrfSecret := make([]byte, 32)
	if _, err := rand.Read(csrfSecret); err != nil {
		log.Fatal().Err(err).Msg("generate csrf secret")
	}
	return &API{
		service:       svc,
		auth:          auth,
		allowedOrigin: allowedOrigin,
		cookieSecure:  cookieSecure,
		loginLimiter:  newAttemptLimiter(5, time.Minute),
		setupLimiter:  newAttemptLimiter(5, time.Minute),
		csrfSecret:    csrfSecret,
	}
}

func (a *API) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", a.handleHealth)
	mux.HandleFunc("/api/auth/login", a.handleLogin)
	mux.HandleFunc("/api/auth/logout", a.handleLogout)
	mux.HandleFunc("/api/auth/setup", a.handleSetup)
	mux.HandleFunc("/api/auth/csrf-token", a.handleCSRFToken)
	mux.HandleFunc("/api/auth/me", a.requireAuth(a.handleMe))

	mux.HandleFunc("/api/products", a.requireAuth(a.handleProducts))
	mux.HandleFunc("/api/products/low-stock", a.requireAuth(a.handleLowStock))
	mux.HandleFunc("/api/products/{artNo}", a.requireAuth(a.handleProduct))
	mux.HandleFunc("/api/suppliers", a.requireAuth(a.handleSuppliers))
	mux.HandleFunc("/api/suppliers/{id}", a.requireAuth(a.handleSupplier))
	mux.HandleFunc("/api/customers", a.requireAuth(a.handleCustomers))
	mux.HandleFunc("/api/customers/{id}", a.requireAuth(a.handleCustomer))
	mux.HandleFunc("/api/purchases", a.requireAuth(a.handlePurchases))
	mux.HandleFunc("/api/purchases/{id}", a.requireAuth(a.handlePurchase))
	mux.HandleFunc("/api/sales", a.requireAuth(a.handleSales))
	mux.HandleFunc("/api/sales/{id}", a.requireAuth(a.handleSale))

	mux.HandleFunc("/api/users", a.requireAuth(a.handleUsers))
	mux.HandleFunc("/api/users/{id}", a.requireAuth(a.handleUser))
	mux.HandleFunc("/api/permissions", a.requireAuth(a.handlePermissions))
	mux.HandleFunc("/api/settings", a.requireAuth(a.handleSettings))
	mux.HandleFunc("/api/backup", a.requireAuth(a.handleBackup))
	mux.HandleFunc("/api/audit-logs", a.requireAuth(a.handleAuditLogs))

	return a.withMiddleware(mux)
}

// requireAuth resolves the caller from a bearer token or the token cookie and
// reloads its role and permissions before calling next.
func (a *API) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := credentialFromRequest(r)
		if token == "" {
			writeError(w, http.StatusUnauthorized, errors.New("authentication required"))
			return
		}

		userID, err := a.auth.ParseToken(token)
		if err != nil {
			writeError(w, http.StatusUnauthorized, err)
			return
		}
		actor, err := a.service.ResolveActor(r.Context(), userID)
		if err != nil {
			if errors.Is(err, service.ErrUnauthenticated) {
				writeError(w, http.StatusUnauthorized, errors.New("account is inactive or no longer exists"))
				return
			}
			writeError(w, http.StatusInternalServerError, err)
			return
		}

		next(w, r.WithContext(service.WithActor(r.Context(), actor)))
	}
}

func credentialFromRequest(r *http.Request) string {
	authorization := strings.TrimSpace(r.Header.Get("Authorization"))
	if strings.HasPrefix(strings.ToLower(authorization), "bearer ") {
		return strings.TrimSpace(authorization[len("Bearer "):])
	}
	if cookie, err := r.Cookie(tokenCookieName); err == nil {
		return strings.TrimSpace(cookie.Value)
	}
	return ""
}

func (a *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"ok": true,
		"at": time.Now().UTC().Format(time.RFC3339),
	})
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w)
		return
	}
	if !a.loginLimiter.Allow(clientKey(r)) {
		writeError(w, http.StatusTooManyRequests, errors.New("too many login attempts, try again later"))
		return
	}

	var req domain.LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	resp, expiresAt, err := a.auth.Login(r.Context(), req)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     tokenCookieName,
		Value:    resp.AccessToken,
		Path:     "/",
		Expires:  expiresAt,
		HttpOnly: true,
		Secure:   a.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
	writeJSON(w, http.StatusOK, resp)
}

func (a *API) handleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w)
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     tokenCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   a.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (a *API) handleSetup(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w)
		return
	}
	if !a.setupLimiter.Allow(clientKey(r)) {
		writeError(w, http.StatusTooManyRequests, errors.New("too many setup attempts, try again later"))
		return
	}

	var req domain.SetupRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	user, err := a.service.Setup(r.Context(), req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"ok": true, "user": user})
}

func (a *API) handleMe(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}
	me, err := a.service.Me(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, me)
}

// handleCSRFToken returns a stateless token valid for the current hour bucket.
// Cookie-authenticated clients send it back in X-CSRF-Token on mutating requests.
func (a *API) handleCSRFToken(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"csrfToken": a.generateCSRFToken(),
	})
}

// statusForError maps service and store errors onto HTTP status codes.
func statusForError(err error) int {
	switch {
	case errors.Is(err, service.ErrInvalidCredentials), errors.Is(err, service.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, store.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, store.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, store.ErrInsufficientStock), errors.Is(err, store.ErrConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func writeServiceError(w http.ResponseWriter, err error) {
	writeError(w, statusForError(err), err)
}

func decodeJSON(r *http.Request, dest any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dest); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return errors.New("request body too large")
		}
		return err
	}
	return nil
}

func parsePositiveLimit(raw string, fallback int, max int) int {
	limit := fallback
	trimmed := strings.TrimSpace(raw)
	if trimmed != "" {
		if parsed, err := strconv.Atoi(trimmed); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	if max > 0 && limit > max {
		return max
	}
	return limit
}

func parseID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(r.PathValue("id")), 10, 64)
	if err != nil || id < 1 {
		return 0, errors.New("invalid id")
	}
	return id, nil
}

func writeMethodNotAllowed(w http.ResponseWriter) {
	writeError(w, http.StatusMethodNotAllowed, errors.New("method not allowed"))
}

func writeError(w http.ResponseWriter, status int, err error) {
	// 5xx bodies never carry internal detail.
	msg := err.Error()
	if status >= 500 {
		log.Error().Err(err).Int("status", status).Msg("internal error")
		msg = "internal server error"
	}
	writeJSON(w, status, map[string]any{
		"error": msg,
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
