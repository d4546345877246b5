package api

import (
	"crypto/subtle"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/obsidiand/obsidiand/internal/config"
)

// AuthMiddleware handles bearer token and basic authentication. With no
// token and no users configured, the API is open — the common case of a
// status page bound to localhost.
type AuthMiddleware struct {
	bearerToken string
	users       []config.UserConfig
	logger      *slog.Logger
}

// NewAuthMiddleware creates a new auth middleware from API config.
func NewAuthMiddleware(cfg config.APIConfig, logger *slog.Logger) *AuthMiddleware {
	return &AuthMiddleware{
		bearerToken: cfg.AuthToken,
		users:       cfg.Users,
		logger:      logger,
	}
}

// open reports whether no credentials are configured at all.
func (a *AuthMiddleware) open() bool {
	return a.bearerToken == "" && len(a.users) == 0
}

// RequireAuth wraps a handler to require authentication.
func (a *AuthMiddleware) RequireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if a.open() || a.authenticate(r) {
			next(w, r)
			return
		}
		w.Header().Set("WWW-Authenticate", `Basic realm="obsidiand"`)
		writeError(w, http.StatusUnauthorized, "authentication required")
	}
}

// authenticate checks bearer token then basic credentials.
func (a *AuthMiddleware) authenticate(r *http.Request) bool {
	header := r.Header.Get("Authorization")

	if a.bearerToken != "" && strings.HasPrefix(header, "Bearer ") {
		token := strings.TrimPrefix(header, "Bearer ")
		if subtle.ConstantTimeCompare([]byte(token), []byte(a.bearerToken)) == 1 {
			return true
		}
	}

	if user, pass, ok := r.BasicAuth(); ok {
		for _, u := range a.users {
			if u.Username != user {
				continue
			}
			if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(pass)) == nil {
				return true
			}
			a.logger.Warn("failed basic auth attempt", "username", user, "remote", r.RemoteAddr)
			return false
		}
	}

	return false
}

// writeError sends a JSON error body with the given status.
func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

// writeJSON sends a JSON response body.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
