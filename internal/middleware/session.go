package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/cychmps426211/travelplan/internal/domain"
	"github.com/cychmps426211/travelplan/internal/identity"
)

// SessionCookie is the HttpOnly cookie carrying the session token.
const SessionCookie = "session"

// Authorizer resolves a session token to the signed-in caller.
// *identity.Gate implements it.
type Authorizer interface {
	Authorize(ctx context.Context, token string) (identity.Principal, error)
}

// SessionToken returns the session token from the cookie, falling back to an
// "Authorization: Bearer" header for non-browser clients.
func SessionToken(r *http.Request) string {
	if c, err := r.Cookie(SessionCookie); err == nil && c.Value != "" {
		return c.Value
	}
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}
	return ""
}

// ClearSessionCookie expires the session cookie on the client.
func ClearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// RequireSession rejects requests without a valid session and stores the
// caller's identity.Principal in the request context. A session that cannot
// be checked because the store is down yields 503, never the protected
// content.
func RequireSession(auth Authorizer, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, err := auth.Authorize(r.Context(), SessionToken(r))
			if errors.Is(err, domain.ErrUnauthorized) {
				ClearSessionCookie(w)
				writeError(w, http.StatusUnauthorized, "unauthorized", "sign-in required")
				return
			}
			if err != nil {
				log.ErrorContext(r.Context(), "session check failed", "error", err)
				writeError(w, http.StatusServiceUnavailable, "session_unavailable", "session could not be verified")
				return
			}
			next.ServeHTTP(w, r.WithContext(identity.WithPrincipal(r.Context(), p)))
		})
	}
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]string{"code": code, "message": message},
	})
}
