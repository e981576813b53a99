package middleware_test

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cychmps426211/travelplan/internal/domain"
	"github.com/cychmps426211/travelplan/internal/identity"
	"github.com/cychmps426211/travelplan/internal/middleware"
)

type mockAuthorizer struct {
	authorize func(ctx context.Context, token string) (identity.Principal, error)
}

func (m *mockAuthorizer) Authorize(ctx context.Context, token string) (identity.Principal, error) {
	return m.authorize(ctx, token)
}

var _ middleware.Authorizer = (*mockAuthorizer)(nil)

func tokenAuthorizer() *mockAuthorizer {
	return &mockAuthorizer{authorize: func(_ context.Context, token string) (identity.Principal, error) {
		switch token {
		case "good":
			return identity.Principal{UserID: "user-1", SessionID: "s1"}, nil
		case "down":
			return identity.Principal{}, errors.New("connection refused")
		default:
			return identity.Principal{}, domain.ErrUnauthorized
		}
	}}
}

// principalHandler echoes the user id found in the context.
var principalHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	p, ok := identity.PrincipalFromContext(r.Context())
	if !ok {
		w.WriteHeader(http.StatusTeapot)
		return
	}
	_, _ = w.Write([]byte(p.UserID))
})

func TestRequireSession_Cookie(t *testing.T) {
	h := middleware.RequireSession(tokenAuthorizer(), slog.Default())(principalHandler)

	req := httptest.NewRequest(http.MethodGet, "/trips", nil)
	req.AddCookie(&http.Cookie{Name: middleware.SessionCookie, Value: "good"})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "user-1", rec.Body.String())
}

func TestRequireSession_BearerHeader(t *testing.T) {
	h := middleware.RequireSession(tokenAuthorizer(), slog.Default())(principalHandler)

	req := httptest.NewRequest(http.MethodGet, "/trips", nil)
	req.Header.Set("Authorization", "Bearer good")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequireSession_Unauthorized_ClearsCookie(t *testing.T) {
	h := middleware.RequireSession(tokenAuthorizer(), slog.Default())(principalHandler)

	req := httptest.NewRequest(http.MethodGet, "/trips", nil)
	req.AddCookie(&http.Cookie{Name: middleware.SessionCookie, Value: "revoked"})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
	var body struct {
		Error struct{ Code string } `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "unauthorized", body.Error.Code)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, middleware.SessionCookie, cookies[0].Name)
	assert.Negative(t, cookies[0].MaxAge)
}

func TestRequireSession_NoToken(t *testing.T) {
	h := middleware.RequireSession(tokenAuthorizer(), slog.Default())(principalHandler)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/trips", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireSession_StoreDownWithholdsContent(t *testing.T) {
	h := middleware.RequireSession(tokenAuthorizer(), slog.Default())(principalHandler)

	req := httptest.NewRequest(http.MethodGet, "/trips", nil)
	req.AddCookie(&http.Cookie{Name: middleware.SessionCookie, Value: "down"})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.NotContains(t, rec.Body.String(), "user-1")
}
