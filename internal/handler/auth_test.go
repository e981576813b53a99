package handler_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cychmps426211/travelplan/internal/domain"
	"github.com/cychmps426211/travelplan/internal/handler"
	"github.com/cychmps426211/travelplan/internal/identity"
	"github.com/cychmps426211/travelplan/internal/middleware"
)

type mockOAuth struct {
	exchange func(ctx context.Context, code string) (domain.Identity, error)
}

func (m *mockOAuth) AuthURL(state string) string {
	return "https://accounts.example.com/auth?state=" + state
}
func (m *mockOAuth) Exchange(ctx context.Context, code string) (domain.Identity, error) {
	return m.exchange(ctx, code)
}

var _ handler.OAuthProvider = (*mockOAuth)(nil)

type mockVerifier struct {
	verify func(ctx context.Context, idToken string) (domain.Identity, error)
}

func (m *mockVerifier) Verify(ctx context.Context, idToken string) (domain.Identity, error) {
	return m.verify(ctx, idToken)
}

var _ handler.IDTokenVerifier = (*mockVerifier)(nil)

var alice = domain.Identity{SubjectID: "uid-alice", Email: "alice@example.com", DisplayName: "Alice"}

func signedIn() identity.SignedIn {
	return identity.SignedIn{
		Token:   "tok-123",
		Session: domain.Session{ID: "s1", UserID: alice.SubjectID, ExpiresAt: time.Now().Add(time.Hour)},
		Profile: alice.Profile(time.Now()),
	}
}

func cookieNamed(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// ---- Google OAuth ----------------------------------------------------------

func TestGoogleLogin_redirectsWithState(t *testing.T) {
	h := newHTTPHandler(handler.Deps{Google: &mockOAuth{}})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/auth/google/login", nil))

	require.Equal(t, http.StatusFound, rec.Code)
	state := cookieNamed(rec, "oauth_state")
	require.NotNil(t, state)
	assert.True(t, state.HttpOnly)
	assert.Equal(t, "https://accounts.example.com/auth?state="+state.Value, rec.Header().Get("Location"))
}

func TestGoogleLogin_501_WhenNotConfigured(t *testing.T) {
	rec := httptest.NewRecorder()
	newHTTPHandler(handler.Deps{}).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/auth/google/login", nil))

	assert.Equal(t, http.StatusNotImplemented, rec.Code)
}

func callbackRequest(state, cookieState string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/auth/google/callback?code=abc&state="+url.QueryEscape(state), nil)
	req.AddCookie(&http.Cookie{Name: "oauth_state", Value: cookieState})
	return req
}

func TestGoogleCallback_signsIn(t *testing.T) {
	gate := &mockGate{
		authenticate: func(_ context.Context, id domain.Identity) (identity.SignedIn, error) {
			require.Equal(t, alice, id)
			return signedIn(), nil
		},
	}
	google := &mockOAuth{
		exchange: func(_ context.Context, code string) (domain.Identity, error) {
			require.Equal(t, "abc", code)
			return alice, nil
		},
	}
	h := newHTTPHandler(handler.Deps{Gate: gate, Google: google, FrontendURL: "http://localhost:5173"})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, callbackRequest("st", "st"))

	require.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "http://localhost:5173", rec.Header().Get("Location"))
	session := cookieNamed(rec, middleware.SessionCookie)
	require.NotNil(t, session)
	assert.Equal(t, "tok-123", session.Value)
	assert.True(t, session.HttpOnly)
}

func TestGoogleCallback_stateMismatch(t *testing.T) {
	h := newHTTPHandler(handler.Deps{Google: &mockOAuth{}, FrontendURL: "http://localhost:5173"})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, callbackRequest("forged", "st"))

	require.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "http://localhost:5173?auth_error=state_mismatch", rec.Header().Get("Location"))
	assert.Nil(t, cookieNamed(rec, middleware.SessionCookie))
}

func TestGoogleCallback_notAllowed(t *testing.T) {
	gate := &mockGate{
		authenticate: func(_ context.Context, _ domain.Identity) (identity.SignedIn, error) {
			return identity.SignedIn{}, fmt.Errorf("identity.Gate.Authenticate: %w: email not allowed", domain.ErrUnauthorized)
		},
	}
	google := &mockOAuth{
		exchange: func(_ context.Context, _ string) (domain.Identity, error) { return alice, nil },
	}
	h := newHTTPHandler(handler.Deps{Gate: gate, Google: google, FrontendURL: "http://localhost:5173/"})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, callbackRequest("st", "st"))

	require.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "http://localhost:5173/?auth_error=not_allowed", rec.Header().Get("Location"))
	assert.Nil(t, cookieNamed(rec, middleware.SessionCookie))
}

// ---- Firebase ID token -----------------------------------------------------

func TestFirebaseSignIn_200(t *testing.T) {
	gate := &mockGate{
		authenticate: func(_ context.Context, _ domain.Identity) (identity.SignedIn, error) { return signedIn(), nil },
	}
	verifier := &mockVerifier{
		verify: func(_ context.Context, idToken string) (domain.Identity, error) {
			require.Equal(t, "firebase-id-token", idToken)
			return alice, nil
		},
	}
	h := newHTTPHandler(handler.Deps{Gate: gate, Firebase: verifier})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/auth/firebase", strings.NewReader(`{"idToken":"firebase-id-token"}`)))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Token   string `json:"token"`
		Session struct {
			Phase string `json:"phase"`
			User  struct {
				ID    string `json:"id"`
				Email string `json:"email"`
			} `json:"user"`
		} `json:"session"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "tok-123", resp.Token)
	assert.Equal(t, "resolved", resp.Session.Phase)
	assert.Equal(t, alice.SubjectID, resp.Session.User.ID)
	assert.NotNil(t, cookieNamed(rec, middleware.SessionCookie))
}

func TestFirebaseSignIn_401_NotAllowed(t *testing.T) {
	gate := &mockGate{
		authenticate: func(_ context.Context, _ domain.Identity) (identity.SignedIn, error) {
			return identity.SignedIn{}, fmt.Errorf("%w: email not allowed", domain.ErrUnauthorized)
		},
	}
	verifier := &mockVerifier{
		verify: func(_ context.Context, _ string) (domain.Identity, error) { return alice, nil },
	}
	h := newHTTPHandler(handler.Deps{Gate: gate, Firebase: verifier})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/auth/firebase", strings.NewReader(`{"idToken":"x"}`)))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Nil(t, cookieNamed(rec, middleware.SessionCookie))
}

func TestFirebaseSignIn_422_MissingToken(t *testing.T) {
	h := newHTTPHandler(handler.Deps{Firebase: &mockVerifier{}})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/auth/firebase", strings.NewReader(`{}`)))

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

// ---- GET /auth/session -----------------------------------------------------

func sessionRequest(token string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/auth/session", nil)
	if token != "" {
		req.AddCookie(&http.Cookie{Name: middleware.SessionCookie, Value: token})
	}
	return req
}

func TestGetSession_signedIn(t *testing.T) {
	profile := alice.Profile(time.Now())
	gate := &mockGate{
		currentSession: func(_ context.Context, token string) (identity.SessionState, error) {
			require.Equal(t, "tok-123", token)
			return identity.Resolved(&profile), nil
		},
	}

	rec := httptest.NewRecorder()
	newHTTPHandler(handler.Deps{Gate: gate}).ServeHTTP(rec, sessionRequest("tok-123"))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"phase":"resolved"`)
	assert.Contains(t, rec.Body.String(), `"email":"alice@example.com"`)
}

func TestGetSession_invalidTokenClearsCookie(t *testing.T) {
	gate := &mockGate{
		currentSession: func(_ context.Context, _ string) (identity.SessionState, error) {
			return identity.Resolved(nil), fmt.Errorf("%w: session expired", domain.ErrUnauthorized)
		},
	}

	rec := httptest.NewRecorder()
	newHTTPHandler(handler.Deps{Gate: gate}).ServeHTTP(rec, sessionRequest("stale"))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"phase":"resolved","user":null}`, rec.Body.String())
	cleared := cookieNamed(rec, middleware.SessionCookie)
	require.NotNil(t, cleared)
	assert.Negative(t, cleared.MaxAge)
}

func TestGetSession_storeDownStaysLoading(t *testing.T) {
	gate := &mockGate{
		currentSession: func(_ context.Context, _ string) (identity.SessionState, error) {
			return identity.Loading(), errors.New("dial tcp: connection refused")
		},
	}

	rec := httptest.NewRecorder()
	newHTTPHandler(handler.Deps{Gate: gate}).ServeHTTP(rec, sessionRequest("tok-123"))

	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.JSONEq(t, `{"phase":"loading"}`, rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
	assert.Nil(t, cookieNamed(rec, middleware.SessionCookie), "a store outage must not sign the user out")
}

// ---- POST /auth/logout -----------------------------------------------------

func TestLogout_204(t *testing.T) {
	var ended string
	gate := &mockGate{
		endSession: func(_ context.Context, token string) error {
			ended = token
			return nil
		},
	}

	req := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	req.AddCookie(&http.Cookie{Name: middleware.SessionCookie, Value: "tok-123"})
	rec := httptest.NewRecorder()
	newHTTPHandler(handler.Deps{Gate: gate}).ServeHTTP(rec, req)

	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "tok-123", ended)
	cleared := cookieNamed(rec, middleware.SessionCookie)
	require.NotNil(t, cleared)
	assert.Negative(t, cleared.MaxAge)
}

func TestLogout_withoutSession(t *testing.T) {
	rec := httptest.NewRecorder()
	newHTTPHandler(handler.Deps{Gate: &mockGate{}}).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/auth/logout", nil))

	assert.Equal(t, http.StatusNoContent, rec.Code)
}
