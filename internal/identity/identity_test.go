package identity

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"firebase.google.com/go/v4/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/cychmps426211/travelplan/internal/domain"
)

// ---- AllowList -------------------------------------------------------------

func TestAllowList(t *testing.T) {
	l := NewAllowList(" Alice@Example.com ", "bob@example.com", "")

	assert.Equal(t, 2, l.Len())
	assert.True(t, l.Allows("alice@example.com"))
	assert.True(t, l.Allows("BOB@example.com"))
	assert.False(t, l.Allows("carol@example.com"))
	assert.False(t, l.Allows(""), "accounts without an email are rejected")
	assert.False(t, NewAllowList().Allows("alice@example.com"), "an empty list admits nobody")
}

// ---- TokenService ----------------------------------------------------------

func TestNewTokenService_ShortSecret(t *testing.T) {
	_, err := NewTokenService("short")
	assert.Error(t, err)
}

func TestTokenService_IssueVerify(t *testing.T) {
	ts, err := NewTokenService(testSecret)
	require.NoError(t, err)
	ts.now = func() time.Time { return loginTime.Add(30 * time.Minute) }

	tok, err := ts.Issue(domain.Session{ID: "s1", UserID: "u1", CreatedAt: loginTime, ExpiresAt: loginTime.Add(time.Hour)})
	require.NoError(t, err)

	got, err := ts.Verify(tok)
	require.NoError(t, err)
	assert.Equal(t, TokenClaims{SessionID: "s1", UserID: "u1"}, got)
}

func TestTokenService_Expired(t *testing.T) {
	ts, err := NewTokenService(testSecret)
	require.NoError(t, err)
	ts.now = func() time.Time { return loginTime.Add(2 * time.Hour) }

	tok, err := ts.Issue(domain.Session{ID: "s1", UserID: "u1", CreatedAt: loginTime, ExpiresAt: loginTime.Add(time.Hour)})
	require.NoError(t, err)

	_, err = ts.Verify(tok)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	id, ok := ts.sessionIDUnverified(tok)
	assert.True(t, ok, "sign-out still recognises an expired token")
	assert.Equal(t, "s1", id)
}

func TestTokenService_Tampered(t *testing.T) {
	ts, err := NewTokenService(testSecret)
	require.NoError(t, err)
	ts.now = func() time.Time { return loginTime }

	tok, err := ts.Issue(domain.Session{ID: "s1", UserID: "u1", CreatedAt: loginTime, ExpiresAt: loginTime.Add(time.Hour)})
	require.NoError(t, err)

	_, err = ts.Verify(tok + "x")
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
	_, err = ts.Verify("")
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

// ---- SessionState ----------------------------------------------------------

func TestSessionState_JSON(t *testing.T) {
	tests := []struct {
		name  string
		state SessionState
		want  string
	}{
		{"loading", Loading(), `{"phase":"loading"}`},
		{"signed out", Resolved(nil), `{"phase":"resolved","user":null}`},
		{"signed in", Resolved(&domain.UserProfile{ID: "u1", DisplayName: "Alice", Email: "a@example.com"}),
			`{"phase":"resolved","user":{"id":"u1","displayName":"Alice","email":"a@example.com"}}`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			b, err := json.Marshal(tc.state)
			require.NoError(t, err)
			assert.JSONEq(t, tc.want, string(b))
		})
	}
}

func TestPrincipalContext(t *testing.T) {
	_, ok := PrincipalFromContext(context.Background())
	assert.False(t, ok)

	ctx := WithPrincipal(context.Background(), Principal{UserID: "u1"})
	p, ok := PrincipalFromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, "u1", p.UserID)
}

// ---- GoogleProvider --------------------------------------------------------

func newGoogleTestServer(t *testing.T, info googleUserInfo) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		if r.Form.Get("code") != "good-code" {
			http.Error(w, `{"error":"invalid_grant"}`, http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"at-1","token_type":"Bearer","expires_in":3600}`))
	})
	mux.HandleFunc("/userinfo", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer at-1" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(info)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestGoogleProvider(srv *httptest.Server) *GoogleProvider {
	p := NewGoogleProvider("client", "secret", "http://localhost/auth/google/callback")
	p.config.Endpoint = oauth2.Endpoint{AuthURL: srv.URL + "/auth", TokenURL: srv.URL + "/token"}
	p.userInfoURL = srv.URL + "/userinfo"
	return p
}

func TestGoogleProvider_AuthURL(t *testing.T) {
	p := NewGoogleProvider("client", "secret", "http://localhost/cb")
	u := p.AuthURL("state-123")
	assert.Contains(t, u, "state=state-123")
	assert.Contains(t, u, "client_id=client")
}

func TestGoogleProvider_Exchange(t *testing.T) {
	srv := newGoogleTestServer(t, googleUserInfo{
		Sub: "g-1", Email: "alice@example.com", EmailVerified: true, Name: "Alice", Picture: "https://example.com/a.png",
	})

	id, err := newTestGoogleProvider(srv).Exchange(context.Background(), "good-code")

	require.NoError(t, err)
	assert.Equal(t, domain.Identity{
		SubjectID: "g-1", Email: "alice@example.com", DisplayName: "Alice", AvatarURL: "https://example.com/a.png",
	}, id)
}

func TestGoogleProvider_UnverifiedEmailIsDropped(t *testing.T) {
	srv := newGoogleTestServer(t, googleUserInfo{Sub: "g-1", Email: "alice@example.com"})

	id, err := newTestGoogleProvider(srv).Exchange(context.Background(), "good-code")

	require.NoError(t, err)
	assert.Empty(t, id.Email)
}

func TestGoogleProvider_BadCode(t *testing.T) {
	srv := newGoogleTestServer(t, googleUserInfo{Sub: "g-1"})

	_, err := newTestGoogleProvider(srv).Exchange(context.Background(), "bad-code")

	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

// ---- FirebaseVerifier ------------------------------------------------------

type mockIDTokenVerifier struct {
	verifyIDToken func(ctx context.Context, idToken string) (*auth.Token, error)
}

func (m *mockIDTokenVerifier) VerifyIDToken(ctx context.Context, idToken string) (*auth.Token, error) {
	return m.verifyIDToken(ctx, idToken)
}

var _ idTokenVerifier = (*mockIDTokenVerifier)(nil)

func TestFirebaseVerifier_Verify(t *testing.T) {
	v := &FirebaseVerifier{timeout: time.Second, client: &mockIDTokenVerifier{
		verifyIDToken: func(_ context.Context, idToken string) (*auth.Token, error) {
			if idToken != "id-token" {
				return nil, errors.New("bad token")
			}
			return &auth.Token{UID: "fb-1", Claims: map[string]any{
				"email":   "alice@example.com",
				"name":    "Alice",
				"picture": "https://example.com/a.png",
			}}, nil
		},
	}}

	id, err := v.Verify(context.Background(), "id-token")
	require.NoError(t, err)
	assert.Equal(t, "fb-1", id.SubjectID)
	assert.Equal(t, "alice@example.com", id.Email)
	assert.Equal(t, "Alice", id.DisplayName)

	_, err = v.Verify(context.Background(), "forged")
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	_, err = v.Verify(context.Background(), "")
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}
