package handler

import (
	"errors"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/xid"

	"github.com/cychmps426211/travelplan/internal/domain"
	"github.com/cychmps426211/travelplan/internal/identity"
	"github.com/cychmps426211/travelplan/internal/middleware"
)

// oauthStateCookie carries the CSRF state across the Google redirect.
const oauthStateCookie = "oauth_state"

// FirebaseSignInRequest is the body of POST /auth/firebase.
type FirebaseSignInRequest struct {
	IDToken string `json:"idToken"`
}

// SignInResponse is returned by POST /auth/firebase. The token is also set
// as the session cookie; clients without cookies send it as a Bearer token.
type SignInResponse struct {
	Token     string                `json:"token"`
	ExpiresAt time.Time             `json:"expiresAt"`
	Session   identity.SessionState `json:"session"`
}

// GoogleLogin handles GET /auth/google/login by redirecting to the consent
// screen.
func (s *Server) GoogleLogin(w http.ResponseWriter, r *http.Request) {
	if s.Google == nil {
		notImplemented(w, "google sign-in")
		return
	}
	state := xid.New().String()
	http.SetCookie(w, &http.Cookie{
		Name:     oauthStateCookie,
		Value:    state,
		Path:     "/auth",
		MaxAge:   600,
		HttpOnly: true,
		Secure:   s.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, s.Google.AuthURL(state), http.StatusFound)
}

// GoogleCallback handles GET /auth/google/callback. Success and failure both
// redirect back to the frontend; failures carry ?auth_error=.
func (s *Server) GoogleCallback(w http.ResponseWriter, r *http.Request) {
	if s.Google == nil {
		notImplemented(w, "google sign-in")
		return
	}
	http.SetCookie(w, &http.Cookie{Name: oauthStateCookie, Path: "/auth", MaxAge: -1})

	q := r.URL.Query()
	c, err := r.Cookie(oauthStateCookie)
	if err != nil || c.Value == "" || c.Value != q.Get("state") {
		s.Logger.WarnContext(r.Context(), "oauth state mismatch")
		s.redirectAuthError(w, r, "state_mismatch")
		return
	}
	if e := q.Get("error"); e != "" {
		s.redirectAuthError(w, r, e)
		return
	}

	id, err := s.Google.Exchange(r.Context(), q.Get("code"))
	if err != nil {
		s.Logger.WarnContext(r.Context(), "google exchange failed", "error", err)
		s.redirectAuthError(w, r, "exchange_failed")
		return
	}
	signed, err := s.Gate.Authenticate(writeContext(r), id)
	switch {
	case errors.Is(err, domain.ErrUnauthorized):
		s.redirectAuthError(w, r, "not_allowed")
		return
	case err != nil:
		s.Logger.ErrorContext(r.Context(), "sign-in failed", "error", err)
		s.redirectAuthError(w, r, "sign_in_failed")
		return
	}

	s.setSessionCookie(w, signed)
	http.Redirect(w, r, s.FrontendURL, http.StatusFound)
}

// FirebaseSignIn handles POST /auth/firebase for clients that sign in with
// the Firebase SDK and hand over the resulting ID token.
func (s *Server) FirebaseSignIn(w http.ResponseWriter, r *http.Request) {
	if s.Firebase == nil {
		notImplemented(w, "firebase sign-in")
		return
	}
	var body FirebaseSignInRequest
	if !decode(w, r, &body) {
		return
	}
	if body.IDToken == "" {
		writeErrorBody(w, http.StatusUnprocessableEntity, "validation_error", "idToken is required")
		return
	}

	id, err := s.Firebase.Verify(r.Context(), body.IDToken)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	signed, err := s.Gate.Authenticate(writeContext(r), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	s.setSessionCookie(w, signed)
	profile := signed.Profile
	writeJSON(w, http.StatusOK, SignInResponse{
		Token:     signed.Token,
		ExpiresAt: signed.Session.ExpiresAt,
		Session:   identity.Resolved(&profile),
	})
}

// GetSession handles GET /auth/session. It reports {"phase":"loading"}
// with Retry-After while the session store is unreachable, and otherwise
// the resolved user or null.
func (s *Server) GetSession(w http.ResponseWriter, r *http.Request) {
	state, err := s.Gate.CurrentSession(r.Context(), middleware.SessionToken(r))
	if err != nil {
		if !errors.Is(err, domain.ErrUnauthorized) {
			s.Logger.WarnContext(r.Context(), "session restore failed", "error", err)
			w.Header().Set("Retry-After", "2")
			writeJSON(w, http.StatusServiceUnavailable, state)
			return
		}
		middleware.ClearSessionCookie(w)
	}
	writeJSON(w, http.StatusOK, state)
}

// Logout handles POST /auth/logout.
func (s *Server) Logout(w http.ResponseWriter, r *http.Request) {
	if token := middleware.SessionToken(r); token != "" {
		if err := s.Gate.EndSession(writeContext(r), token); err != nil && !errors.Is(err, domain.ErrUnauthorized) {
			s.fail(w, r, err)
			return
		}
	}
	middleware.ClearSessionCookie(w)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) setSessionCookie(w http.ResponseWriter, signed identity.SignedIn) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookie,
		Value:    signed.Token,
		Path:     "/",
		Expires:  signed.Session.ExpiresAt,
		HttpOnly: true,
		Secure:   s.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *Server) redirectAuthError(w http.ResponseWriter, r *http.Request, reason string) {
	target := s.FrontendURL
	if u, err := url.Parse(target); err == nil {
		q := u.Query()
		q.Set("auth_error", reason)
		u.RawQuery = q.Encode()
		target = u.String()
	}
	http.Redirect(w, r, target, http.StatusFound)
}
