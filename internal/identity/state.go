package identity

import (
	"context"
	"encoding/json"

	"github.com/cychmps426211/travelplan/internal/domain"
)

// Phase is the stage of session restoration.
type Phase string

const (
	PhaseLoading  Phase = "loading"
	PhaseResolved Phase = "resolved"
)

// SessionState is the two-phase session value. While Loading, consumers
// must not render anything gated; once Resolved, User is either the signed
// in profile or nil.
type SessionState struct {
	Phase Phase
	User  *domain.UserProfile
}

// Loading is the state before restoration has finished.
func Loading() SessionState {
	return SessionState{Phase: PhaseLoading}
}

// Resolved is the state after restoration; u is nil when signed out.
func Resolved(u *domain.UserProfile) SessionState {
	return SessionState{Phase: PhaseResolved, User: u}
}

// SignedIn reports whether the state is resolved to a user.
func (s SessionState) SignedIn() bool {
	return s.Phase == PhaseResolved && s.User != nil
}

type profileJSON struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
	AvatarURL   string `json:"avatarUrl,omitempty"`
	Email       string `json:"email"`
}

// MarshalJSON renders {"phase":"loading"} or {"phase":"resolved","user":...}
// with user null when signed out.
func (s SessionState) MarshalJSON() ([]byte, error) {
	if s.Phase != PhaseResolved {
		return json.Marshal(struct {
			Phase Phase `json:"phase"`
		}{PhaseLoading})
	}
	var u *profileJSON
	if s.User != nil {
		u = &profileJSON{
			ID:          s.User.ID,
			DisplayName: s.User.DisplayName,
			AvatarURL:   s.User.AvatarURL,
			Email:       s.User.Email,
		}
	}
	return json.Marshal(struct {
		Phase Phase        `json:"phase"`
		User  *profileJSON `json:"user"`
	}{s.Phase, u})
}

// Principal is the authenticated caller attached to a request context.
type Principal struct {
	UserID    string
	Email     string
	SessionID string
}

type contextKey string

const principalKey contextKey = "principal"

// WithPrincipal returns a copy of ctx carrying p.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

// PrincipalFromContext returns the caller attached by the session
// middleware, or false for anonymous requests.
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey).(Principal)
	return p, ok && p.UserID != ""
}
