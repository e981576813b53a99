package identity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cychmps426211/travelplan/internal/domain"
	"github.com/cychmps426211/travelplan/internal/repo"
)

const defaultSessionTTL = 7 * 24 * time.Hour

// Gate is the only way in. It is safe for concurrent use.
type Gate struct {
	allow    AllowList
	users    repo.UserRepo
	sessions repo.SessionRepo
	tokens   *TokenService
	ttl      time.Duration
	logger   *slog.Logger
	now      func() time.Time
}

// NewGate wires a Gate. A non-positive ttl falls back to seven days.
func NewGate(allow AllowList, users repo.UserRepo, sessions repo.SessionRepo, tokens *TokenService, ttl time.Duration, logger *slog.Logger) *Gate {
	if ttl <= 0 {
		ttl = defaultSessionTTL
	}
	return &Gate{
		allow:    allow,
		users:    users,
		sessions: sessions,
		tokens:   tokens,
		ttl:      ttl,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// SignedIn is the result of a successful authentication.
type SignedIn struct {
	Token   string
	Session domain.Session
	Profile domain.UserProfile
}

// Authenticate admits an identity proven by a provider. A disallowed email
// yields domain.ErrUnauthorized and no session; otherwise the profile is
// upserted and a new session issued.
func (g *Gate) Authenticate(ctx context.Context, id domain.Identity) (SignedIn, error) {
	if !g.allow.Allows(id.Email) {
		g.logger.WarnContext(ctx, "sign-in rejected by allow-list", "email", id.Email, "subject", id.SubjectID)
		return SignedIn{}, fmt.Errorf("identity.Gate.Authenticate: %w: email not allowed", domain.ErrUnauthorized)
	}

	now := g.now()
	profile, err := g.upsertProfile(ctx, id, now)
	if err != nil {
		return SignedIn{}, fmt.Errorf("identity.Gate.Authenticate: %w", err)
	}

	session, err := g.sessions.Create(ctx, domain.Session{
		UserID:    id.SubjectID,
		Email:     id.Email,
		CreatedAt: now,
		ExpiresAt: now.Add(g.ttl),
	})
	if err != nil {
		return SignedIn{}, fmt.Errorf("identity.Gate.Authenticate: create session: %w: %w", domain.ErrWrite, err)
	}

	token, err := g.tokens.Issue(session)
	if err != nil {
		return SignedIn{}, fmt.Errorf("identity.Gate.Authenticate: %w", err)
	}
	return SignedIn{Token: token, Session: session, Profile: profile}, nil
}

// upsertProfile writes the full profile on first sign-in and only the
// last-login timestamp afterwards.
func (g *Gate) upsertProfile(ctx context.Context, id domain.Identity, now time.Time) (domain.UserProfile, error) {
	existing, err := g.users.GetByID(ctx, id.SubjectID)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		p := id.Profile(now)
		if err := g.users.Create(ctx, p); err != nil {
			return domain.UserProfile{}, fmt.Errorf("create profile: %w: %w", domain.ErrWrite, err)
		}
		return p, nil
	case err != nil:
		return domain.UserProfile{}, fmt.Errorf("load profile: %w", err)
	}

	if err := g.users.TouchLastLogin(ctx, id.SubjectID, now); err != nil {
		return domain.UserProfile{}, fmt.Errorf("touch last login: %w: %w", domain.ErrWrite, err)
	}
	existing.LastLogin = now
	return existing, nil
}

// CurrentSession restores the session named by token. A missing token
// resolves to signed out. An invalid, expired, revoked or no-longer-allowed
// session resolves to signed out with domain.ErrUnauthorized so the caller
// clears its cookie. A store failure leaves the state Loading.
func (g *Gate) CurrentSession(ctx context.Context, token string) (SessionState, error) {
	if token == "" {
		return Resolved(nil), nil
	}
	session, err := g.restore(ctx, token)
	if err != nil {
		if errors.Is(err, domain.ErrUnauthorized) {
			return Resolved(nil), fmt.Errorf("identity.Gate.CurrentSession: %w", err)
		}
		return Loading(), fmt.Errorf("identity.Gate.CurrentSession: %w", err)
	}

	profile, err := g.users.GetByID(ctx, session.UserID)
	if errors.Is(err, domain.ErrNotFound) {
		g.terminate(ctx, session, "profile missing")
		return Resolved(nil), fmt.Errorf("identity.Gate.CurrentSession: %w: profile missing", domain.ErrUnauthorized)
	}
	if err != nil {
		return Loading(), fmt.Errorf("identity.Gate.CurrentSession: %w", err)
	}
	return Resolved(&profile), nil
}

// Authorize is CurrentSession for request middleware: it returns the
// caller without loading the profile.
func (g *Gate) Authorize(ctx context.Context, token string) (Principal, error) {
	if token == "" {
		return Principal{}, fmt.Errorf("identity.Gate.Authorize: %w: no session", domain.ErrUnauthorized)
	}
	session, err := g.restore(ctx, token)
	if err != nil {
		return Principal{}, fmt.Errorf("identity.Gate.Authorize: %w", err)
	}
	return Principal{UserID: session.UserID, Email: session.Email, SessionID: session.ID}, nil
}

// restore verifies the token, loads its session and re-checks the
// allow-list, terminating sessions that no longer qualify.
func (g *Gate) restore(ctx context.Context, token string) (domain.Session, error) {
	claims, err := g.tokens.Verify(token)
	if err != nil {
		return domain.Session{}, err
	}

	session, err := g.sessions.GetByID(ctx, claims.SessionID)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.Session{}, fmt.Errorf("%w: session revoked", domain.ErrUnauthorized)
	}
	if err != nil {
		return domain.Session{}, fmt.Errorf("load session: %w", err)
	}
	if session.UserID != claims.UserID {
		return domain.Session{}, fmt.Errorf("%w: session subject mismatch", domain.ErrUnauthorized)
	}

	if session.Expired(g.now()) {
		g.terminate(ctx, session, "expired")
		return domain.Session{}, fmt.Errorf("%w: session expired", domain.ErrUnauthorized)
	}
	if !g.allow.Allows(session.Email) {
		g.terminate(ctx, session, "email no longer allowed")
		return domain.Session{}, fmt.Errorf("%w: email not allowed", domain.ErrUnauthorized)
	}
	return session, nil
}

// terminate deletes a session record. Failures are logged only: the
// caller is already being signed out.
func (g *Gate) terminate(ctx context.Context, s domain.Session, reason string) {
	g.logger.InfoContext(ctx, "terminating session", "session_id", s.ID, "user_id", s.UserID, "reason", reason)
	if err := g.sessions.Delete(context.WithoutCancel(ctx), s.ID); err != nil {
		g.logger.ErrorContext(ctx, "delete session", "session_id", s.ID, "error", err)
	}
}

// EndSession signs out. Tokens that are malformed or name an unknown
// session are ignored so sign-out always succeeds from the caller's view.
func (g *Gate) EndSession(ctx context.Context, token string) error {
	id, ok := g.tokens.sessionIDUnverified(token)
	if !ok {
		return nil
	}
	if err := g.sessions.Delete(ctx, id); err != nil {
		return fmt.Errorf("identity.Gate.EndSession: %w", err)
	}
	return nil
}
