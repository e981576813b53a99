package identity

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/cychmps426211/travelplan/internal/domain"
)

const tokenIssuer = "travelplan"

// TokenService signs and verifies the session cookie token. The token only
// names a session; revocation happens by deleting the session record.
type TokenService struct {
	secret []byte
	now    func() time.Time
}

// NewTokenService creates a TokenService. The secret must be at least 32
// bytes.
func NewTokenService(secret string) (*TokenService, error) {
	if len(secret) < 32 {
		return nil, errors.New("identity: session secret must be at least 32 characters")
	}
	return &TokenService{secret: []byte(secret), now: time.Now}, nil
}

type claims struct {
	jwt.RegisteredClaims
}

// TokenClaims is what a verified token names.
type TokenClaims struct {
	SessionID string
	UserID    string
}

// Issue signs a token for s that expires with the session.
func (t *TokenService) Issue(s domain.Session) (string, error) {
	c := claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        s.ID,
			Subject:   s.UserID,
			Issuer:    tokenIssuer,
			IssuedAt:  jwt.NewNumericDate(s.CreatedAt),
			ExpiresAt: jwt.NewNumericDate(s.ExpiresAt),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("identity.TokenService.Issue: %w", err)
	}
	return signed, nil
}

// Verify checks the signature, issuer and expiry. Every failure is
// reported as domain.ErrUnauthorized.
func (t *TokenService) Verify(token string) (TokenClaims, error) {
	parsed, err := jwt.ParseWithClaims(token, &claims{},
		func(*jwt.Token) (any, error) { return t.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(t.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return TokenClaims{}, fmt.Errorf("%w: session token expired", domain.ErrUnauthorized)
		}
		return TokenClaims{}, fmt.Errorf("%w: invalid session token: %w", domain.ErrUnauthorized, err)
	}
	c, ok := parsed.Claims.(*claims)
	if !ok || c.ID == "" || c.Subject == "" {
		return TokenClaims{}, fmt.Errorf("%w: session token missing claims", domain.ErrUnauthorized)
	}
	return TokenClaims{SessionID: c.ID, UserID: c.Subject}, nil
}

// sessionIDUnverified extracts the session id from a token whose signature
// is valid but which may have expired, so sign-out can still delete it.
func (t *TokenService) sessionIDUnverified(token string) (string, bool) {
	var c claims
	_, err := jwt.ParseWithClaims(token, &c,
		func(*jwt.Token) (any, error) { return t.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithoutClaimsValidation(),
	)
	if err != nil || c.ID == "" {
		return "", false
	}
	return c.ID, true
}
