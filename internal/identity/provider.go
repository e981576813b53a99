package identity

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"

	"github.com/cychmps426211/travelplan/internal/domain"
)

// ---- Google OAuth ----

const googleUserInfoURL = "https://openidconnect.googleapis.com/v1/userinfo"

// GoogleProvider runs the authorization code flow against Google and reads
// the OpenID userinfo of the signed-in account.
type GoogleProvider struct {
	config      *oauth2.Config
	userInfoURL string
}

// NewGoogleProvider creates a provider for the given OAuth client.
func NewGoogleProvider(clientID, clientSecret, redirectURL string) *GoogleProvider {
	return &GoogleProvider{
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Scopes:       []string{"openid", "email", "profile"},
			Endpoint:     google.Endpoint,
		},
		userInfoURL: googleUserInfoURL,
	}
}

// AuthURL is where the browser is sent to sign in. state round-trips
// through Google and is checked against the state cookie on callback.
func (p *GoogleProvider) AuthURL(state string) string {
	return p.config.AuthCodeURL(state, oauth2.AccessTypeOnline)
}

type googleUserInfo struct {
	Sub           string `json:"sub"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
}

// Exchange trades the callback code for the account's identity. An
// unverified email is returned without its address so the allow-list
// rejects it.
func (p *GoogleProvider) Exchange(ctx context.Context, code string) (domain.Identity, error) {
	tok, err := p.config.Exchange(ctx, code)
	if err != nil {
		return domain.Identity{}, fmt.Errorf("identity.GoogleProvider.Exchange: %w: %w", domain.ErrUnauthorized, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.userInfoURL, nil)
	if err != nil {
		return domain.Identity{}, fmt.Errorf("identity.GoogleProvider.Exchange: %w", err)
	}
	resp, err := p.config.Client(ctx, tok).Do(req)
	if err != nil {
		return domain.Identity{}, fmt.Errorf("identity.GoogleProvider.Exchange: userinfo: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return domain.Identity{}, fmt.Errorf("identity.GoogleProvider.Exchange: userinfo returned status %d", resp.StatusCode)
	}

	var info googleUserInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return domain.Identity{}, fmt.Errorf("identity.GoogleProvider.Exchange: decode userinfo: %w", err)
	}
	if info.Sub == "" {
		return domain.Identity{}, fmt.Errorf("identity.GoogleProvider.Exchange: %w: userinfo has no subject", domain.ErrUnauthorized)
	}
	id := domain.Identity{
		SubjectID:   info.Sub,
		DisplayName: info.Name,
		AvatarURL:   info.Picture,
	}
	if info.EmailVerified {
		id.Email = info.Email
	}
	return id, nil
}

// ---- Firebase ID tokens ----

// NewFirebaseApp initialises the Firebase Admin SDK. credentialsJSON may be
// empty, in which case application default credentials are used.
func NewFirebaseApp(ctx context.Context, projectID, credentialsJSON string) (*firebase.App, error) {
	var opts []option.ClientOption
	if credentialsJSON != "" {
		opts = append(opts, option.WithCredentialsJSON([]byte(credentialsJSON)))
	}
	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: projectID}, opts...)
	if err != nil {
		return nil, fmt.Errorf("identity.NewFirebaseApp: %w", err)
	}
	return app, nil
}

// idTokenVerifier is the part of *auth.Client the verifier uses.
type idTokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*auth.Token, error)
}

// FirebaseVerifier accepts ID tokens minted by Firebase Authentication on
// the client, for clients that sign in with the Firebase SDK.
type FirebaseVerifier struct {
	client  idTokenVerifier
	timeout time.Duration
}

// NewFirebaseVerifier builds a verifier on app's Auth client.
func NewFirebaseVerifier(ctx context.Context, app *firebase.App) (*FirebaseVerifier, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	client, err := app.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("identity.NewFirebaseVerifier: %w", err)
	}
	return &FirebaseVerifier{client: client, timeout: 5 * time.Second}, nil
}

// Verify checks the ID token and returns the identity it asserts.
func (v *FirebaseVerifier) Verify(ctx context.Context, idToken string) (domain.Identity, error) {
	if idToken == "" {
		return domain.Identity{}, fmt.Errorf("identity.FirebaseVerifier.Verify: %w: empty token", domain.ErrUnauthorized)
	}
	ctx, cancel := context.WithTimeout(ctx, v.timeout)
	defer cancel()

	tok, err := v.client.VerifyIDToken(ctx, idToken)
	if err != nil {
		return domain.Identity{}, fmt.Errorf("identity.FirebaseVerifier.Verify: %w: %w", domain.ErrUnauthorized, err)
	}
	if tok.UID == "" {
		return domain.Identity{}, fmt.Errorf("identity.FirebaseVerifier.Verify: %w: token has no uid", domain.ErrUnauthorized)
	}

	email, _ := tok.Claims["email"].(string)
	name, _ := tok.Claims["name"].(string)
	picture, _ := tok.Claims["picture"].(string)
	return domain.Identity{
		SubjectID:   tok.UID,
		Email:       email,
		DisplayName: name,
		AvatarURL:   picture,
	}, nil
}
