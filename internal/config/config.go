// Package config loads and validates application configuration from environment variables.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Store backends selectable with STORE_BACKEND.
const (
	BackendPostgres  = "postgres"
	BackendFirestore = "firestore"
)

// Config holds all configuration values for the API server.
// Values are populated by Load from environment variables.
type Config struct {
	// Port is the TCP port the HTTP server listens on.
	Port string `env:"PORT" envDefault:"8080"`

	// LogLevel controls the minimum log level: debug, info, warn, error.
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	// CORSOrigins is the list of allowed cross-origin request origins.
	CORSOrigins []string `env:"CORS_ORIGINS" envDefault:"http://localhost:5173"`

	// MaxBodyBytes caps request bodies.
	MaxBodyBytes int64 `env:"MAX_BODY_BYTES" envDefault:"1048576"`

	// StoreBackend is postgres or firestore.
	StoreBackend string `env:"STORE_BACKEND" envDefault:"postgres"`

	// DatabaseURL is the Postgres connection string. Required for postgres.
	DatabaseURL string `env:"DATABASE_URL"`

	// FirebaseProjectID is required for the firestore backend and enables
	// Firebase ID-token sign-in with either backend.
	FirebaseProjectID       string `env:"FIREBASE_PROJECT_ID"`
	FirebaseCredentialsJSON string `env:"FIREBASE_CREDENTIALS_JSON"`

	// AllowedEmails is the sign-in allow-list. Required.
	AllowedEmails []string `env:"ALLOWED_EMAILS"`

	// SessionSecret signs session tokens. Required, at least 32 bytes.
	SessionSecret string        `env:"SESSION_SECRET"`
	SessionTTL    time.Duration `env:"SESSION_TTL" envDefault:"168h"`
	// SecureCookies marks the session cookie Secure; off for local http.
	SecureCookies bool `env:"SECURE_COOKIES" envDefault:"false"`

	GoogleClientID     string `env:"GOOGLE_CLIENT_ID"`
	GoogleClientSecret string `env:"GOOGLE_CLIENT_SECRET"`
	GoogleRedirectURL  string `env:"GOOGLE_REDIRECT_URL" envDefault:"http://localhost:8080/auth/google/callback"`
	// FrontendURL is where the OAuth callback redirects after sign-in.
	FrontendURL string `env:"FRONTEND_URL" envDefault:"http://localhost:5173"`

	// GoogleMapsAPIKey enables travel durations and map embeds.
	GoogleMapsAPIKey string `env:"GOOGLE_MAPS_API_KEY"`

	// DisplayTimezone is the IANA zone used for calendar-day decisions.
	DisplayTimezone string `env:"DISPLAY_TIMEZONE" envDefault:"UTC"`

	// S3 settings for cover uploads; uploads are disabled without a bucket.
	S3Bucket        string `env:"S3_BUCKET"`
	S3Region        string `env:"S3_REGION" envDefault:"us-east-1"`
	S3Endpoint      string `env:"S3_ENDPOINT"`
	S3AccessKey     string `env:"S3_ACCESS_KEY"`
	S3SecretKey     string `env:"S3_SECRET_KEY"`
	S3PublicBaseURL string `env:"S3_PUBLIC_BASE_URL"`

	// OTLPEndpoint enables tracing when set.
	OTLPEndpoint string `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
}

// Load reads configuration from environment variables and returns a Config.
// Returns an error listing any required variables that are not set.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("config.Load: parse env: %w", err)
	}
	cfg.CORSOrigins = trimAll(cfg.CORSOrigins)
	cfg.AllowedEmails = trimAll(cfg.AllowedEmails)

	var missing []string
	switch cfg.StoreBackend {
	case BackendPostgres:
		if cfg.DatabaseURL == "" {
			missing = append(missing, "DATABASE_URL")
		}
	case BackendFirestore:
		if cfg.FirebaseProjectID == "" {
			missing = append(missing, "FIREBASE_PROJECT_ID")
		}
	default:
		return Config{}, fmt.Errorf("config.Load: unknown STORE_BACKEND %q", cfg.StoreBackend)
	}
	if len(cfg.AllowedEmails) == 0 {
		missing = append(missing, "ALLOWED_EMAILS")
	}
	if cfg.SessionSecret == "" {
		missing = append(missing, "SESSION_SECRET")
	}

	if len(missing) > 0 {
		return Config{}, fmt.Errorf("required environment variables not set: %s", strings.Join(missing, ", "))
	}

	if _, err := time.LoadLocation(cfg.DisplayTimezone); err != nil {
		return Config{}, fmt.Errorf("config.Load: DISPLAY_TIMEZONE: %w", err)
	}
	return cfg, nil
}

// Location returns the display zone. Load has already validated it.
func (c Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.DisplayTimezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// GoogleSignIn reports whether the Google OAuth flow is configured.
func (c Config) GoogleSignIn() bool {
	return c.GoogleClientID != "" && c.GoogleClientSecret != ""
}

// trimAll trims each entry and drops empty ones.
func trimAll(in []string) []string {
	var out []string
	for _, s := range in {
		if t := strings.TrimSpace(s); t != "" {
			out = append(out, t)
		}
	}
	return out
}
