// Package config builds the process configuration from the environment.
// The Google OAuth web client JSON (as downloaded from the Cloud console)
// is accepted base64-encoded in GOOGLE_OAUTH_CLIENT_CONFIG; everything else
// is tuned through FIREGATE_* variables. The config is constructed once at
// startup and passed by value into the components that need it.
package config

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Secret is a string type that redacts itself when printed
type Secret string

// String implements fmt.Stringer to redact the secret
func (s Secret) String() string {
	if s == "" {
		return ""
	}
	return "***"
}

// MarshalJSON implements json.Marshaler to prevent secrets in JSON logs
func (s Secret) MarshalJSON() ([]byte, error) {
	if s == "" {
		return json.Marshal("")
	}
	return json.Marshal("***")
}

// StorageKind selects the user store backend
type StorageKind string

const (
	StorageFirestore StorageKind = "firestore"
	StorageMemory    StorageKind = "memory"
)

// Defaults mirroring the service's documented environment surface
const (
	DefaultAddr                = ":8080"
	DefaultRedirectURIPath     = "/callback"
	DefaultCookieName          = "FIREGATE_SESSION"
	DefaultCookieMaxAge        = 300 * time.Second
	DefaultFirestoreCollection = "googleUsers"

	// Google's token revocation endpoint; not part of the client config JSON
	DefaultRevokeURL = "https://oauth2.googleapis.com/revoke"
)

// DefaultBaseScopes are always requested in addition to caller scopes
var DefaultBaseScopes = []string{"openid", "email", "profile"}

// googleWebClient is the "web" object of the Google OAuth client JSON
type googleWebClient struct {
	ClientID          string   `json:"client_id"`
	ProjectID         string   `json:"project_id"`
	AuthURI           string   `json:"auth_uri"`
	TokenURI          string   `json:"token_uri"`
	ClientSecret      string   `json:"client_secret"`
	RedirectURIs      []string `json:"redirect_uris"`
	JavascriptOrigins []string `json:"javascript_origins"`
}

type googleClientConfig struct {
	Web googleWebClient `json:"web"`
}

// Config is the resolved process configuration
type Config struct {
	Addr string

	ClientID     string
	ClientSecret Secret
	ProjectID    string
	AuthURL      string
	TokenURL     string
	RevokeURL    string

	// Origins allowed to call the broker-gated endpoints cross-site,
	// taken from the client config's javascript_origins.
	AllowedOrigins []string

	// Scopes always requested in addition to caller-chosen scopes
	BaseScopes []string

	// Server-side path Google redirects back to; combined with the
	// request's scheme and host to form the OAuth redirect URI.
	RedirectURIPath string

	CookieName   string
	CookieMaxAge time.Duration

	// HMAC key for the session cookie signer
	SessionSigningKey Secret

	Storage             StorageKind
	FirestoreCollection string

	// Revoke a previously stored refresh token before overwriting it
	// during the callback. Best-effort, off by default.
	RevokeExistingTokens bool
}

// FromEnv constructs and validates the configuration from the environment.
func FromEnv() (Config, error) {
	encoded := os.Getenv("GOOGLE_OAUTH_CLIENT_CONFIG")
	if encoded == "" {
		return Config{}, fmt.Errorf("GOOGLE_OAUTH_CLIENT_CONFIG is required")
	}
	decoded, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return Config{}, fmt.Errorf("decoding GOOGLE_OAUTH_CLIENT_CONFIG: %w", err)
	}
	var clientConfig googleClientConfig
	if err := json.Unmarshal(decoded, &clientConfig); err != nil {
		return Config{}, fmt.Errorf("parsing GOOGLE_OAUTH_CLIENT_CONFIG: %w", err)
	}

	cfg := Config{
		Addr:                 envOr("FIREGATE_ADDR", DefaultAddr),
		ClientID:             clientConfig.Web.ClientID,
		ClientSecret:         Secret(clientConfig.Web.ClientSecret),
		ProjectID:            clientConfig.Web.ProjectID,
		AuthURL:              clientConfig.Web.AuthURI,
		TokenURL:             clientConfig.Web.TokenURI,
		RevokeURL:            envOr("GOOGLE_OAUTH_REVOKE_URL", DefaultRevokeURL),
		AllowedOrigins:       clientConfig.Web.JavascriptOrigins,
		BaseScopes:           DefaultBaseScopes,
		RedirectURIPath:      envOr("FIREGATE_REDIRECT_URI_PATH", DefaultRedirectURIPath),
		CookieName:           envOr("FIREGATE_SESSION_COOKIE_NAME", DefaultCookieName),
		CookieMaxAge:         DefaultCookieMaxAge,
		SessionSigningKey:    Secret(os.Getenv("FIREGATE_SESSION_SIGNING_KEY")),
		Storage:              StorageKind(envOr("FIREGATE_STORAGE", string(StorageFirestore))),
		FirestoreCollection:  envOr("FIREGATE_FIRESTORE_COLLECTION", DefaultFirestoreCollection),
		RevokeExistingTokens: false,
	}

	// Endpoint overrides for testing against a fake provider
	if authURL := os.Getenv("GOOGLE_OAUTH_AUTH_URL"); authURL != "" {
		cfg.AuthURL = authURL
	}
	if tokenURL := os.Getenv("GOOGLE_OAUTH_TOKEN_URL"); tokenURL != "" {
		cfg.TokenURL = tokenURL
	}

	if scopes := os.Getenv("FIREGATE_BASE_SCOPES"); scopes != "" {
		cfg.BaseScopes = strings.Fields(scopes)
	}

	if maxAge := os.Getenv("FIREGATE_SESSION_COOKIE_MAX_AGE"); maxAge != "" {
		seconds, err := strconv.Atoi(maxAge)
		if err != nil {
			return Config{}, fmt.Errorf("parsing FIREGATE_SESSION_COOKIE_MAX_AGE: %w", err)
		}
		cfg.CookieMaxAge = time.Duration(seconds) * time.Second
	}

	if revoke := os.Getenv("FIREGATE_ENABLE_EXISTING_TOKEN_REVOCATION"); revoke != "" {
		enabled, err := strconv.ParseBool(revoke)
		if err != nil {
			return Config{}, fmt.Errorf("parsing FIREGATE_ENABLE_EXISTING_TOKEN_REVOCATION: %w", err)
		}
		cfg.RevokeExistingTokens = enabled
	}

	if err := Validate(&cfg); err != nil {
		return Config{}, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// Validate checks the resolved configuration
func Validate(cfg *Config) error {
	if cfg.ClientID == "" {
		return fmt.Errorf("client_id is required")
	}
	if cfg.ClientSecret == "" {
		return fmt.Errorf("client_secret is required")
	}
	if cfg.AuthURL == "" {
		return fmt.Errorf("auth_uri is required")
	}
	if cfg.TokenURL == "" {
		return fmt.Errorf("token_uri is required")
	}
	if len(cfg.SessionSigningKey) < 32 {
		return fmt.Errorf("FIREGATE_SESSION_SIGNING_KEY must be at least 32 characters (got %d). Generate with: openssl rand -base64 32", len(cfg.SessionSigningKey))
	}
	if cfg.CookieMaxAge <= 0 {
		return fmt.Errorf("session cookie max age must be positive")
	}
	switch cfg.Storage {
	case StorageFirestore:
		if cfg.ProjectID == "" {
			return fmt.Errorf("project_id is required when using firestore storage")
		}
		if cfg.FirestoreCollection == "" {
			return fmt.Errorf("firestore collection is required")
		}
	case StorageMemory:
	default:
		return fmt.Errorf("unknown storage kind: %s", cfg.Storage)
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
