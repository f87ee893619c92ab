package config

import (
	"encoding/base64"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clientConfigJSON(t *testing.T) string {
	t.Helper()
	raw := map[string]any{
		"web": map[string]any{
			"client_id":          "client-123.apps.googleusercontent.com",
			"project_id":         "test-project",
			"auth_uri":           "https://accounts.google.com/o/oauth2/auth",
			"token_uri":          "https://oauth2.googleapis.com/token",
			"client_secret":      "shhh",
			"redirect_uris":      []string{"https://app.example.com/callback"},
			"javascript_origins": []string{"https://app.example.com"},
		},
	}
	data, err := json.Marshal(raw)
	require.NoError(t, err)
	return base64.StdEncoding.EncodeToString(data)
}

func TestFromEnv(t *testing.T) {
	t.Setenv("GOOGLE_OAUTH_CLIENT_CONFIG", clientConfigJSON(t))
	t.Setenv("FIREGATE_SESSION_SIGNING_KEY", "0123456789abcdef0123456789abcdef")
	t.Setenv("FIREGATE_STORAGE", "memory")
	t.Setenv("FIREGATE_SESSION_COOKIE_MAX_AGE", "180")

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, "client-123.apps.googleusercontent.com", cfg.ClientID)
	assert.Equal(t, "test-project", cfg.ProjectID)
	assert.Equal(t, "https://accounts.google.com/o/oauth2/auth", cfg.AuthURL)
	assert.Equal(t, "https://oauth2.googleapis.com/token", cfg.TokenURL)
	assert.Equal(t, DefaultRevokeURL, cfg.RevokeURL)
	assert.Equal(t, []string{"https://app.example.com"}, cfg.AllowedOrigins)
	assert.Equal(t, DefaultBaseScopes, cfg.BaseScopes)
	assert.Equal(t, DefaultCookieName, cfg.CookieName)
	assert.Equal(t, 180*time.Second, cfg.CookieMaxAge)
	assert.Equal(t, StorageMemory, cfg.Storage)
	assert.Equal(t, DefaultFirestoreCollection, cfg.FirestoreCollection)
	assert.False(t, cfg.RevokeExistingTokens)
}

func TestFromEnvMissingClientConfig(t *testing.T) {
	t.Setenv("GOOGLE_OAUTH_CLIENT_CONFIG", "")
	_, err := FromEnv()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "GOOGLE_OAUTH_CLIENT_CONFIG")
}

func TestFromEnvRejectsShortSigningKey(t *testing.T) {
	t.Setenv("GOOGLE_OAUTH_CLIENT_CONFIG", clientConfigJSON(t))
	t.Setenv("FIREGATE_SESSION_SIGNING_KEY", "too-short")
	t.Setenv("FIREGATE_STORAGE", "memory")

	_, err := FromEnv()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "at least 32 characters")
}

func TestFromEnvEndpointOverrides(t *testing.T) {
	t.Setenv("GOOGLE_OAUTH_CLIENT_CONFIG", clientConfigJSON(t))
	t.Setenv("FIREGATE_SESSION_SIGNING_KEY", "0123456789abcdef0123456789abcdef")
	t.Setenv("FIREGATE_STORAGE", "memory")
	t.Setenv("GOOGLE_OAUTH_AUTH_URL", "http://127.0.0.1:9999/auth")
	t.Setenv("GOOGLE_OAUTH_TOKEN_URL", "http://127.0.0.1:9999/token")

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, "http://127.0.0.1:9999/auth", cfg.AuthURL)
	assert.Equal(t, "http://127.0.0.1:9999/token", cfg.TokenURL)
}

func TestSecretRedaction(t *testing.T) {
	s := Secret("super-secret")
	assert.Equal(t, "***", s.String())

	data, err := json.Marshal(s)
	require.NoError(t, err)
	assert.Equal(t, `"***"`, string(data))

	var empty Secret
	assert.Equal(t, "", empty.String())
}
