package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/firegate/firegate/internal/broker"
	"github.com/firegate/firegate/internal/config"
	"github.com/firegate/firegate/internal/googleclient"
	"github.com/firegate/firegate/internal/session"
	"github.com/firegate/firegate/internal/storage"
	"github.com/firegate/firegate/internal/verifier"
)

// fakeSessionVerifier resolves a single known bearer token
type fakeSessionVerifier struct {
	token    string
	identity *broker.Identity
	err      error
}

func (f *fakeSessionVerifier) VerifySession(_ context.Context, raw string) (*broker.Identity, error) {
	if f.err != nil {
		return nil, f.err
	}
	if raw != f.token {
		return nil, broker.ErrMissingBearer
	}
	return f.identity, nil
}

// fakeIDVerifier accepts a single known ID token
type fakeIDVerifier struct {
	token  string
	claims *verifier.Claims
	err    error
}

func (f *fakeIDVerifier) Verify(_ context.Context, raw string) (*verifier.Claims, error) {
	if f.err != nil {
		return nil, f.err
	}
	if raw != f.token {
		return nil, context.DeadlineExceeded
	}
	return f.claims, nil
}

type providerTokenResponse struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in,omitempty"`
	RefreshToken string `json:"refresh_token,omitempty"`
	IDToken      string `json:"id_token,omitempty"`
	Scope        string `json:"scope,omitempty"`
}

// fakeProvider stands in for Google's token and revocation endpoints
type fakeProvider struct {
	server        *httptest.Server
	tokenResponse providerTokenResponse
	tokenStatus   int
	revokeStatus  int
	tokenCalls    atomic.Int64
	revokeCalls   atomic.Int64
	lastTokenForm url.Values
}

func newFakeProvider(t *testing.T) *fakeProvider {
	t.Helper()
	p := &fakeProvider{
		tokenResponse: providerTokenResponse{
			AccessToken: "access-token-value",
			TokenType:   "Bearer",
			ExpiresIn:   3600,
			IDToken:     "id-token-value",
		},
		tokenStatus:  http.StatusOK,
		revokeStatus: http.StatusOK,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		p.tokenCalls.Add(1)
		require.NoError(t, r.ParseForm())
		p.lastTokenForm = r.PostForm
		if p.tokenStatus != http.StatusOK {
			http.Error(w, `{"error":"invalid_grant"}`, p.tokenStatus)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(p.tokenResponse))
	})
	mux.HandleFunc("/revoke", func(w http.ResponseWriter, r *http.Request) {
		p.revokeCalls.Add(1)
		w.WriteHeader(p.revokeStatus)
	})

	p.server = httptest.NewServer(mux)
	t.Cleanup(p.server.Close)
	return p
}

// testEnv bundles a wired router with its collaborators
type testEnv struct {
	provider *fakeProvider
	store    *storage.MemoryStore
	codec    session.Codec
	handler  http.Handler
}

const (
	testBrokerToken  = "broker-session-token"
	testGoogleUserID = "108123456789"
	testIDToken      = "id-token-value"
)

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	provider := newFakeProvider(t)
	store := storage.NewMemoryStore()
	t.Cleanup(func() { _ = store.Close() })

	cfg := config.Config{
		ClientID:        "client-id",
		ClientSecret:    "client-secret",
		AuthURL:         provider.server.URL + "/auth",
		TokenURL:        provider.server.URL + "/token",
		RevokeURL:       provider.server.URL + "/revoke",
		BaseScopes:      []string{"openid", "email", "profile"},
		RedirectURIPath: "/callback",
		CookieName:      "FIREGATE_SESSION",
		CookieMaxAge:    5 * time.Minute,
		AllowedOrigins:  []string{"https://app.example.com"},
	}

	idTokens := &fakeIDVerifier{
		token: testIDToken,
		claims: &verifier.Claims{
			Subject:       testGoogleUserID,
			Email:         "user@example.com",
			EmailVerified: true,
		},
	}
	sessions := &fakeSessionVerifier{
		token: testBrokerToken,
		identity: &broker.Identity{
			Subject:      "broker-uid",
			Email:        "user@example.com",
			GoogleUserID: testGoogleUserID,
		},
	}

	client := googleclient.New(cfg, store, idTokens)
	codec := session.NewCodec(cfg.CookieName, []byte("0123456789abcdef0123456789abcdef"), cfg.CookieMaxAge)

	return &testEnv{
		provider: provider,
		store:    store,
		codec:    codec,
		handler:  NewRouter(cfg, "test", client, codec, sessions, idTokens),
	}
}

func (e *testEnv) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) (string, string) {
	t.Helper()
	var body struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	return body.Error, body.Message
}
