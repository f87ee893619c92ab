// Package googleclient implements the provider-facing half of the service:
// building authorization URLs, running the callback exchange, refreshing
// stored tokens, and revoking them. All outbound calls go through a client
// that never follows redirects, so a misbehaving endpoint cannot bounce the
// service to an arbitrary host.
package googleclient

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/firegate/firegate/internal/authparams"
	"github.com/firegate/firegate/internal/config"
	"github.com/firegate/firegate/internal/crypto"
	"github.com/firegate/firegate/internal/ioutil"
	"github.com/firegate/firegate/internal/log"
	"github.com/firegate/firegate/internal/storage"
	"github.com/firegate/firegate/internal/verifier"
)

// Client talks to Google's OAuth endpoints on behalf of browser flows and
// token-management calls.
type Client struct {
	clientID     string
	clientSecret string
	endpoint     oauth2.Endpoint
	revokeURL    string
	baseScopes   []string

	revokeExisting bool

	store    storage.UserStore
	verifier verifier.IdentityVerifier

	httpClient *http.Client
}

// New builds a client from the resolved configuration.
func New(cfg config.Config, store storage.UserStore, idVerifier verifier.IdentityVerifier) *Client {
	return &Client{
		clientID:     cfg.ClientID,
		clientSecret: string(cfg.ClientSecret),
		endpoint: oauth2.Endpoint{
			AuthURL:  cfg.AuthURL,
			TokenURL: cfg.TokenURL,
		},
		revokeURL:      cfg.RevokeURL,
		baseScopes:     cfg.BaseScopes,
		revokeExisting: cfg.RevokeExistingTokens,
		store:          store,
		verifier:       idVerifier,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

// oauthConfig assembles a per-request oauth2.Config. The redirect URI varies
// with the incoming request's host, so the config cannot be built once.
func (c *Client) oauthConfig(redirectURI string, scopes []string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     c.clientID,
		ClientSecret: c.clientSecret,
		Endpoint:     c.endpoint,
		RedirectURL:  redirectURI,
		Scopes:       scopes,
	}
}

// outboundContext pins outbound oauth2 calls to the redirect-disabled client.
func (c *Client) outboundContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
}

// mergeScopes prepends the base scopes to the caller's, dropping duplicates
// while keeping order stable.
func (c *Client) mergeScopes(scopes authparams.ScopeList) []string {
	merged := make([]string, 0, len(c.baseScopes)+len(scopes))
	for _, s := range c.baseScopes {
		if !slices.Contains(merged, s) {
			merged = append(merged, s)
		}
	}
	for _, s := range scopes {
		if !slices.Contains(merged, s) {
			merged = append(merged, s)
		}
	}
	return merged
}

// AuthorizationRequest is a freshly minted authorization URL together with
// the secrets that must ride along in the session cookie.
type AuthorizationRequest struct {
	URL          string
	PKCEVerifier string
	CSRFToken    string
}

// AuthorizationURL generates the Google authorization URL with a fresh PKCE
// pair and CSRF token.
func (c *Client) AuthorizationURL(scopes authparams.ScopeList, extra authparams.ExtraParams, redirectURI string) (*AuthorizationRequest, error) {
	pkceVerifier, challenge, err := crypto.GeneratePKCE()
	if err != nil {
		return nil, fmt.Errorf("generating PKCE pair: %w", err)
	}
	csrfToken, err := crypto.GenerateSecureToken()
	if err != nil {
		return nil, fmt.Errorf("generating CSRF token: %w", err)
	}

	opts := append(extra.AuthCodeOptions(),
		oauth2.SetAuthURLParam("code_challenge", challenge),
		oauth2.SetAuthURLParam("code_challenge_method", crypto.PKCEChallengeMethod),
	)

	oauthConfig := c.oauthConfig(redirectURI, c.mergeScopes(scopes))
	return &AuthorizationRequest{
		URL:          oauthConfig.AuthCodeURL(csrfToken, opts...),
		PKCEVerifier: pkceVerifier,
		CSRFToken:    csrfToken,
	}, nil
}

// ExchangeRefreshToken mints a fresh access token from the refresh token
// stored for the user. Returns storage.ErrUserNotFound when no record
// exists, and a TokenExchangeError when a record exists without a refresh
// token or the provider rejects the refresh.
func (c *Client) ExchangeRefreshToken(ctx context.Context, userID string) (*oauth2.Token, error) {
	user, err := c.store.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !user.HasRefreshToken() {
		return nil, newTokenExchangeError("no refresh token found for user")
	}

	oauthConfig := c.oauthConfig("", nil)
	source := oauthConfig.TokenSource(c.outboundContext(ctx), &oauth2.Token{RefreshToken: user.RefreshToken})
	token, err := source.Token()
	if err != nil {
		return nil, newTokenExchangeError("%v", err)
	}
	return token, nil
}

// RevocationConfig describes a revocation request. The access token is
// always revoked; the stored refresh token only when RevokeRefreshToken is
// set.
type RevocationConfig struct {
	AccessToken        string
	RevokeRefreshToken bool
	UserID             string
}

// RevokeToken revokes the access token at the provider and, when requested,
// the refresh token stored for the user. A missing record or a record
// without a refresh token makes the refresh half a no-op; any provider
// failure is surfaced.
func (c *Client) RevokeToken(ctx context.Context, cfg RevocationConfig) error {
	if err := c.revoke(ctx, cfg.AccessToken); err != nil {
		return err
	}

	if !cfg.RevokeRefreshToken {
		return nil
	}

	user, err := c.store.Get(ctx, cfg.UserID)
	if err != nil {
		if err == storage.ErrUserNotFound {
			return nil
		}
		return fmt.Errorf("loading user for revocation: %w", err)
	}
	if !user.HasRefreshToken() {
		return nil
	}
	return c.revoke(ctx, user.RefreshToken)
}

// revoke posts a single token to the revocation endpoint.
func (c *Client) revoke(ctx context.Context, token string) error {
	form := url.Values{"token": {token}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.revokeURL, strings.NewReader(form.Encode()))
	if err != nil {
		return newRevocationError("%v", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return newRevocationError("%v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		// the body goes to debug logs only, never to the caller
		log.LogDebugWithFields("googleclient", "revocation endpoint error response", map[string]any{
			"status": resp.StatusCode,
			"body":   ioutil.ReadLimited(resp.Body, 1024),
		})
		return newRevocationError("revocation endpoint returned status %d", resp.StatusCode)
	}
	return nil
}

// revokeExistingToken best-effort revokes a refresh token that is about to
// be overwritten. Runs detached from the request's cancellation and only
// logs failures.
func (c *Client) revokeExistingToken(ctx context.Context, userID, token string) {
	if err := c.revoke(context.WithoutCancel(ctx), token); err != nil {
		log.LogWarnWithFields("googleclient", "failed to revoke existing refresh token", map[string]any{
			"user": userID,
			"err":  err.Error(),
		})
	}
}
