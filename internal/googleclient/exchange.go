package googleclient

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/oauth2"

	"github.com/firegate/firegate/internal/authparams"
	"github.com/firegate/firegate/internal/log"
	"github.com/firegate/firegate/internal/storage"
)

// ExchangeConfig carries everything the callback exchange needs: the
// provider's query parameters plus the session state minted at
// authorization time.
type ExchangeConfig struct {
	Code         string
	State        string
	CSRFToken    string
	PKCEVerifier string
	RedirectTo   string
	RedirectURI  string
	ExtraParams  authparams.ExtraParams
}

// NewExchangeConfig validates the exchange inputs. Every field except
// ExtraParams is required; the first absent one is reported by name.
func NewExchangeConfig(code, state, csrfToken, pkceVerifier, redirectTo, redirectURI string, extra authparams.ExtraParams) (ExchangeConfig, error) {
	required := []struct {
		name  string
		value string
	}{
		{"code", code},
		{"state", state},
		{"csrf_token", csrfToken},
		{"pkce_verifier", pkceVerifier},
		{"redirect_to", redirectTo},
		{"redirect_uri", redirectURI},
	}
	for _, field := range required {
		if field.value == "" {
			return ExchangeConfig{}, fmt.Errorf("missing field %q", field.name)
		}
	}

	return ExchangeConfig{
		Code:         code,
		State:        state,
		CSRFToken:    csrfToken,
		PKCEVerifier: pkceVerifier,
		RedirectTo:   redirectTo,
		RedirectURI:  redirectURI,
		ExtraParams:  extra,
	}, nil
}

// ExchangeAuthorizationCode runs the callback exchange. The outcome is
// always an AuthorizationResult rendered onto the caller's redirect target;
// by this point the session decoded successfully, so there is no failure
// mode left that should surface as a bare HTTP error.
//
// Order matters: the CSRF check runs before any network call, and the
// identity in the ID token is verified before anything is persisted.
func (c *Client) ExchangeAuthorizationCode(ctx context.Context, cfg ExchangeConfig) *AuthorizationResult {
	if cfg.State != cfg.CSRFToken {
		return NewErrorResult(cfg.RedirectTo, "CSRF token mismatch")
	}

	opts := append(cfg.ExtraParams.AuthCodeOptions(),
		oauth2.SetAuthURLParam("code_verifier", cfg.PKCEVerifier),
	)

	oauthConfig := c.oauthConfig(cfg.RedirectURI, nil)
	token, err := oauthConfig.Exchange(c.outboundContext(ctx), cfg.Code, opts...)
	if err != nil {
		return NewErrorResult(cfg.RedirectTo, newTokenExchangeError("%v", err).Error())
	}

	rawIDToken, ok := token.Extra("id_token").(string)
	if !ok || rawIDToken == "" {
		return NewErrorResult(cfg.RedirectTo, newTokenExchangeError("response did not include an ID token").Error())
	}

	claims, err := c.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return NewErrorResult(cfg.RedirectTo, newTokenExchangeError("%v", err).Error())
	}

	if token.RefreshToken != "" {
		c.persistRefreshToken(ctx, claims.Subject, claims.Email, token)
	}

	return NewSuccessResult(cfg.RedirectTo, token, rawIDToken)
}

// persistRefreshToken upserts the user record carrying the new refresh
// token. Persistence is best-effort: the user already authenticated, so a
// storage outage degrades token management rather than failing the flow.
func (c *Client) persistRefreshToken(ctx context.Context, subject, email string, token *oauth2.Token) {
	ctx = context.WithoutCancel(ctx)

	if c.revokeExisting {
		existing, err := c.store.Get(ctx, subject)
		switch {
		case err == storage.ErrUserNotFound:
		case err != nil:
			log.LogWarnWithFields("googleclient", "failed to load user before token overwrite", map[string]any{
				"user": subject,
				"err":  err.Error(),
			})
		case existing.HasRefreshToken() && existing.RefreshToken != token.RefreshToken:
			c.revokeExistingToken(ctx, subject, existing.RefreshToken)
		}
	}

	user := &storage.GoogleUser{
		ID:           subject,
		Email:        email,
		RefreshToken: token.RefreshToken,
		Scope:        grantedScopes(token),
	}
	if err := c.store.Upsert(ctx, user); err != nil {
		log.LogErrorWithFields("googleclient", "failed to persist refresh token", map[string]any{
			"user": subject,
			"err":  err.Error(),
		})
	}
}

// grantedScopes reads the scopes Google actually granted from the token
// response.
func grantedScopes(token *oauth2.Token) []string {
	raw, ok := token.Extra("scope").(string)
	if !ok || raw == "" {
		return nil
	}
	return strings.Fields(raw)
}
