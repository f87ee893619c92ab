// Package verifier checks Google-issued ID tokens and extracts the claims
// the rest of the service keys on.
package verifier

import (
	"context"
	"fmt"

	"google.golang.org/api/idtoken"
)

// Claims are the ID token claims the service consumes. Subject is Google's
// stable account identifier and keys all persisted state.
type Claims struct {
	Subject       string
	Email         string
	EmailVerified bool
	Name          string
	Picture       string
	HostedDomain  string
}

// IdentityVerifier validates a raw ID token and returns its claims.
type IdentityVerifier interface {
	Verify(ctx context.Context, rawToken string) (*Claims, error)
}

// GoogleVerifier validates tokens against Google's public keys, pinned to a
// single OAuth client audience.
type GoogleVerifier struct {
	audience string
}

// NewGoogleVerifier creates a verifier that accepts only tokens issued to
// the given OAuth client ID.
func NewGoogleVerifier(clientID string) *GoogleVerifier {
	return &GoogleVerifier{audience: clientID}
}

// Verify validates signature, expiry, issuer, and audience, then maps the
// payload claims.
func (v *GoogleVerifier) Verify(ctx context.Context, rawToken string) (*Claims, error) {
	payload, err := idtoken.Validate(ctx, rawToken, v.audience)
	if err != nil {
		return nil, fmt.Errorf("validating ID token: %w", err)
	}

	claims := &Claims{Subject: payload.Subject}
	if email, ok := payload.Claims["email"].(string); ok {
		claims.Email = email
	}
	if verified, ok := payload.Claims["email_verified"].(bool); ok {
		claims.EmailVerified = verified
	}
	if name, ok := payload.Claims["name"].(string); ok {
		claims.Name = name
	}
	if picture, ok := payload.Claims["picture"].(string); ok {
		claims.Picture = picture
	}
	if hd, ok := payload.Claims["hd"].(string); ok {
		claims.HostedDomain = hd
	}
	return claims, nil
}
