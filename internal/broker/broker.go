// Package broker authenticates callers of the token-management endpoints.
// Callers present a session token minted by an external identity broker;
// the broker's claims carry the Google account the session was federated
// from, which is the only link back to stored refresh tokens.
package broker

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"google.golang.org/api/idtoken"
)

// ErrMissingGoogleIdentity is returned when a broker session is valid but
// was not federated from a Google account, so no stored token can be
// associated with it.
var ErrMissingGoogleIdentity = errors.New("missing Google identity claims")

// ErrMissingBearer is returned when the Authorization header is absent or
// not a Bearer credential.
var ErrMissingBearer = errors.New("missing bearer token")

// Identity describes an authenticated broker session.
type Identity struct {
	// Subject is the broker's own user identifier.
	Subject string

	Email string

	// GoogleUserID is the Google account subject this session was
	// federated from. It keys the token store.
	GoogleUserID string
}

// SessionVerifier validates a broker session token and resolves the
// identity behind it.
type SessionVerifier interface {
	VerifySession(ctx context.Context, rawToken string) (*Identity, error)
}

// Verifier validates broker session tokens. Broker tokens are JWTs signed
// by Google's securetoken service with the project ID as audience, so the
// same validation path as Google ID tokens applies.
type Verifier struct {
	projectID string
}

// NewVerifier creates a broker session verifier for one project.
func NewVerifier(projectID string) *Verifier {
	return &Verifier{projectID: projectID}
}

// VerifySession validates the token and extracts the federated Google
// account from the provider claims.
func (v *Verifier) VerifySession(ctx context.Context, rawToken string) (*Identity, error) {
	payload, err := idtoken.Validate(ctx, rawToken, v.projectID)
	if err != nil {
		return nil, fmt.Errorf("validating session token: %w", err)
	}

	identity := &Identity{Subject: payload.Subject}
	if email, ok := payload.Claims["email"].(string); ok {
		identity.Email = email
	}

	googleID, err := googleIdentityFromClaims(payload.Claims)
	if err != nil {
		return nil, err
	}
	identity.GoogleUserID = googleID
	return identity, nil
}

// googleIdentityFromClaims digs the federated Google subject out of the
// broker claim shape: firebase.identities["google.com"] is a list of
// provider subjects, the first of which is the linked account.
func googleIdentityFromClaims(claims map[string]any) (string, error) {
	firebase, ok := claims["firebase"].(map[string]any)
	if !ok {
		return "", ErrMissingGoogleIdentity
	}
	identities, ok := firebase["identities"].(map[string]any)
	if !ok {
		return "", ErrMissingGoogleIdentity
	}
	google, ok := identities["google.com"].([]any)
	if !ok || len(google) == 0 {
		return "", ErrMissingGoogleIdentity
	}
	id, ok := google[0].(string)
	if !ok || id == "" {
		return "", ErrMissingGoogleIdentity
	}
	return id, nil
}

// BearerToken extracts the Bearer credential from a request.
func BearerToken(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", ErrMissingBearer
	}
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || token == "" {
		return "", ErrMissingBearer
	}
	return token, nil
}
