package servicecontext

import (
	"context"

	"github.com/firegate/firegate/internal/broker"
)

type contextKey string

const identityKey contextKey = "auth.identity"

// WithIdentity adds an authenticated broker identity to the context
func WithIdentity(ctx context.Context, identity *broker.Identity) context.Context {
	return context.WithValue(ctx, identityKey, identity)
}

// GetIdentity retrieves the broker identity from context
func GetIdentity(ctx context.Context) (*broker.Identity, bool) {
	identity, ok := ctx.Value(identityKey).(*broker.Identity)
	return identity, ok
}

// GetGoogleUserID retrieves the federated Google account ID from context
func GetGoogleUserID(ctx context.Context) (string, bool) {
	identity, ok := GetIdentity(ctx)
	if !ok || identity.GoogleUserID == "" {
		return "", false
	}
	return identity.GoogleUserID, true
}
