package crypto

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// TokenSigner mints opaque HMAC-signed tokens carrying a JSON payload.
// A ttl of zero or less produces tokens that never expire.
type TokenSigner struct {
	signingKey []byte
	ttl        time.Duration
}

func NewTokenSigner(signingKey []byte, ttl time.Duration) TokenSigner {
	return TokenSigner{
		signingKey: signingKey,
		ttl:        ttl,
	}
}

// envelope is the signed unit: the caller's payload plus the expiry stamp.
type envelope struct {
	Data      json.RawMessage `json:"data"`
	ExpiresAt time.Time       `json:"expires_at,omitempty"`
}

// Sign wraps v in an envelope and returns base64(envelope).signature.
func (ts *TokenSigner) Sign(v any) (string, error) {
	payload, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("failed to marshal payload: %w", err)
	}

	env := envelope{Data: payload}
	if ts.ttl > 0 {
		env.ExpiresAt = time.Now().Add(ts.ttl)
	}

	raw, err := json.Marshal(env)
	if err != nil {
		return "", fmt.Errorf("failed to marshal envelope: %w", err)
	}

	return base64.URLEncoding.EncodeToString(raw) + "." + SignData(string(raw), ts.signingKey), nil
}

// Verify checks the signature and expiry, then unmarshals the payload
// into v.
func (ts *TokenSigner) Verify(token string, v any) error {
	encoded, signature, ok := strings.Cut(token, ".")
	if !ok {
		return errors.New("invalid token format")
	}

	raw, err := base64.URLEncoding.DecodeString(encoded)
	if err != nil {
		return fmt.Errorf("failed to decode token: %w", err)
	}
	if !ValidateSignedData(string(raw), signature, ts.signingKey) {
		return errors.New("invalid signature")
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return fmt.Errorf("failed to unmarshal envelope: %w", err)
	}
	if !env.ExpiresAt.IsZero() && time.Now().After(env.ExpiresAt) {
		return errors.New("token expired")
	}

	if err := json.Unmarshal(env.Data, v); err != nil {
		return fmt.Errorf("failed to unmarshal payload: %w", err)
	}
	return nil
}
