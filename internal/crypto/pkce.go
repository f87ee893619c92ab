package crypto

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
)

// PKCEChallengeMethod is the only challenge method firegate sends. Plain is
// deliberately unsupported.
const PKCEChallengeMethod = "S256"

// GeneratePKCE returns a fresh PKCE code verifier and its S256 challenge.
// A new pair must be generated for every authorization request; verifiers
// are never reused.
func GeneratePKCE() (verifier, challenge string, err error) {
	// 32 bytes yields a 43-character verifier, within the RFC 7636 bounds.
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", "", fmt.Errorf("failed to generate PKCE verifier: %w", err)
	}
	verifier = base64.RawURLEncoding.EncodeToString(b)
	challenge = PKCEChallenge(verifier)
	return verifier, challenge, nil
}

// PKCEChallenge derives the S256 challenge for a verifier.
func PKCEChallenge(verifier string) string {
	h := sha256.Sum256([]byte(verifier))
	return base64.RawURLEncoding.EncodeToString(h[:])
}
