// Package session carries the ephemeral per-flow state between the
// authorization request and its callback. The state travels entirely in a
// signed, short-lived cookie; the server holds no session store, so anyone
// holding the cookie can complete the flow. Cookie integrity and flags are
// therefore a security boundary, not a transport convenience.
package session

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/firegate/firegate/internal/authparams"
	"github.com/firegate/firegate/internal/crypto"
	"github.com/firegate/firegate/internal/envutil"
)

// ErrExtractSession is the single error every decode failure wraps: missing
// cookie, bad signature, expired token, malformed payload. It is distinct
// from any downstream error so a CSRF failure can never be mistaken for a
// broken cookie.
var ErrExtractSession = errors.New("failed to extract auth info")

// Session is the cookie payload binding the two halves of the flow
type Session struct {
	// PKCE verifier generated at authorization time, consumed once at
	// exchange time.
	PKCEVerifier string `json:"pkce_verifier"`

	// Random CSRF token; must equal the state parameter Google echoes
	// back on the callback.
	CSRFToken string `json:"csrf_token"`

	// Absolute URL the browser is ultimately sent back to. Never the
	// OAuth redirect URI.
	RedirectTo string `json:"redirect_to"`

	// Parameter set chosen at authorization time, replayed unchanged
	// at exchange time.
	ExtraParams authparams.ExtraParams `json:"extra_params"`
}

// Codec signs sessions into cookies and back. The payload is
// integrity-protected (HMAC), not encrypted; confidentiality relies on
// HTTPS and the cookie flags.
type Codec struct {
	cookieName string
	maxAge     time.Duration
	signer     crypto.TokenSigner
}

// NewCodec creates a session codec. maxAge bounds both the cookie lifetime
// and the signed token's expiry.
func NewCodec(cookieName string, signingKey []byte, maxAge time.Duration) Codec {
	return Codec{
		cookieName: cookieName,
		maxAge:     maxAge,
		signer:     crypto.NewTokenSigner(signingKey, maxAge),
	}
}

// Set writes the session cookie
func (c *Codec) Set(w http.ResponseWriter, s Session) error {
	value, err := c.signer.Sign(s)
	if err != nil {
		return fmt.Errorf("signing session: %w", err)
	}

	// plain-http localhost setups cannot round-trip Secure cookies
	http.SetCookie(w, &http.Cookie{
		Name:     c.cookieName,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   !envutil.IsDev(),
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(c.maxAge.Seconds()),
	})
	return nil
}

// Get extracts and verifies the session from the request cookie
func (c *Codec) Get(r *http.Request) (Session, error) {
	cookie, err := r.Cookie(c.cookieName)
	if err != nil {
		return Session{}, fmt.Errorf("%w: missing cookie", ErrExtractSession)
	}

	var s Session
	if err := c.signer.Verify(cookie.Value, &s); err != nil {
		return Session{}, fmt.Errorf("%w: %v", ErrExtractSession, err)
	}
	return s, nil
}

// Clear removes the session cookie. The verifier and CSRF token are
// single-use, so the cookie is cleared once the callback consumes it.
func (c *Codec) Clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:   c.cookieName,
		Value:  "",
		Path:   "/",
		MaxAge: -1,
	})
}
