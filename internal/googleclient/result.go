package googleclient

import (
	"net/url"
	"strconv"
	"time"

	"golang.org/x/oauth2"
)

// timeNow is swapped in tests
var timeNow = time.Now

// AuthorizationResult is the terminal state of a callback exchange. Either
// way the browser is redirected to the caller's target; tokens and errors
// travel in the URL fragment so they never hit server logs or Referer
// headers along the way.
type AuthorizationResult struct {
	redirectTo string
	token      *oauth2.Token
	idToken    string
	errMessage string
}

// NewSuccessResult wraps a completed exchange.
func NewSuccessResult(redirectTo string, token *oauth2.Token, idToken string) *AuthorizationResult {
	return &AuthorizationResult{
		redirectTo: redirectTo,
		token:      token,
		idToken:    idToken,
	}
}

// NewErrorResult wraps a failed exchange with a caller-visible message.
func NewErrorResult(redirectTo, message string) *AuthorizationResult {
	return &AuthorizationResult{
		redirectTo: redirectTo,
		errMessage: message,
	}
}

// OK reports whether the exchange succeeded.
func (r *AuthorizationResult) OK() bool {
	return r.errMessage == ""
}

// RedirectURL renders the result onto the redirect target. Success carries
// access_token, id_token, expires_in, and issued_at in the fragment; failure
// carries a single error parameter.
func (r *AuthorizationResult) RedirectURL() string {
	fragment := url.Values{}
	if r.OK() {
		fragment.Set("access_token", r.token.AccessToken)
		fragment.Set("id_token", r.idToken)
		fragment.Set("expires_in", strconv.FormatInt(expiresIn(r.token), 10))
		fragment.Set("issued_at", strconv.FormatInt(timeNow().Unix(), 10))
	} else {
		fragment.Set("error", r.errMessage)
	}
	return r.redirectTo + "#" + fragment.Encode()
}

// expiresIn converts the token expiry to whole seconds from now. Tokens
// without a known expiry report zero.
func expiresIn(token *oauth2.Token) int64 {
	if token.Expiry.IsZero() {
		return 0
	}
	seconds := int64(time.Until(token.Expiry).Seconds())
	if seconds < 0 {
		return 0
	}
	return seconds
}
