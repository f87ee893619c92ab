package googleclient

import "fmt"

// TokenExchangeError reports a failure to obtain tokens from the provider,
// at authorization code exchange or at refresh. The message never carries
// token material.
type TokenExchangeError struct {
	because string
}

func newTokenExchangeError(format string, args ...any) *TokenExchangeError {
	return &TokenExchangeError{because: fmt.Sprintf(format, args...)}
}

func (e *TokenExchangeError) Error() string {
	return "failed to exchange token: " + e.because
}

// RevocationError reports a failure to revoke a token at the provider.
type RevocationError struct {
	because string
}

func newRevocationError(format string, args ...any) *RevocationError {
	return &RevocationError{because: fmt.Sprintf(format, args...)}
}

func (e *RevocationError) Error() string {
	return "failed to revoke token: " + e.because
}
