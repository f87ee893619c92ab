package storage

import "fmt"

// GoogleUser is the persisted record for an authenticated Google account,
// keyed by the provider-issued subject id. The id is the document key and is
// not stored as a field.
type GoogleUser struct {
	ID           string   `firestore:"-" json:"-"`
	Email        string   `firestore:"email,omitempty" json:"email,omitempty"`
	RefreshToken string   `firestore:"refreshToken,omitempty" json:"refreshToken,omitempty"`
	Scope        []string `firestore:"scope" json:"scope"`
}

// HasRefreshToken reports whether a refresh token is stored for the user.
func (u *GoogleUser) HasRefreshToken() bool {
	return u != nil && u.RefreshToken != ""
}

// String redacts the email and refresh token so the record can be logged.
func (u *GoogleUser) String() string {
	return fmt.Sprintf("GoogleUser{id: %s, email: <redacted>, refresh_token: <redacted>, scope: %v}", u.ID, u.Scope)
}
