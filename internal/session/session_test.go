package session

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/firegate/firegate/internal/authparams"
)

const testCookieName = "TEST_SESSION"

var testKey = []byte("0123456789abcdef0123456789abcdef")

func newTestCodec(t *testing.T, maxAge time.Duration) Codec {
	t.Helper()
	return NewCodec(testCookieName, testKey, maxAge)
}

func setAndExtract(t *testing.T, codec Codec, s Session) (Session, error) {
	t.Helper()

	rec := httptest.NewRecorder()
	require.NoError(t, codec.Set(rec, s))

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)

	req := httptest.NewRequest(http.MethodGet, "/callback", nil)
	req.AddCookie(cookies[0])
	return codec.Get(req)
}

func TestSessionRoundTrip(t *testing.T) {
	codec := newTestCodec(t, 5*time.Minute)

	original := Session{
		PKCEVerifier: "verifier-value",
		CSRFToken:    "csrf-value",
		RedirectTo:   "https://app.example.com/done",
		ExtraParams: authparams.ExtraParams{
			AccessType:           authparams.AccessTypeOffline,
			Prompt:               authparams.PromptList{authparams.PromptConsent},
			IncludeGrantedScopes: true,
			LoginHint:            "user@example.com",
		},
	}

	got, err := setAndExtract(t, codec, original)
	require.NoError(t, err)
	assert.Equal(t, original, got)
}

func TestSessionCookieFlags(t *testing.T) {
	t.Setenv("FIREGATE_ENV", "")
	codec := newTestCodec(t, 5*time.Minute)

	rec := httptest.NewRecorder()
	require.NoError(t, codec.Set(rec, Session{CSRFToken: "x"}))

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	cookie := cookies[0]

	assert.Equal(t, testCookieName, cookie.Name)
	assert.True(t, cookie.HttpOnly)
	assert.True(t, cookie.Secure)
	assert.Equal(t, http.SameSiteLaxMode, cookie.SameSite)
	assert.Equal(t, 300, cookie.MaxAge)
	assert.Equal(t, "/", cookie.Path)
}

func TestSessionCookieNotSecureInDevMode(t *testing.T) {
	t.Setenv("FIREGATE_ENV", "development")
	codec := newTestCodec(t, 5*time.Minute)

	rec := httptest.NewRecorder()
	require.NoError(t, codec.Set(rec, Session{CSRFToken: "x"}))

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.False(t, cookies[0].Secure)
	assert.True(t, cookies[0].HttpOnly)
}

func TestSessionMissingCookie(t *testing.T) {
	codec := newTestCodec(t, 5*time.Minute)

	req := httptest.NewRequest(http.MethodGet, "/callback", nil)
	_, err := codec.Get(req)
	assert.ErrorIs(t, err, ErrExtractSession)
}

func TestSessionTamperedCookie(t *testing.T) {
	codec := newTestCodec(t, 5*time.Minute)

	rec := httptest.NewRecorder()
	require.NoError(t, codec.Set(rec, Session{CSRFToken: "x"}))
	cookie := rec.Result().Cookies()[0]
	cookie.Value = cookie.Value + "tampered"

	req := httptest.NewRequest(http.MethodGet, "/callback", nil)
	req.AddCookie(cookie)
	_, err := codec.Get(req)
	assert.ErrorIs(t, err, ErrExtractSession)
}

func TestSessionWrongKey(t *testing.T) {
	codec := newTestCodec(t, 5*time.Minute)

	rec := httptest.NewRecorder()
	require.NoError(t, codec.Set(rec, Session{CSRFToken: "x"}))

	other := NewCodec(testCookieName, []byte("ffffffffffffffffffffffffffffffff"), 5*time.Minute)
	req := httptest.NewRequest(http.MethodGet, "/callback", nil)
	req.AddCookie(rec.Result().Cookies()[0])
	_, err := other.Get(req)
	assert.ErrorIs(t, err, ErrExtractSession)
}

func TestSessionExpired(t *testing.T) {
	codec := newTestCodec(t, time.Millisecond)

	rec := httptest.NewRecorder()
	require.NoError(t, codec.Set(rec, Session{CSRFToken: "x"}))
	time.Sleep(10 * time.Millisecond)

	req := httptest.NewRequest(http.MethodGet, "/callback", nil)
	req.AddCookie(rec.Result().Cookies()[0])
	_, err := codec.Get(req)
	assert.ErrorIs(t, err, ErrExtractSession)
}

func TestSessionClear(t *testing.T) {
	codec := newTestCodec(t, 5*time.Minute)

	rec := httptest.NewRecorder()
	codec.Clear(rec)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, testCookieName, cookies[0].Name)
	assert.Equal(t, -1, cookies[0].MaxAge)
	assert.Empty(t, cookies[0].Value)
}
