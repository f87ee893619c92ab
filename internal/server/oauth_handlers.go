package server

import (
	"net/http"
	"net/url"

	"github.com/firegate/firegate/internal/authparams"
	"github.com/firegate/firegate/internal/googleclient"
	jsonwriter "github.com/firegate/firegate/internal/json"
	"github.com/firegate/firegate/internal/log"
	"github.com/firegate/firegate/internal/session"
	"github.com/firegate/firegate/internal/urlutil"
)

// OAuthHandlers implements the browser-facing half of the flow: starting an
// authorization and receiving Google's callback.
type OAuthHandlers struct {
	client          *googleclient.Client
	codec           session.Codec
	redirectURIPath string
}

// NewOAuthHandlers creates the authorization flow handlers
func NewOAuthHandlers(client *googleclient.Client, codec session.Codec, redirectURIPath string) *OAuthHandlers {
	return &OAuthHandlers{
		client:          client,
		codec:           codec,
		redirectURIPath: redirectURIPath,
	}
}

// AuthorizeHandler starts an authorization flow. The caller chooses scopes
// and optional parameters through the query string; where the browser ends
// up afterwards comes from redirect_uri or, failing that, the Referer.
func (h *OAuthHandlers) AuthorizeHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonwriter.WriteError(w, http.StatusMethodNotAllowed, "method_not_allowed", "Method not allowed")
		return
	}

	redirectTo, ok := redirectTarget(r)
	if !ok {
		jsonwriter.WriteBadRequest(w, "request is missing a valid redirect_uri query param or Referer header")
		return
	}

	query := r.URL.Query()

	// absent scope means base scopes only; a present-but-empty one is an error
	var scopes authparams.ScopeList
	if values, ok := query["scope"]; ok {
		var err error
		scopes, err = authparams.ParseScopeValues(values)
		if err != nil {
			jsonwriter.WriteBadRequest(w, err.Error())
			return
		}
	}
	extra, err := authparams.ParseExtraParams(query.Get)
	if err != nil {
		jsonwriter.WriteBadRequest(w, err.Error())
		return
	}

	authRequest, err := h.client.AuthorizationURL(scopes, extra, h.redirectURI(r))
	if err != nil {
		log.LogErrorWithFields("oauth", "failed to build authorization URL", map[string]any{
			"err": err.Error(),
		})
		jsonwriter.WriteInternalServerError(w, "failed to build authorization URL")
		return
	}

	err = h.codec.Set(w, session.Session{
		PKCEVerifier: authRequest.PKCEVerifier,
		CSRFToken:    authRequest.CSRFToken,
		RedirectTo:   redirectTo,
		ExtraParams:  extra,
	})
	if err != nil {
		log.LogErrorWithFields("oauth", "failed to write session cookie", map[string]any{
			"err": err.Error(),
		})
		jsonwriter.WriteInternalServerError(w, "failed to establish session")
		return
	}

	http.Redirect(w, r, authRequest.URL, http.StatusFound)
}

// CallbackHandler receives Google's redirect. A session cookie that fails
// to decode is the only direct HTTP error; every later failure rides back
// to the caller's redirect target in the URL fragment.
func (h *OAuthHandlers) CallbackHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonwriter.WriteError(w, http.StatusMethodNotAllowed, "method_not_allowed", "Method not allowed")
		return
	}

	sess, err := h.codec.Get(r)
	if err != nil {
		log.LogWarnWithFields("oauth", "callback without a valid session", map[string]any{
			"err": err.Error(),
		})
		jsonwriter.WriteBadRequest(w, "failed to extract auth info")
		return
	}
	h.codec.Clear(w)

	query := r.URL.Query()
	exchangeConfig, err := googleclient.NewExchangeConfig(
		query.Get("code"),
		query.Get("state"),
		sess.CSRFToken,
		sess.PKCEVerifier,
		sess.RedirectTo,
		h.redirectURI(r),
		sess.ExtraParams,
	)
	if err != nil {
		result := googleclient.NewErrorResult(sess.RedirectTo, err.Error())
		http.Redirect(w, r, result.RedirectURL(), http.StatusFound)
		return
	}

	result := h.client.ExchangeAuthorizationCode(r.Context(), exchangeConfig)
	http.Redirect(w, r, result.RedirectURL(), http.StatusFound)
}

// redirectURI rebuilds the OAuth redirect URI Google was sent to, from the
// incoming request's host.
func (h *OAuthHandlers) redirectURI(r *http.Request) string {
	return urlutil.MustJoinPath(requestScheme(r)+"://"+r.Host, h.redirectURIPath)
}

func requestScheme(r *http.Request) string {
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		return proto
	}
	if r.TLS != nil {
		return "https"
	}
	return "http"
}

// redirectTarget resolves where the browser should land after the flow:
// the redirect_uri query param (redirect_to is accepted as an alias), else
// the Referer. Relative URLs are rejected.
func redirectTarget(r *http.Request) (string, bool) {
	query := r.URL.Query()
	for _, candidate := range []string{query.Get("redirect_uri"), query.Get("redirect_to"), r.Referer()} {
		if candidate == "" {
			continue
		}
		parsed, err := url.Parse(candidate)
		if err != nil {
			continue
		}
		if (parsed.Scheme == "http" || parsed.Scheme == "https") && parsed.Host != "" {
			return candidate, true
		}
	}
	return "", false
}
