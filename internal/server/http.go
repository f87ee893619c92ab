// Package server wires the HTTP surface: the browser-facing authorization
// flow and the broker-gated token management endpoints.
package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/firegate/firegate/internal/broker"
	"github.com/firegate/firegate/internal/config"
	"github.com/firegate/firegate/internal/googleclient"
	jsonwriter "github.com/firegate/firegate/internal/json"
	"github.com/firegate/firegate/internal/log"
	"github.com/firegate/firegate/internal/session"
	"github.com/firegate/firegate/internal/verifier"
)

// HTTPServer manages the HTTP server lifecycle
type HTTPServer struct {
	server *http.Server
}

// NewHTTPServer creates a new HTTP server with the given handler and address
func NewHTTPServer(handler http.Handler, addr string) *HTTPServer {
	return &HTTPServer{
		server: &http.Server{
			Addr:    addr,
			Handler: handler,
		},
	}
}

// Start starts the HTTP server
func (h *HTTPServer) Start() error {
	log.LogInfoWithFields("http", "HTTP server starting", map[string]any{
		"addr": h.server.Addr,
	})

	if err := h.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop gracefully stops the HTTP server
func (h *HTTPServer) Stop(ctx context.Context) error {
	log.LogInfoWithFields("http", "HTTP server stopping", map[string]any{
		"addr": h.server.Addr,
	})

	if err := h.server.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	log.LogInfoWithFields("http", "HTTP server stopped", map[string]any{
		"addr": h.server.Addr,
	})
	return nil
}

// IndexHandler reports service metadata at the root path
type IndexHandler struct {
	version string
}

// NewIndexHandler creates an index handler
func NewIndexHandler(version string) *IndexHandler {
	return &IndexHandler{version: version}
}

// ServeHTTP implements http.Handler for the index route
func (h *IndexHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	_ = jsonwriter.Write(w, map[string]string{
		"service": "firegate",
		"version": h.version,
	})
}

// HealthHandler handles health check requests
type HealthHandler struct{}

// NewHealthHandler creates a new health handler
func NewHealthHandler() *HealthHandler {
	return &HealthHandler{}
}

// ServeHTTP implements http.Handler for health checks
func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

// NewRouter assembles the full handler tree.
func NewRouter(
	cfg config.Config,
	version string,
	client *googleclient.Client,
	codec session.Codec,
	sessions broker.SessionVerifier,
	idTokens verifier.IdentityVerifier,
) http.Handler {
	mux := http.NewServeMux()

	oauthHandlers := NewOAuthHandlers(client, codec, cfg.RedirectURIPath)
	mux.HandleFunc("/authorize", oauthHandlers.AuthorizeHandler)
	mux.HandleFunc(cfg.RedirectURIPath, oauthHandlers.CallbackHandler)

	tokenHandlers := NewTokenHandlers(client, idTokens)
	brokerAuth := NewBrokerAuthMiddleware(sessions)
	mux.Handle("/token", ChainMiddleware(http.HandlerFunc(tokenHandlers.TokenHandler), brokerAuth))
	mux.Handle("/revoke", ChainMiddleware(http.HandlerFunc(tokenHandlers.RevokeHandler), brokerAuth))
	mux.Handle("/introspect", ChainMiddleware(http.HandlerFunc(tokenHandlers.IntrospectHandler), brokerAuth))

	mux.Handle("/health", NewHealthHandler())
	mux.Handle("/{$}", NewIndexHandler(version))

	return ChainMiddleware(mux,
		NewLoggingMiddleware(),
		NewCORSMiddleware(cfg.AllowedOrigins),
	)
}
