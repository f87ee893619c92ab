package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/firegate/firegate/internal/broker"
	jsonwriter "github.com/firegate/firegate/internal/json"
	"github.com/firegate/firegate/internal/log"
	"github.com/firegate/firegate/internal/servicecontext"
)

// MiddlewareFunc is a function that wraps an http.Handler
type MiddlewareFunc func(http.Handler) http.Handler

// ChainMiddleware chains multiple middleware functions
func ChainMiddleware(h http.Handler, middlewares ...MiddlewareFunc) http.Handler {
	for _, mw := range middlewares {
		h = mw(h)
	}
	return h
}

// NewCORSMiddleware adds CORS headers for the configured origins. An empty
// origin list allows all, which only happens when the client config carries
// no javascript_origins.
func NewCORSMiddleware(allowedOrigins []string) MiddlewareFunc {
	allowedMap := make(map[string]bool)
	for _, origin := range allowedOrigins {
		allowedMap[origin] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")

			if origin != "" && allowedMap[origin] {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Access-Control-Allow-Credentials", "true")
			} else if len(allowedOrigins) == 0 {
				w.Header().Set("Access-Control-Allow-Origin", "*")
			}

			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			w.Header().Set("Access-Control-Max-Age", "3600")

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusOK)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// NewBrokerAuthMiddleware gates a handler on a valid broker session. The
// resolved identity lands in the request context.
func NewBrokerAuthMiddleware(sessions broker.SessionVerifier) MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, err := broker.BearerToken(r)
			if err != nil {
				jsonwriter.WriteUnauthorized(w, "missing bearer token")
				return
			}

			identity, err := sessions.VerifySession(r.Context(), token)
			if err != nil {
				if errors.Is(err, broker.ErrMissingGoogleIdentity) {
					jsonwriter.WriteError(w, http.StatusForbidden, "forbidden", "session has no linked Google account")
					return
				}
				jsonwriter.WriteUnauthorized(w, "invalid session token")
				return
			}

			ctx := servicecontext.WithIdentity(r.Context(), identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// responseWriterDelegator wraps http.ResponseWriter to capture status and
// bytes written while delegating optional interfaces through Unwrap
type responseWriterDelegator struct {
	http.ResponseWriter
	status      int
	written     int
	wroteHeader bool
}

func wrapResponseWriter(w http.ResponseWriter) *responseWriterDelegator {
	return &responseWriterDelegator{
		ResponseWriter: w,
		status:         http.StatusOK,
	}
}

func (r *responseWriterDelegator) WriteHeader(code int) {
	if r.wroteHeader {
		return
	}
	r.status = code
	r.wroteHeader = true
	r.ResponseWriter.WriteHeader(code)
}

func (r *responseWriterDelegator) Write(b []byte) (int, error) {
	if !r.wroteHeader {
		r.WriteHeader(http.StatusOK)
	}
	n, err := r.ResponseWriter.Write(b)
	r.written += n
	return n, err
}

// Unwrap returns the underlying ResponseWriter for interface detection
func (r *responseWriterDelegator) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

// NewLoggingMiddleware logs one line per request at debug level. Query
// strings are dropped so callback parameters never reach the logs.
func NewLoggingMiddleware() MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			delegator := wrapResponseWriter(w)
			next.ServeHTTP(delegator, r)

			log.LogDebugWithFields("http", "request", map[string]any{
				"method":   r.Method,
				"path":     r.URL.Path,
				"status":   delegator.status,
				"bytes":    delegator.written,
				"duration": time.Since(start).String(),
			})
		})
	}
}
