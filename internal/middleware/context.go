package middleware

import (
	"context"
	"net"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/oriys/areca-gateway/internal/session"
)

type contextKey string

const requestContextKey contextKey = "request_context"

// CorrelationHeader echoes the correlation id on API responses.
const CorrelationHeader = "X-Correlation-Id"

// RequestContext is the per-request record shared by every stage. It lives
// for one request and is only touched by that request's goroutine.
type RequestContext struct {
	CorrelationID string
	// AllowedOrigin is the resolved CORS origin; empty when denied.
	AllowedOrigin string
	OriginDenied  bool
	Identity      session.Identity
	ClientAddr    string
	IsAPI         bool
	// SkipCORS is set by handlers whose output must pass through untouched.
	SkipCORS bool
	// Route labels the matched route for logs and metrics.
	Route string
}

// FromContext returns the request context, or nil outside the pipeline.
func FromContext(ctx context.Context) *RequestContext {
	rc, _ := ctx.Value(requestContextKey).(*RequestContext)
	return rc
}

// WithRequestContext stores rc in ctx.
func WithRequestContext(ctx context.Context, rc *RequestContext) context.Context {
	return context.WithValue(ctx, requestContextKey, rc)
}

// IsAPIPath reports whether path belongs to the JSON API.
func IsAPIPath(path string) bool {
	return path == "/api" || strings.HasPrefix(path, "/api/")
}

// Options are the hot-reloadable settings the pipeline reads per request.
type Options struct {
	CorrelationHeaders []string
	ClientIPHeader     string
	AllowedOrigins     []string
	ModelVersion       string
}

// OptionsFunc returns the settings in effect for the current request.
type OptionsFunc func() *Options

// Context creates the RequestContext: correlation id, client identity,
// client address and API classification.
func Context(opts OptionsFunc) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			o := opts()
			rc := &RequestContext{
				CorrelationID: correlationID(r.Header, o.CorrelationHeaders),
				Identity:      session.Resolve(r.Header),
				ClientAddr:    clientAddr(r, o.ClientIPHeader),
				IsAPI:         IsAPIPath(r.URL.Path),
			}
			if rc.IsAPI {
				w.Header().Set(CorrelationHeader, rc.CorrelationID)
			}
			next.ServeHTTP(w, r.WithContext(WithRequestContext(r.Context(), rc)))
		})
	}
}

// correlationID takes the first non-empty tracing header, then the trace id
// of a W3C traceparent, else a fresh UUID.
func correlationID(h http.Header, headers []string) string {
	for _, name := range headers {
		if v := strings.TrimSpace(h.Get(name)); v != "" {
			return v
		}
	}
	if id := extractTraceID(h.Get("traceparent")); id != "" {
		return id
	}
	return uuid.NewString()
}

// clientAddr returns the address used as the rate-limit key.
func clientAddr(r *http.Request, trustedHeader string) string {
	if trustedHeader != "" {
		if v := strings.TrimSpace(r.Header.Get(trustedHeader)); v != "" {
			return v
		}
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil && host != "" {
		return host
	}
	if r.RemoteAddr != "" {
		return r.RemoteAddr
	}
	return "unknown"
}
