// Package proxy serves every non-API path by forwarding it to the configured
// frontend origin.
package proxy

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httputil"
	"net/url"
	"time"

	"github.com/oriys/areca-gateway/internal/circuitbreaker"
	"github.com/oriys/areca-gateway/internal/metrics"
	"github.com/oriys/areca-gateway/internal/middleware"
)

var forwardingHeaders = []string{"Forwarded", "X-Forwarded-For", "X-Forwarded-Host", "X-Forwarded-Proto"}

// OriginFunc returns the frontend origin in effect, or "" when unset.
type OriginFunc func() string

// Frontend is the fallback handler for non-API paths.
type Frontend struct {
	origin    OriginFunc
	transport http.RoundTripper
	breaker   *circuitbreaker.Breaker
}

// NewFrontend creates the proxy. A nil transport uses a clone of
// http.DefaultTransport with the given response header timeout.
func NewFrontend(origin OriginFunc, transport http.RoundTripper, timeout time.Duration, breaker *circuitbreaker.Breaker) *Frontend {
	if transport == nil {
		t := http.DefaultTransport.(*http.Transport).Clone()
		if timeout > 0 {
			t.ResponseHeaderTimeout = timeout
		}
		transport = t
	}
	if breaker != nil {
		transport = &breakerTransport{base: transport, breaker: breaker}
	}
	return &Frontend{origin: origin, transport: transport, breaker: breaker}
}

// ServeHTTP implements the http.Handler interface. Responses pass through
// without CORS decoration.
func (f *Frontend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if rc := middleware.FromContext(r.Context()); rc != nil {
		rc.SkipCORS = true
		rc.Route = "frontend"
	}

	switch r.Method {
	case http.MethodGet, http.MethodHead:
	case http.MethodOptions:
		metrics.ProxyResponses.WithLabelValues("options").Inc()
		w.WriteHeader(http.StatusNoContent)
		return
	default:
		metrics.ProxyResponses.WithLabelValues("method_not_allowed").Inc()
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusMethodNotAllowed)
		io.WriteString(w, "Method Not Allowed")
		return
	}

	raw := f.origin()
	if raw == "" {
		metrics.ProxyResponses.WithLabelValues("fallback").Inc()
		writeFallback(w, http.StatusOK)
		return
	}
	target, err := url.Parse(raw)
	if err != nil || target.Host == "" {
		slog.Error("invalid frontend origin", slog.String("origin", raw))
		metrics.ProxyResponses.WithLabelValues("upstream_error").Inc()
		writeFallback(w, http.StatusBadGateway)
		return
	}

	rp := &httputil.ReverseProxy{
		Rewrite: func(pr *httputil.ProxyRequest) {
			pr.Out.URL.Scheme = target.Scheme
			pr.Out.URL.Host = target.Host
			pr.Out.URL.Path = pr.In.URL.Path
			pr.Out.URL.RawPath = pr.In.URL.RawPath
			pr.Out.URL.RawQuery = pr.In.URL.RawQuery
			pr.Out.Host = target.Host
			// Rewrite strips forwarding headers; keep what the client sent.
			for _, h := range forwardingHeaders {
				if v := pr.In.Header.Values(h); len(v) > 0 {
					pr.Out.Header[h] = v
				}
			}
		},
		Transport: f.transport,
		ErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
			if r.Context().Err() != nil {
				metrics.ProxyResponses.WithLabelValues("client_aborted").Inc()
				slog.Debug("frontend request abandoned by client",
					slog.String("path", r.URL.Path),
					slog.String("error", err.Error()),
				)
				writeFallback(w, http.StatusBadGateway)
				return
			}
			outcome := "upstream_error"
			if circuitbreaker.IsOpen(err) {
				outcome = "breaker_open"
			}
			slog.Error("frontend proxy failed",
				slog.String("target", target.Host),
				slog.String("path", r.URL.Path),
				slog.String("error", err.Error()),
			)
			metrics.ProxyResponses.WithLabelValues(outcome).Inc()
			writeFallback(w, http.StatusBadGateway)
		},
		ModifyResponse: func(resp *http.Response) error {
			metrics.ProxyResponses.WithLabelValues("proxied").Inc()
			return nil
		},
	}
	rp.ServeHTTP(w, r)
}

func writeFallback(w http.ResponseWriter, status int) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	io.WriteString(w, fallbackHTML)
}

// BreakerState returns the breaker state, or "disabled".
func (f *Frontend) BreakerState() string {
	if f.breaker == nil {
		return "disabled"
	}
	return f.breaker.State()
}

// breakerTransport counts transport failures against the breaker. Upstream
// HTTP error statuses are passed through and do not trip it, and neither do
// requests the client abandoned or whose deadline expired.
type breakerTransport struct {
	base    http.RoundTripper
	breaker *circuitbreaker.Breaker
}

func (t *breakerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	var (
		resp      *http.Response
		clientErr error
	)
	err := t.breaker.Execute(func() error {
		var err error
		resp, err = t.base.RoundTrip(req)
		if err != nil && req.Context().Err() != nil {
			clientErr = err
			return nil
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	if clientErr != nil {
		return nil, clientErr
	}
	return resp, nil
}
