package proxy

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/oriys/areca-gateway/internal/circuitbreaker"
	"github.com/oriys/areca-gateway/internal/middleware"
)

func staticOrigin(s string) OriginFunc { return func() string { return s } }

func serve(t *testing.T, h http.Handler, req *http.Request) (*httptest.ResponseRecorder, *middleware.RequestContext) {
	t.Helper()
	rc := &middleware.RequestContext{}
	req = req.WithContext(middleware.WithRequestContext(req.Context(), rc))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr, rc
}

func TestFrontendFallbackWithoutOrigin(t *testing.T) {
	f := NewFrontend(staticOrigin(""), nil, time.Second, nil)
	rr, rc := serve(t, f, httptest.NewRequest(http.MethodGet, "/", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if !strings.HasPrefix(rr.Header().Get("Content-Type"), "text/html") {
		t.Errorf("expected HTML, got %q", rr.Header().Get("Content-Type"))
	}
	if !strings.Contains(rr.Body.String(), "/api/health") {
		t.Error("expected informational page")
	}
	if !rc.SkipCORS || rc.Route != "frontend" {
		t.Errorf("expected SkipCORS and frontend route, got %+v", rc)
	}
}

func TestFrontendMethods(t *testing.T) {
	f := NewFrontend(staticOrigin(""), nil, time.Second, nil)

	rr, _ := serve(t, f, httptest.NewRequest(http.MethodOptions, "/anything", nil))
	if rr.Code != http.StatusNoContent {
		t.Errorf("OPTIONS: expected 204, got %d", rr.Code)
	}

	for _, m := range []string{http.MethodPost, http.MethodPut, http.MethodDelete} {
		rr, _ := serve(t, f, httptest.NewRequest(m, "/", nil))
		if rr.Code != http.StatusMethodNotAllowed {
			t.Errorf("%s: expected 405, got %d", m, rr.Code)
		}
		if rr.Body.String() != "Method Not Allowed" {
			t.Errorf("%s: unexpected body %q", m, rr.Body.String())
		}
	}
}

func TestFrontendForwardsPathQueryAndHeaders(t *testing.T) {
	var got *http.Request
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Clone(r.Context())
		w.Header().Set("X-Upstream", "yes")
		w.WriteHeader(http.StatusTeapot)
		io.WriteString(w, "hello from frontend")
	}))
	defer upstream.Close()

	f := NewFrontend(staticOrigin(upstream.URL), nil, time.Second, nil)
	req := httptest.NewRequest(http.MethodGet, "http://gateway.example/dashboard/prices?lang=kn", nil)
	req.Header.Set("Accept-Language", "kn-IN")
	req.Header.Set("X-Forwarded-For", "198.51.100.4")
	rr, _ := serve(t, f, req)

	if rr.Code != http.StatusTeapot {
		t.Fatalf("expected upstream status to pass through, got %d", rr.Code)
	}
	if rr.Body.String() != "hello from frontend" || rr.Header().Get("X-Upstream") != "yes" {
		t.Errorf("upstream response not relayed: %q", rr.Body.String())
	}
	if rr.Header().Get("Access-Control-Allow-Origin") != "" {
		t.Error("proxied responses must not gain CORS headers")
	}
	if got == nil {
		t.Fatal("upstream not called")
	}
	if got.URL.Path != "/dashboard/prices" || got.URL.RawQuery != "lang=kn" {
		t.Errorf("unexpected upstream URL %s", got.URL)
	}
	u, _ := url.Parse(upstream.URL)
	if got.Host != u.Host {
		t.Errorf("expected Host %q, got %q", u.Host, got.Host)
	}
	if got.Header.Get("Accept-Language") != "kn-IN" {
		t.Error("request headers not forwarded")
	}
	if got.Header.Get("X-Forwarded-For") != "198.51.100.4" {
		t.Errorf("expected client forwarding header kept, got %q", got.Header.Get("X-Forwarded-For"))
	}
}

func TestFrontendDoesNotFollowRedirects(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/login", http.StatusFound)
	}))
	defer upstream.Close()

	f := NewFrontend(staticOrigin(upstream.URL), nil, time.Second, nil)
	rr, _ := serve(t, f, httptest.NewRequest(http.MethodGet, "/", nil))
	if rr.Code != http.StatusFound {
		t.Fatalf("expected 302 relayed, got %d", rr.Code)
	}
	if rr.Header().Get("Location") != "/login" {
		t.Errorf("expected Location /login, got %q", rr.Header().Get("Location"))
	}
}

type errTransport struct{ calls int }

func (e *errTransport) RoundTrip(*http.Request) (*http.Response, error) {
	e.calls++
	return nil, errors.New("dial tcp: connection refused")
}

func TestFrontendUnreachableServesFallback502(t *testing.T) {
	tr := &errTransport{}
	f := NewFrontend(staticOrigin("https://frontend.invalid"), tr, time.Second, nil)
	rr, _ := serve(t, f, httptest.NewRequest(http.MethodGet, "/", nil))

	if rr.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "<h1>Areca gateway</h1>") {
		t.Error("expected fallback page")
	}
}

func TestFrontendBreakerStopsDialing(t *testing.T) {
	tr := &errTransport{}
	b := circuitbreaker.New("frontend-test", circuitbreaker.Config{FailureThreshold: 2, HalfOpenRequests: 1, OpenTimeout: time.Minute})
	f := NewFrontend(staticOrigin("https://frontend.invalid"), tr, time.Second, b)

	for i := 0; i < 5; i++ {
		rr, _ := serve(t, f, httptest.NewRequest(http.MethodGet, "/", nil))
		if rr.Code != http.StatusBadGateway {
			t.Fatalf("request %d: expected 502, got %d", i, rr.Code)
		}
	}
	if tr.calls != 2 {
		t.Errorf("expected breaker to stop dialing after 2 failures, got %d calls", tr.calls)
	}
	if f.BreakerState() != "open" {
		t.Errorf("expected open breaker, got %s", f.BreakerState())
	}
}

// ctxTransport fails only when the request context is already done, the way
// http.Transport does for abandoned requests.
type ctxTransport struct{ calls int }

func (c *ctxTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	c.calls++
	if err := req.Context().Err(); err != nil {
		return nil, err
	}
	return &http.Response{
		StatusCode: http.StatusOK,
		Header:     http.Header{"Content-Type": {"text/html"}},
		Body:       io.NopCloser(strings.NewReader("<html>app</html>")),
		Request:    req,
	}, nil
}

func TestFrontendClientAbortsDoNotTripBreaker(t *testing.T) {
	tr := &ctxTransport{}
	b := circuitbreaker.New("frontend-aborts", circuitbreaker.Config{FailureThreshold: 2, HalfOpenRequests: 1, OpenTimeout: time.Minute})
	f := NewFrontend(staticOrigin("https://frontend.invalid"), tr, time.Second, b)

	aborted := []struct {
		name string
		ctx  func() (context.Context, context.CancelFunc)
	}{
		{"canceled", func() (context.Context, context.CancelFunc) {
			ctx, cancel := context.WithCancel(context.Background())
			cancel()
			return ctx, cancel
		}},
		{"deadline", func() (context.Context, context.CancelFunc) {
			return context.WithDeadline(context.Background(), time.Now().Add(-time.Millisecond))
		}},
	}
	for _, tt := range aborted {
		t.Run(tt.name, func(t *testing.T) {
			for i := 0; i < 5; i++ {
				ctx, cancel := tt.ctx()
				req := httptest.NewRequest(http.MethodGet, "/dashboard", nil).WithContext(ctx)
				serve(t, f, req)
				cancel()
			}
			if f.BreakerState() != "closed" {
				t.Fatalf("expected closed breaker after client aborts, got %s", f.BreakerState())
			}
		})
	}

	rr, _ := serve(t, f, httptest.NewRequest(http.MethodGet, "/dashboard", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected healthy frontend to be proxied, got %d", rr.Code)
	}
	if rr.Body.String() != "<html>app</html>" {
		t.Errorf("unexpected body %q", rr.Body.String())
	}
	if tr.calls != 11 {
		t.Errorf("expected every request to reach the transport, got %d calls", tr.calls)
	}
}
