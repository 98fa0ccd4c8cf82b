package middleware

import (
	"net/http"
	"time"

	"github.com/oriys/areca-gateway/internal/metrics"
)

// Metrics returns a middleware that records Prometheus request metrics,
// labelled by matched route rather than raw path.
func Metrics() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			defer func() {
				route := "unmatched"
				if rc := FromContext(r.Context()); rc != nil && rc.Route != "" {
					route = rc.Route
				}
				metrics.RecordRequest(r.Method, route, sw.status, time.Since(start))
			}()
			next.ServeHTTP(sw, r)
		})
	}
}
