package middleware

import (
	"context"
	"net/http"

	"github.com/oriys/areca-gateway/internal/apierror"
)

// Enforcer admits or rejects one request for a client address.
type Enforcer interface {
	Enforce(ctx context.Context, addr string) error
}

// RateLimit enforces the per-address limit. Rejections are written through
// rs; a nil enforcer disables the stage.
func RateLimit(limiter Enforcer, rs *apierror.Responder) Middleware {
	return func(next http.Handler) http.Handler {
		if limiter == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rc := FromContext(r.Context())
			addr := "unknown"
			if rc != nil {
				addr = rc.ClientAddr
			}
			if err := limiter.Enforce(r.Context(), addr); err != nil {
				if rc != nil {
					rc.Route = "rate_limited"
				}
				rs.Write(w, r, correlationOf(rc), err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
