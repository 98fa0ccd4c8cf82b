package middleware

import (
	"net/http"

	"github.com/oriys/areca-gateway/internal/apierror"
	"github.com/oriys/areca-gateway/internal/cors"
)

// CORS resolves the request origin against the allowlist. A request that
// names a disallowed origin is refused with ERR_ORIGIN_DENIED before any
// handler runs. API responses are decorated with CORS headers when they are
// written, unless the handler set SkipCORS.
func CORS(opts OptionsFunc, rs *apierror.Responder) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rc := FromContext(r.Context())
			origin := r.Header.Get("Origin")
			allowed, ok := cors.Resolve(origin, opts().AllowedOrigins)

			if !ok && origin != "" {
				if rc != nil {
					rc.OriginDenied = true
					rc.Route = "origin_denied"
				}
				w.Header().Add("Vary", "Origin")
				rs.Write(w, r, correlationOf(rc), apierror.OriginDenied())
				return
			}
			if rc == nil {
				next.ServeHTTP(w, r)
				return
			}
			rc.AllowedOrigin = allowed
			if !rc.IsAPI {
				next.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(&corsWriter{ResponseWriter: w, rc: rc}, r)
		})
	}
}

// corsWriter adds CORS headers just before the response header is sent.
type corsWriter struct {
	http.ResponseWriter
	rc        *RequestContext
	decorated bool
}

func (w *corsWriter) decorate() {
	if w.decorated {
		return
	}
	w.decorated = true
	if !w.rc.SkipCORS {
		cors.Decorate(w.Header(), w.rc.AllowedOrigin)
	}
}

func (w *corsWriter) WriteHeader(code int) {
	w.decorate()
	w.ResponseWriter.WriteHeader(code)
}

func (w *corsWriter) Write(b []byte) (int, error) {
	w.decorate()
	return w.ResponseWriter.Write(b)
}

func (w *corsWriter) Unwrap() http.ResponseWriter { return w.ResponseWriter }

func correlationOf(rc *RequestContext) string {
	if rc == nil {
		return ""
	}
	return rc.CorrelationID
}
