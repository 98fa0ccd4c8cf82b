package middleware

import (
	"log/slog"
	"net/http"
	"time"
)

// statusWriter captures the response status code.
type statusWriter struct {
	http.ResponseWriter
	status  int
	written bool
}

func (w *statusWriter) WriteHeader(code int) {
	if !w.written {
		w.status = code
		w.written = true
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Write(b []byte) (int, error) {
	if !w.written {
		w.status = http.StatusOK
		w.written = true
	}
	return w.ResponseWriter.Write(b)
}

func (w *statusWriter) Unwrap() http.ResponseWriter { return w.ResponseWriter }

// Logging emits exactly one request.complete line per request, including
// requests that end in an error or a recovered panic.
func Logging(opts OptionsFunc) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}

			defer func() {
				attrs := []slog.Attr{
					slog.String("event", "request.complete"),
					slog.String("endpoint", r.URL.Path),
					slog.String("method", r.Method),
					slog.Int("status", sw.status),
					slog.Int64("durationMs", time.Since(start).Milliseconds()),
				}
				if rc := FromContext(r.Context()); rc != nil {
					attrs = append(attrs,
						slog.String("userId", rc.Identity.LogSubject()),
						slog.String("identitySource", rc.Identity.Source),
						slog.String("correlationId", rc.CorrelationID),
						slog.String("route", rc.Route),
					)
				}
				if mv := opts().ModelVersion; mv != "" {
					attrs = append(attrs, slog.String("modelVersion", mv))
				}
				if ray := r.Header.Get("CF-Ray"); ray != "" {
					attrs = append(attrs, slog.String("cfRay", ray))
				}
				slog.LogAttrs(r.Context(), slog.LevelInfo, "request.complete", attrs...)
			}()

			next.ServeHTTP(sw, r)
		})
	}
}
