package apierror

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/goccy/go-json"
)

// Envelope is the JSON body of every error response.
type Envelope struct {
	Error   string   `json:"error"`
	Code    Code     `json:"code"`
	Details *Details `json:"details,omitempty"`
}

// Details carries support data for an error response.
type Details struct {
	CorrelationID string `json:"correlationId,omitempty"`
	Field         string `json:"field,omitempty"`
}

// Reporter receives unexpected failures for out-of-band telemetry.
// Report must return without waiting for delivery.
type Reporter interface {
	Report(ctx context.Context, err error, correlationID string)
}

// Responder translates errors into error envelopes. It is the only place
// the gateway formats an error response.
type Responder struct {
	reporter Reporter
}

// NewResponder creates a Responder. A nil reporter disables telemetry.
func NewResponder(reporter Reporter) *Responder {
	return &Responder{reporter: reporter}
}

// Write renders err for the client. Errors outside the taxonomy become
// ERR_INTERNAL; their text is logged and reported, never sent.
func (rs *Responder) Write(w http.ResponseWriter, r *http.Request, correlationID string, err error) {
	apiErr, ok := As(err)
	if !ok {
		slog.Error("unhandled error",
			slog.String("correlation_id", correlationID),
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)
		if rs != nil && rs.reporter != nil {
			// The request context ends with the response; the report must not.
			rs.reporter.Report(context.WithoutCancel(r.Context()), err, correlationID)
		}
		apiErr = New(CodeInternal, "Internal server error")
	}

	if apiErr.RetryAfter > 0 {
		w.Header().Set("Retry-After", strconv.Itoa(apiErr.RetryAfter))
	}
	WriteEnvelope(w, apiErr.Status(), Envelope{
		Error: apiErr.Message,
		Code:  apiErr.Code,
		Details: &Details{
			CorrelationID: correlationID,
			Field:         apiErr.Field,
		},
	})
}

// WriteEnvelope writes env with the given status.
func WriteEnvelope(w http.ResponseWriter, status int, env Envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(env); err != nil {
		slog.Warn("write error envelope", slog.String("error", err.Error()))
	}
}
