package gateway

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/goccy/go-json"

	"github.com/oriys/areca-gateway/internal/apierror"
	"github.com/oriys/areca-gateway/internal/validation"
)

// HandlerFunc is the signature shared by every API endpoint. Handlers return
// either a response or an error; errors are rendered by the responder.
type HandlerFunc func(ctx context.Context, r *http.Request) (*Response, error)

// Response is a handler result. Body is encoded as JSON unless nil.
type Response struct {
	Status  int
	Header  http.Header
	Body    any
	Cookies []*http.Cookie
}

// JSON returns a response carrying body with the given status.
func JSON(status int, body any) *Response {
	return &Response{Status: status, Header: http.Header{}, Body: body}
}

// NoContent returns an empty 204 response.
func NoContent() *Response {
	return &Response{Status: http.StatusNoContent, Header: http.Header{}}
}

// encode renders resp into w. Encoding happens before any header is sent so
// a failure can still be reported as an error envelope.
func encode(w http.ResponseWriter, resp *Response) error {
	var payload []byte
	if resp.Body != nil {
		var err error
		payload, err = json.Marshal(resp.Body)
		if err != nil {
			return err
		}
	}

	h := w.Header()
	for k, vs := range resp.Header {
		h[k] = append([]string(nil), vs...)
	}
	for _, c := range resp.Cookies {
		http.SetCookie(w, c)
	}
	status := resp.Status
	if status == 0 {
		status = http.StatusOK
	}
	if payload == nil {
		w.WriteHeader(status)
		return nil
	}
	h.Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(append(payload, '\n')); err != nil {
		slog.Debug("write response", slog.String("error", err.Error()))
	}
	return nil
}

// bodyRule names the error raised when a request body lacks a required field.
type bodyRule struct {
	code    apierror.Code
	message string
}

// decodeBody reads a JSON object into dst and validates its tags. Malformed
// JSON is ERR_BAD_REQUEST; missing or mistyped fields are the rule's error.
func decodeBody(r *http.Request, dst any, rule bodyRule) error {
	if r.Body == nil {
		return apierror.BadRequest("Invalid JSON payload")
	}
	raw, err := io.ReadAll(r.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return apierror.BadRequest("Request body too large")
		}
		return apierror.BadRequest("Invalid JSON payload")
	}
	if !json.Valid(raw) {
		return apierror.BadRequest("Invalid JSON payload")
	}
	// Well-formed JSON of the wrong shape is a missing field, not a bad body.
	if err := json.Unmarshal(raw, dst); err != nil {
		var field string
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			field = lastSegment(typeErr.Field)
		}
		return apierror.Required(rule.code, rule.message, field)
	}
	if err := validation.Struct(dst); err != nil {
		var verr *validation.Error
		if errors.As(err, &verr) && len(verr.Fields) > 0 {
			return apierror.Required(rule.code, rule.message, verr.Fields[0].Namespace)
		}
		return err
	}
	return nil
}

func lastSegment(field string) string {
	if i := strings.LastIndexByte(field, '.'); i >= 0 {
		return field[i+1:]
	}
	return field
}
