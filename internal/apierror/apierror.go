// Package apierror defines the gateway's error taxonomy and the single
// boundary that turns errors into JSON error envelopes.
package apierror

import (
	"errors"
	"fmt"
	"net/http"
)

// Code is a stable machine-readable error code.
type Code string

const (
	CodeBadRequest          Code = "ERR_BAD_REQUEST"
	CodeTokenRequired       Code = "ERR_TOKEN_REQUIRED"
	CodeImageRequired       Code = "ERR_IMAGE_REQUIRED"
	CodeUploadPayload       Code = "ERR_UPLOAD_PAYLOAD"
	CodeCoordinatesRequired Code = "ERR_COORDINATES_REQUIRED"
	CodeOriginDenied        Code = "ERR_ORIGIN_DENIED"
	CodeRateLimited         Code = "ERR_RATE_LIMITED"
	CodeNotFound            Code = "ERR_NOT_FOUND"
	CodeInternal            Code = "ERR_INTERNAL"
)

// Status returns the HTTP status for the code.
func (c Code) Status() int {
	switch c {
	case CodeOriginDenied:
		return http.StatusForbidden
	case CodeNotFound:
		return http.StatusNotFound
	case CodeInternal:
		return http.StatusInternalServerError
	default:
		// Rate limiting is reported as a client error, not 429.
		return http.StatusBadRequest
	}
}

// Known reports whether c belongs to the taxonomy.
func (c Code) Known() bool {
	switch c {
	case CodeBadRequest, CodeTokenRequired, CodeImageRequired, CodeUploadPayload,
		CodeCoordinatesRequired, CodeOriginDenied, CodeRateLimited, CodeNotFound, CodeInternal:
		return true
	}
	return false
}

// Error is a failure the gateway reports to clients verbatim.
type Error struct {
	Code    Code
	Message string
	// Field names the offending input field, if any.
	Field string
	// RetryAfter is set for rate-limit rejections, in seconds.
	RetryAfter int
}

func (e *Error) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s (field %s)", e.Code, e.Message, e.Field)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Status returns the HTTP status for the error.
func (e *Error) Status() int {
	return e.Code.Status()
}

// New creates an Error with the given code and message.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Required creates a missing-field error.
func Required(code Code, message, field string) *Error {
	return &Error{Code: code, Message: message, Field: field}
}

// BadRequest reports a malformed request body.
func BadRequest(message string) *Error {
	return &Error{Code: CodeBadRequest, Message: message}
}

// NotFound reports an unmatched API route.
func NotFound() *Error {
	return &Error{Code: CodeNotFound, Message: "Not Found"}
}

// OriginDenied reports a CORS allowlist rejection.
func OriginDenied() *Error {
	return &Error{Code: CodeOriginDenied, Message: "Origin not allowed"}
}

// RateLimited reports a rate-limit rejection with the seconds until reset.
func RateLimited(retryAfter int) *Error {
	return &Error{
		Code:       CodeRateLimited,
		Message:    fmt.Sprintf("Rate limit exceeded. Retry in %ds", retryAfter),
		RetryAfter: retryAfter,
	}
}

// As extracts an *Error from err. Unknown errors yield false.
func As(err error) (*Error, bool) {
	var apiErr *Error
	if errors.As(err, &apiErr) && apiErr.Code.Known() {
		return apiErr, true
	}
	return nil, false
}
