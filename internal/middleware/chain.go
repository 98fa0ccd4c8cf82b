package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/oriys/areca-gateway/internal/apierror"
)

// Middleware is a function that wraps an http.Handler.
type Middleware func(http.Handler) http.Handler

// Chain applies middlewares to the handler in reverse order so that the
// first middleware in the list is the outermost (executed first).
// Each middleware is wrapped with panic recovery; a recovered panic is
// answered through rs as ERR_INTERNAL.
func Chain(handler http.Handler, rs *apierror.Responder, middlewares ...Middleware) http.Handler {
	for i := len(middlewares) - 1; i >= 0; i-- {
		next := middlewares[i](handler)
		handler = recoverWrap(next, rs)
	}
	return handler
}

// PanicError carries a recovered panic value and the stack it was raised on.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string { return fmt.Sprintf("panic: %v", e.Value) }

// StackTrace returns the goroutine stack captured at recovery.
func (e *PanicError) StackTrace() string { return string(e.Stack) }

// recoverWrap wraps a handler with panic recovery.
func recoverWrap(h http.Handler, rs *apierror.Responder) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			v := recover()
			if v == nil {
				return
			}
			if v == http.ErrAbortHandler {
				panic(v)
			}
			err := &PanicError{Value: v, Stack: debug.Stack()}
			var correlationID string
			if rc := FromContext(r.Context()); rc != nil {
				correlationID = rc.CorrelationID
			}
			rs.Write(w, r, correlationID, err)
		}()
		h.ServeHTTP(w, r)
	})
}
