// Package cors resolves the permitted origin of a request against an
// allowlist and decorates API responses with CORS headers.
package cors

import (
	"net/http"
	"slices"
	"strings"
)

const (
	allowHeaders = "Content-Type, Authorization, X-Requested-With, X-Correlation-Id, sb-token"
	allowMethods = "GET, POST, OPTIONS"
)

// Resolve returns the origin to advertise for a request. ok is false when a
// non-empty allowlist does not contain origin.
//
// Without an Origin header the first allowlist entry (or "*") is returned.
// Without an allowlist any origin is echoed back.
func Resolve(origin string, allowlist []string) (allowed string, ok bool) {
	if origin == "" {
		if len(allowlist) > 0 {
			return allowlist[0], true
		}
		return "*", true
	}
	if len(allowlist) == 0 || slices.Contains(allowlist, origin) {
		return origin, true
	}
	return "", false
}

// ParseAllowlist splits a comma-separated origin list, dropping blanks.
func ParseAllowlist(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if v := strings.TrimSpace(part); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// Decorate sets the CORS response headers for origin. An empty origin is
// advertised as "*".
func Decorate(h http.Header, origin string) {
	if origin == "" {
		origin = "*"
	}
	h.Set("Access-Control-Allow-Origin", origin)
	h.Set("Access-Control-Allow-Credentials", "true")
	h.Set("Access-Control-Allow-Headers", allowHeaders)
	h.Set("Access-Control-Allow-Methods", allowMethods)
	h.Set("Vary", "Origin")
}
