package middleware

import (
	"encoding/hex"
	"strings"
)

const zeroTraceID = "00000000000000000000000000000000"

// extractTraceID returns the trace id of a W3C traceparent header value
// ("version-traceID-spanID-flags"), or "" when the value is malformed.
func extractTraceID(traceparent string) string {
	parts := strings.Split(strings.TrimSpace(traceparent), "-")
	if len(parts) != 4 {
		return ""
	}
	id := strings.ToLower(parts[1])
	if len(id) != 32 || id == zeroTraceID {
		return ""
	}
	if _, err := hex.DecodeString(id); err != nil {
		return ""
	}
	return id
}
