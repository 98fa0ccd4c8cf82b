package session

import (
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"strings"
)

const (
	// CookieName carries the opaque session token issued by login.
	CookieName = "sb_token"
	// IdentityHeader is consulted when no session cookie is present.
	IdentityHeader = "X-User-Id"
	// Anonymous is the identity of requests that carry neither.
	Anonymous = "anonymous"
	// MaxAge is the session cookie lifetime in seconds (7 days).
	MaxAge = 604800
)

// Headers is the read side of a header collection. http.Header satisfies it.
type Headers interface {
	Get(key string) string
}

// Identity describes who a request claims to be. The token is never
// validated here.
type Identity struct {
	Subject string
	Source  string // "cookie", "header" or "anonymous"
}

// LogSubject is the subject as it may appear in logs. Session tokens are
// replaced by a short SHA-256 fingerprint; header ids and anonymous pass
// through.
func (id Identity) LogSubject() string {
	if id.Source != "cookie" {
		return id.Subject
	}
	sum := sha256.Sum256([]byte(id.Subject))
	return "sb:" + hex.EncodeToString(sum[:6])
}

// Resolve derives the client identity from request headers: the sb_token
// cookie first, then X-User-Id, else anonymous.
func Resolve(h Headers) Identity {
	if h == nil {
		return Identity{Subject: Anonymous, Source: "anonymous"}
	}
	if token := tokenFromCookieHeader(h.Get("Cookie")); token != "" {
		return Identity{Subject: token, Source: "cookie"}
	}
	if id := strings.TrimSpace(h.Get(IdentityHeader)); id != "" {
		return Identity{Subject: id, Source: "header"}
	}
	return Identity{Subject: Anonymous, Source: "anonymous"}
}

// IdentityOf is Resolve reduced to the subject string.
func IdentityOf(h Headers) string {
	return Resolve(h).Subject
}

func tokenFromCookieHeader(line string) string {
	if line == "" {
		return ""
	}
	cookies, err := http.ParseCookie(line)
	if err != nil {
		// Fall back to a lenient scan so one malformed pair does not hide the token.
		for _, part := range strings.Split(line, ";") {
			name, value, ok := strings.Cut(strings.TrimSpace(part), "=")
			if ok && name == CookieName && value != "" {
				return value
			}
		}
		return ""
	}
	for _, c := range cookies {
		if c.Name == CookieName && c.Value != "" {
			return c.Value
		}
	}
	return ""
}

// NewCookie builds the session cookie for token. Secure is set when the
// request arrived over TLS.
func NewCookie(token string, secure bool) *http.Cookie {
	return &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   MaxAge,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
}

// IsTLS reports whether r reached the gateway over TLS, directly or via a
// terminating proxy that sets X-Forwarded-Proto.
func IsTLS(r *http.Request) bool {
	if r.TLS != nil {
		return true
	}
	return strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https")
}
