package session

import (
	"crypto/tls"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

type mapHeaders map[string]string

func (m mapHeaders) Get(key string) string { return m[key] }

func TestResolve(t *testing.T) {
	tests := []struct {
		name    string
		headers Headers
		subject string
		source  string
	}{
		{"cookie wins", mapHeaders{"Cookie": "theme=dark; sb_token=abc123", IdentityHeader: "u-9"}, "abc123", "cookie"},
		{"header fallback", mapHeaders{IdentityHeader: "u-9"}, "u-9", "header"},
		{"other cookies only", mapHeaders{"Cookie": "theme=dark", IdentityHeader: "u-9"}, "u-9", "header"},
		{"empty token ignored", mapHeaders{"Cookie": "sb_token="}, Anonymous, "anonymous"},
		{"nothing", mapHeaders{}, Anonymous, "anonymous"},
		{"nil headers", nil, Anonymous, "anonymous"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Resolve(tt.headers)
			if got.Subject != tt.subject || got.Source != tt.source {
				t.Errorf("Resolve() = %+v, want subject %q source %q", got, tt.subject, tt.source)
			}
		})
	}
}

func TestLogSubject(t *testing.T) {
	tests := []struct {
		name string
		id   Identity
		want string
	}{
		// sha256("abc123") = 6ca13d52ca70...
		{"cookie token fingerprinted", Identity{Subject: "abc123", Source: "cookie"}, "sb:6ca13d52ca70"},
		{"header id kept", Identity{Subject: "u-9", Source: "header"}, "u-9"},
		{"anonymous kept", Identity{Subject: Anonymous, Source: "anonymous"}, Anonymous},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.id.LogSubject(); got != tt.want {
				t.Errorf("LogSubject() = %q, want %q", got, tt.want)
			}
		})
	}

	a := Identity{Subject: "token-a", Source: "cookie"}.LogSubject()
	b := Identity{Subject: "token-b", Source: "cookie"}.LogSubject()
	if a == b {
		t.Errorf("distinct tokens share fingerprint %q", a)
	}
	if strings.Contains(a, "token-a") {
		t.Errorf("fingerprint leaks the token: %q", a)
	}
}

func TestIdentityOfHTTPHeader(t *testing.T) {
	h := http.Header{}
	h.Set("Cookie", "sb_token=tok-1")
	if got := IdentityOf(h); got != "tok-1" {
		t.Errorf("expected tok-1, got %q", got)
	}
}

func TestResolveMalformedCookieLine(t *testing.T) {
	h := mapHeaders{"Cookie": `bad"pair=x; sb_token=xyz`}
	if got := IdentityOf(h); got != "xyz" {
		t.Errorf("expected token recovered from malformed line, got %q", got)
	}
}

func TestNewCookie(t *testing.T) {
	rr := httptest.NewRecorder()
	http.SetCookie(rr, NewCookie("abc", false))
	line := rr.Header().Get("Set-Cookie")

	for _, want := range []string{"sb_token=abc", "Path=/", "Max-Age=604800", "HttpOnly", "SameSite=Lax"} {
		if !strings.Contains(line, want) {
			t.Errorf("Set-Cookie %q missing %q", line, want)
		}
	}
	if strings.Contains(line, "Secure") {
		t.Errorf("plain-HTTP cookie must not be Secure: %q", line)
	}

	rr = httptest.NewRecorder()
	http.SetCookie(rr, NewCookie("abc", true))
	if !strings.Contains(rr.Header().Get("Set-Cookie"), "Secure") {
		t.Error("expected Secure attribute over TLS")
	}
}

func TestIsTLS(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/api/login", nil)
	if IsTLS(r) {
		t.Error("plain request reported as TLS")
	}
	r.Header.Set("X-Forwarded-Proto", "https")
	if !IsTLS(r) {
		t.Error("expected forwarded https to count as TLS")
	}
	r = httptest.NewRequest(http.MethodPost, "/api/login", nil)
	r.TLS = &tls.ConnectionState{}
	if !IsTLS(r) {
		t.Error("expected direct TLS to count")
	}
}
