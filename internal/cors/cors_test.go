package cors

import (
	"net/http"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestResolve(t *testing.T) {
	allow := []string{"https://app.example", "https://admin.example"}

	tests := []struct {
		name      string
		origin    string
		allowlist []string
		want      string
		wantOK    bool
	}{
		{"no origin, allowlist", "", allow, "https://app.example", true},
		{"no origin, no allowlist", "", nil, "*", true},
		{"member", "https://admin.example", allow, "https://admin.example", true},
		{"non-member", "https://evil.example", allow, "", false},
		{"permissive", "https://anything.example", nil, "https://anything.example", true},
		{"permissive empty slice", "https://x.example", []string{}, "https://x.example", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Resolve(tt.origin, tt.allowlist)
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("Resolve(%q) = %q, %v; want %q, %v", tt.origin, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestResolveIsPure(t *testing.T) {
	allow := []string{"https://a.example"}
	inputs := []string{"", "https://a.example", "https://b.example"}
	for _, in := range inputs {
		first, firstOK := Resolve(in, allow)
		second, secondOK := Resolve(in, allow)
		if first != second || firstOK != secondOK {
			t.Errorf("Resolve(%q) not stable: %q/%v then %q/%v", in, first, firstOK, second, secondOK)
		}
	}
	if diff := cmp.Diff([]string{"https://a.example"}, allow); diff != "" {
		t.Errorf("allowlist mutated:\n%s", diff)
	}
}

func TestParseAllowlist(t *testing.T) {
	got := ParseAllowlist(" https://a.example, ,https://b.example,,")
	want := []string{"https://a.example", "https://b.example"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ParseAllowlist mismatch (-want +got):\n%s", diff)
	}
	if got := ParseAllowlist(""); len(got) != 0 {
		t.Errorf("expected empty allowlist, got %v", got)
	}
}

func TestDecorate(t *testing.T) {
	h := http.Header{}
	Decorate(h, "https://app.example")

	if got := h.Get("Access-Control-Allow-Origin"); got != "https://app.example" {
		t.Errorf("unexpected allow-origin %q", got)
	}
	if got := h.Get("Vary"); got != "Origin" {
		t.Errorf("expected Vary: Origin, got %q", got)
	}
	if got := h.Get("Access-Control-Allow-Credentials"); got != "true" {
		t.Errorf("expected credentials true, got %q", got)
	}

	h = http.Header{}
	Decorate(h, "")
	if got := h.Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("expected wildcard for empty origin, got %q", got)
	}
}
