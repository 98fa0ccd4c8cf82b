package gateway

import (
	"testing"
	"time"
)

func TestSanitizeFilename(t *testing.T) {
	tests := []struct{ in, want string }{
		{in: "leaf jpg?.png", want: "leaf_jpg_.png"},
		{in: "plot-7_A.JPEG", want: "plot-7_A.JPEG"},
		{in: "../../etc/passwd", want: ".._.._etc_passwd"},
		{in: "ಅಡಿಕೆ.webp", want: "_____.webp"},
		{in: "", want: ""},
	}
	for _, tt := range tests {
		if got := sanitizeFilename(tt.in); got != tt.want {
			t.Errorf("sanitizeFilename(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestCaptureKey(t *testing.T) {
	now := time.UnixMilli(1_710_408_413_589)
	if got := CaptureKey(now, "leaf jpg?.png"); got != "captures/1710408413589-leaf_jpg_.png" {
		t.Errorf("unexpected key %q", got)
	}
}

func TestDecodeBase64(t *testing.T) {
	tests := []struct {
		name, in, want string
		wantErr        bool
	}{
		{name: "plain", in: "aGVsbG8=", want: "hello"},
		{name: "data uri", in: "data:image/png;base64,aGVsbG8=", want: "hello"},
		{name: "unpadded", in: "aGVsbG8", want: "hello"},
		{name: "wrapped", in: "aGVs\nbG8=", want: "hello"},
		{name: "garbage", in: "%%%%", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := decodeBase64(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %q", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if string(got) != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestGuessMimeType(t *testing.T) {
	tests := []struct{ in, want string }{
		{in: "a.png", want: "image/png"},
		{in: "a.JPG", want: "image/jpeg"},
		{in: "a.jpeg", want: "image/jpeg"},
		{in: "a.webp", want: "image/webp"},
		{in: "a.tiff", want: "application/octet-stream"},
		{in: "no-ext", want: "application/octet-stream"},
	}
	for _, tt := range tests {
		if got := guessMimeType(tt.in); got != tt.want {
			t.Errorf("guessMimeType(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
