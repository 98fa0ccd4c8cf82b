package gateway

import (
	"encoding/base64"
	"fmt"
	"path"
	"strings"
	"time"
)

// CaptureKey returns the object key for an uploaded capture.
func CaptureKey(now time.Time, filename string) string {
	return fmt.Sprintf("captures/%d-%s", now.UnixMilli(), sanitizeFilename(filename))
}

// sanitizeFilename keeps [A-Za-z0-9._-] and replaces every other character
// with an underscore.
func sanitizeFilename(name string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '.', r == '-', r == '_':
			return r
		}
		return '_'
	}, name)
}

// decodeBase64 decodes plain base64 or a data URI. Whitespace is ignored and
// missing padding is tolerated.
func decodeBase64(data string) ([]byte, error) {
	if i := strings.LastIndexByte(data, ','); i >= 0 {
		data = data[i+1:]
	}
	data = strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\t', '\n', '\r', '\f':
			return -1
		}
		return r
	}, data)
	if n := len(data) % 4; n != 0 {
		data += strings.Repeat("=", 4-n)
	}
	return base64.StdEncoding.DecodeString(data)
}

// guessMimeType maps an image extension to its content type.
func guessMimeType(filename string) string {
	switch strings.ToLower(path.Ext(filename)) {
	case ".png":
		return "image/png"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".webp":
		return "image/webp"
	default:
		return "application/octet-stream"
	}
}
