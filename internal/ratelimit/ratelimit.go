package ratelimit

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/goccy/go-json"

	"github.com/oriys/areca-gateway/internal/apierror"
	"github.com/oriys/areca-gateway/internal/kv"
	"github.com/oriys/areca-gateway/internal/metrics"
)

const (
	DefaultLimit  = 60
	DefaultWindow = time.Minute
	DefaultPrefix = "rl:"
)

// Bucket is the persisted fixed-window counter for one client address.
type Bucket struct {
	Count   int   `json:"count"`
	ResetAt int64 `json:"resetAt"` // epoch milliseconds
}

// Limiter is a fixed-window counter kept in a kv.Store. Updates are plain
// read-modify-write; concurrent requests from one address may let a request
// or two past the limit.
type Limiter struct {
	store  kv.Store
	limit  int
	window time.Duration
	prefix string
	now    func() time.Time
}

// NewLimiter creates a limiter over store. A nil store yields a limiter that
// admits everything.
func NewLimiter(store kv.Store, limit int, window time.Duration) *Limiter {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if window <= 0 {
		window = DefaultWindow
	}
	return &Limiter{
		store:  store,
		limit:  limit,
		window: window,
		prefix: DefaultPrefix,
		now:    time.Now,
	}
}

// Enabled reports whether a backing store is configured.
func (l *Limiter) Enabled() bool {
	return l != nil && l.store != nil
}

// Enforce counts one request for addr and returns an ERR_RATE_LIMITED error
// once the window's limit is reached. Store failures admit the request.
func (l *Limiter) Enforce(ctx context.Context, addr string) error {
	if !l.Enabled() {
		return nil
	}

	key := l.prefix + addr
	now := l.now().UnixMilli()

	bucket, err := l.load(ctx, key)
	if err != nil {
		metrics.RateStoreErrors.WithLabelValues("get").Inc()
		slog.Warn("rate limit store unavailable, admitting request",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
		return nil
	}
	if bucket == nil || now >= bucket.ResetAt {
		bucket = &Bucket{Count: 0, ResetAt: now + l.window.Milliseconds()}
	}

	remaining := ceilSeconds(bucket.ResetAt - now)
	if bucket.Count >= l.limit {
		metrics.RateLimited.Inc()
		return apierror.RateLimited(remaining)
	}

	bucket.Count++
	data, err := json.Marshal(bucket)
	if err != nil {
		return err
	}
	if err := l.store.Put(ctx, key, data, time.Duration(remaining)*time.Second); err != nil {
		metrics.RateStoreErrors.WithLabelValues("put").Inc()
		slog.Warn("rate limit bucket not persisted",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
	}
	return nil
}

func (l *Limiter) load(ctx context.Context, key string) (*Bucket, error) {
	raw, err := l.store.Get(ctx, key)
	if errors.Is(err, kv.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var b Bucket
	if err := json.Unmarshal(raw, &b); err != nil {
		// A corrupt bucket is replaced rather than failing every request.
		slog.Warn("discarding unreadable rate bucket", slog.String("key", key))
		return nil, nil
	}
	return &b, nil
}

// ceilSeconds rounds a millisecond span up to whole seconds, minimum 1.
func ceilSeconds(ms int64) int {
	s := int((ms + 999) / 1000)
	if s < 1 {
		return 1
	}
	return s
}
