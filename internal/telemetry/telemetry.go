// Package telemetry ships unexpected gateway failures to an error-collection
// endpoint without holding up the response that observed them.
package telemetry

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/goccy/go-json"
	"golang.org/x/time/rate"

	"github.com/oriys/areca-gateway/internal/circuitbreaker"
	"github.com/oriys/areca-gateway/internal/metrics"
)

// Config controls the reporter.
type Config struct {
	// Endpoint receives report POSTs. Empty disables reporting.
	Endpoint string `koanf:"endpoint" json:"endpoint" yaml:"endpoint" validate:"omitempty,url"`
	// QueueSize bounds reports waiting for delivery.
	QueueSize int `koanf:"queue_size" json:"queue_size" yaml:"queue_size" validate:"gte=1"`
	// RatePerSecond caps delivery attempts.
	RatePerSecond float64 `koanf:"rate_per_second" json:"rate_per_second" yaml:"rate_per_second" validate:"gt=0"`
	// Timeout applies to each delivery.
	Timeout time.Duration `koanf:"timeout" json:"timeout" yaml:"timeout" validate:"gt=0"`
	// DrainTimeout bounds delivery of queued reports at shutdown.
	DrainTimeout time.Duration `koanf:"drain_timeout" json:"drain_timeout" yaml:"drain_timeout" validate:"gt=0"`

	Breaker circuitbreaker.Config `koanf:"breaker" json:"breaker" yaml:"breaker"`
}

// DefaultConfig returns reporter defaults with reporting disabled.
func DefaultConfig() Config {
	return Config{
		QueueSize:     256,
		RatePerSecond: 5,
		Timeout:       5 * time.Second,
		DrainTimeout:  5 * time.Second,
		Breaker:       circuitbreaker.DefaultConfig(),
	}
}

// Payload is the JSON body POSTed for each report.
type Payload struct {
	Message string            `json:"message"`
	Stack   string            `json:"stack,omitempty"`
	Tags    map[string]string `json:"tags"`
	Extra   map[string]string `json:"extra"`
}

// stackTracer is implemented by errors that carry the stack where they arose.
type stackTracer interface {
	StackTrace() string
}

// Reporter queues reports and delivers them from a supervised worker.
type Reporter struct {
	cfg     Config
	client  *http.Client
	queue   chan Payload
	limiter *rate.Limiter
	breaker *circuitbreaker.Breaker
	dropped atomic.Int64
}

// New creates a reporter. A nil client uses one with cfg.Timeout.
func New(cfg Config, client *http.Client) *Reporter {
	def := DefaultConfig()
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = def.QueueSize
	}
	if cfg.RatePerSecond <= 0 {
		cfg.RatePerSecond = def.RatePerSecond
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.DrainTimeout <= 0 {
		cfg.DrainTimeout = def.DrainTimeout
	}
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	burst := int(cfg.RatePerSecond)
	if burst < 1 {
		burst = 1
	}
	return &Reporter{
		cfg:     cfg,
		client:  client,
		queue:   make(chan Payload, cfg.QueueSize),
		limiter: rate.NewLimiter(rate.Limit(cfg.RatePerSecond), burst),
		breaker: circuitbreaker.New("telemetry", cfg.Breaker),
	}
}

// Enabled reports whether an endpoint is configured.
func (r *Reporter) Enabled() bool {
	return r != nil && r.cfg.Endpoint != ""
}

// Report enqueues err for delivery. It never blocks; when the queue is full
// the report is dropped and counted.
func (r *Reporter) Report(_ context.Context, err error, correlationID string) {
	if !r.Enabled() || err == nil {
		return
	}
	p := Payload{
		Message: err.Error(),
		Tags:    map[string]string{"correlationId": correlationID},
		Extra:   map[string]string{"name": fmt.Sprintf("%T", err)},
	}
	if st, ok := err.(stackTracer); ok {
		p.Stack = st.StackTrace()
	}

	select {
	case r.queue <- p:
		metrics.TelemetryReports.WithLabelValues("queued").Inc()
	default:
		r.dropped.Add(1)
		metrics.TelemetryReports.WithLabelValues("dropped").Inc()
		slog.Warn("telemetry queue full, report dropped",
			slog.String("correlation_id", correlationID),
		)
	}
}

// Serve delivers queued reports until ctx is cancelled, then drains what is
// left within the drain timeout. A delivery in progress at cancellation is
// finished, bounded by the per-post timeout.
func (r *Reporter) Serve(ctx context.Context) error {
	sendCtx := context.WithoutCancel(ctx)
	for {
		select {
		case p := <-r.queue:
			if ctx.Err() != nil {
				r.drain(p)
				return ctx.Err()
			}
			r.deliver(sendCtx, p)
		case <-ctx.Done():
			r.drain()
			return ctx.Err()
		}
	}
}

// drain delivers pending, then whatever is still queued.
func (r *Reporter) drain(pending ...Payload) {
	ctx, cancel := context.WithTimeout(context.Background(), r.cfg.DrainTimeout)
	defer cancel()
	for {
		var p Payload
		if len(pending) > 0 {
			p, pending = pending[0], pending[1:]
		} else {
			select {
			case p = <-r.queue:
			default:
				return
			}
		}
		r.deliver(ctx, p)
		if ctx.Err() != nil {
			slog.Warn("telemetry drain timed out", slog.Int("pending", len(pending)+len(r.queue)))
			return
		}
	}
}

func (r *Reporter) deliver(ctx context.Context, p Payload) {
	if err := r.limiter.Wait(ctx); err != nil {
		metrics.TelemetryReports.WithLabelValues("failed").Inc()
		return
	}
	err := r.breaker.Execute(func() error { return r.post(ctx, p) })
	switch {
	case err == nil:
		metrics.TelemetryReports.WithLabelValues("sent").Inc()
	case circuitbreaker.IsOpen(err):
		metrics.TelemetryReports.WithLabelValues("rejected").Inc()
	default:
		metrics.TelemetryReports.WithLabelValues("failed").Inc()
		slog.Warn("telemetry delivery failed",
			slog.String("correlation_id", p.Tags["correlationId"]),
			slog.String("error", err.Error()),
		)
	}
}

func (r *Reporter) post(ctx context.Context, p Payload) error {
	body, err := json.Marshal(p)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, r.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.cfg.Endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode >= 300 {
		return fmt.Errorf("telemetry endpoint returned %d", resp.StatusCode)
	}
	return nil
}

// QueueDepth returns the number of undelivered reports.
func (r *Reporter) QueueDepth() int { return len(r.queue) }

// Dropped returns how many reports were discarded on a full queue.
func (r *Reporter) Dropped() int64 { return r.dropped.Load() }

// BreakerState returns the delivery breaker state.
func (r *Reporter) BreakerState() string { return r.breaker.State() }

func (r *Reporter) String() string { return "telemetry-reporter" }
