package circuitbreaker

import (
	"errors"
	"log/slog"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/oriys/areca-gateway/internal/metrics"
)

// Config controls when a breaker opens and how it recovers.
type Config struct {
	// FailureThreshold is the number of consecutive failures that opens the circuit.
	FailureThreshold uint32 `koanf:"failure_threshold" json:"failure_threshold" yaml:"failure_threshold" validate:"gte=1"`
	// HalfOpenRequests is how many probes pass while half-open.
	HalfOpenRequests uint32 `koanf:"half_open_requests" json:"half_open_requests" yaml:"half_open_requests" validate:"gte=1"`
	// OpenTimeout is how long the circuit stays open before probing.
	OpenTimeout time.Duration `koanf:"open_timeout" json:"open_timeout" yaml:"open_timeout" validate:"gt=0"`
	// Interval clears closed-state counts; zero never clears them.
	Interval time.Duration `koanf:"interval" json:"interval" yaml:"interval"`
}

// DefaultConfig returns the breaker settings used when none are configured.
func DefaultConfig() Config {
	return Config{
		FailureThreshold: 5,
		HalfOpenRequests: 1,
		OpenTimeout:      30 * time.Second,
		Interval:         time.Minute,
	}
}

// Breaker guards calls to one remote dependency.
type Breaker struct {
	name string
	cb   *gobreaker.CircuitBreaker[any]
}

// New creates a named breaker and publishes its state gauge.
func New(name string, cfg Config) *Breaker {
	if cfg.FailureThreshold == 0 {
		cfg.FailureThreshold = DefaultConfig().FailureThreshold
	}
	if cfg.HalfOpenRequests == 0 {
		cfg.HalfOpenRequests = 1
	}
	if cfg.OpenTimeout <= 0 {
		cfg.OpenTimeout = DefaultConfig().OpenTimeout
	}
	threshold := cfg.FailureThreshold

	metrics.BreakerState.WithLabelValues(name).Set(stateValue(gobreaker.StateClosed))

	cb := gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:        name,
		MaxRequests: cfg.HalfOpenRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Warn("circuit breaker state change",
				slog.String("breaker", name),
				slog.String("from", from.String()),
				slog.String("to", to.String()),
			)
			metrics.BreakerState.WithLabelValues(name).Set(stateValue(to))
		},
	})
	return &Breaker{name: name, cb: cb}
}

// Execute runs fn through the breaker. It returns ErrOpen without calling fn
// while the circuit is open.
func (b *Breaker) Execute(fn func() error) error {
	_, err := b.cb.Execute(func() (any, error) {
		return nil, fn()
	})
	if IsOpen(err) {
		return ErrOpen
	}
	return err
}

// Name returns the breaker name.
func (b *Breaker) Name() string { return b.name }

// State returns "closed", "half-open" or "open".
func (b *Breaker) State() string { return b.cb.State().String() }

// ErrOpen is returned by Execute when the call was rejected without running.
var ErrOpen = errors.New("circuit breaker is open")

// IsOpen reports whether err is a breaker rejection.
func IsOpen(err error) bool {
	return errors.Is(err, ErrOpen) ||
		errors.Is(err, gobreaker.ErrOpenState) ||
		errors.Is(err, gobreaker.ErrTooManyRequests)
}

func stateValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return 0
	}
}
