package config

import (
	"time"

	"github.com/oriys/areca-gateway/internal/circuitbreaker"
	"github.com/oriys/areca-gateway/internal/telemetry"
)

// Backend names shared by the rate-limit and storage settings.
const (
	BackendNone   = "none"
	BackendMemory = "memory"
	BackendRedis  = "redis"
	BackendBadger = "badger"
)

const redacted = "[redacted]"

// Config is the top-level gateway configuration.
type Config struct {
	Server    ServerConfig     `koanf:"server" json:"server" yaml:"server"`
	Admin     AdminConfig      `koanf:"admin" json:"admin" yaml:"admin"`
	Logging   LoggingConfig    `koanf:"logging" json:"logging" yaml:"logging"`
	Gateway   GatewayConfig    `koanf:"gateway" json:"gateway" yaml:"gateway"`
	RateLimit RateLimitConfig  `koanf:"rate_limit" json:"rate_limit" yaml:"rate_limit"`
	Redis     RedisConfig      `koanf:"redis" json:"redis" yaml:"redis"`
	Storage   StorageConfig    `koanf:"storage" json:"storage" yaml:"storage"`
	Inference InferenceConfig  `koanf:"inference" json:"inference" yaml:"inference"`
	Market    MarketConfig     `koanf:"market" json:"market" yaml:"market"`
	Telemetry telemetry.Config `koanf:"telemetry" json:"telemetry" yaml:"telemetry"`
	Proxy     ProxyConfig      `koanf:"proxy" json:"proxy" yaml:"proxy"`
}

// ServerConfig defines the public HTTP listener.
type ServerConfig struct {
	Listen          string        `koanf:"listen" json:"listen" yaml:"listen" validate:"required"`
	ReadTimeout     time.Duration `koanf:"read_timeout" json:"read_timeout" yaml:"read_timeout" validate:"gte=0"`
	WriteTimeout    time.Duration `koanf:"write_timeout" json:"write_timeout" yaml:"write_timeout" validate:"gte=0"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout" json:"shutdown_timeout" yaml:"shutdown_timeout" validate:"gt=0"`
	MaxBodyBytes    int64         `koanf:"max_body_bytes" json:"max_body_bytes" yaml:"max_body_bytes" validate:"gt=0"`
}

// AdminConfig defines the ops listener serving health, metrics and config.
type AdminConfig struct {
	Enabled bool   `koanf:"enabled" json:"enabled" yaml:"enabled"`
	Listen  string `koanf:"listen" json:"listen" yaml:"listen" validate:"required_if=Enabled true"`
}

// LoggingConfig defines logging settings.
type LoggingConfig struct {
	Level  string `koanf:"level" json:"level" yaml:"level" validate:"oneof=debug info warn error"`
	Format string `koanf:"format" json:"format" yaml:"format" validate:"oneof=json console"`
}

// GatewayConfig holds request-path settings. These are hot-reloadable.
type GatewayConfig struct {
	ModelVersion   string   `koanf:"model_version" json:"model_version" yaml:"model_version"`
	FrontendOrigin string   `koanf:"frontend_origin" json:"frontend_origin" yaml:"frontend_origin" validate:"omitempty,url"`
	AllowedOrigins []string `koanf:"allowed_origins" json:"allowed_origins" yaml:"allowed_origins"`
	// ClientIPHeader names the trusted header carrying the client address.
	ClientIPHeader string `koanf:"client_ip_header" json:"client_ip_header" yaml:"client_ip_header"`
	// CorrelationHeaders are consulted in order for an inbound correlation id.
	CorrelationHeaders []string `koanf:"correlation_headers" json:"correlation_headers" yaml:"correlation_headers"`
}

// RateLimitConfig selects the rate store and window.
type RateLimitConfig struct {
	Backend        string        `koanf:"backend" json:"backend" yaml:"backend" validate:"oneof=none memory redis badger"`
	Limit          int           `koanf:"limit" json:"limit" yaml:"limit" validate:"gte=1"`
	Window         time.Duration `koanf:"window" json:"window" yaml:"window" validate:"gte=1s"`
	MemoryCapacity int           `koanf:"memory_capacity" json:"memory_capacity" yaml:"memory_capacity" validate:"gte=1"`
}

// RedisConfig holds the rate store connection when backend is redis.
type RedisConfig struct {
	Addr        string        `koanf:"addr" json:"addr" yaml:"addr"`
	Password    string        `koanf:"password" json:"password" yaml:"password"`
	DB          int           `koanf:"db" json:"db" yaml:"db" validate:"gte=0"`
	DialTimeout time.Duration `koanf:"dial_timeout" json:"dial_timeout" yaml:"dial_timeout"`
}

// StorageConfig selects the object store for uploads.
type StorageConfig struct {
	Backend string `koanf:"backend" json:"backend" yaml:"backend" validate:"oneof=none memory badger"`
	// BadgerPath is shared by badger-backed stores. Empty keeps data in memory.
	BadgerPath string `koanf:"badger_path" json:"badger_path" yaml:"badger_path"`
	PublicURL  string `koanf:"public_url" json:"public_url" yaml:"public_url" validate:"required,url"`
}

// InferenceConfig points at the disease-detection backend.
type InferenceConfig struct {
	URL string `koanf:"url" json:"url" yaml:"url" validate:"omitempty,url"`
	Key string `koanf:"key" json:"key" yaml:"key"`
}

// MarketConfig names the price feed reported by /api/prices.
type MarketConfig struct {
	Source string `koanf:"source" json:"source" yaml:"source"`
}

// ProxyConfig tunes the frontend proxy.
type ProxyConfig struct {
	Timeout time.Duration         `koanf:"timeout" json:"timeout" yaml:"timeout" validate:"gt=0"`
	Breaker circuitbreaker.Config `koanf:"breaker" json:"breaker" yaml:"breaker"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Listen:          ":8080",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			MaxBodyBytes:    10 << 20,
		},
		Admin: AdminConfig{
			Enabled: true,
			Listen:  "127.0.0.1:9090",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Gateway: GatewayConfig{
			ClientIPHeader:     "CF-Connecting-IP",
			CorrelationHeaders: []string{"CF-Ray", "X-Correlation-Id", "X-Request-ID"},
		},
		RateLimit: RateLimitConfig{
			Backend:        BackendNone,
			Limit:          60,
			Window:         time.Minute,
			MemoryCapacity: 10_000,
		},
		Redis: RedisConfig{
			DialTimeout: 2 * time.Second,
		},
		Storage: StorageConfig{
			Backend:   BackendNone,
			PublicURL: "https://r2.cloudflarestorage.com",
		},
		Telemetry: telemetry.DefaultConfig(),
		Proxy: ProxyConfig{
			Timeout: 10 * time.Second,
			Breaker: circuitbreaker.DefaultConfig(),
		},
	}
}

// Redacted returns a copy safe to expose on the admin surface.
func (c *Config) Redacted() *Config {
	out := *c
	out.Gateway.AllowedOrigins = append([]string(nil), c.Gateway.AllowedOrigins...)
	out.Gateway.CorrelationHeaders = append([]string(nil), c.Gateway.CorrelationHeaders...)
	if out.Redis.Password != "" {
		out.Redis.Password = redacted
	}
	if out.Inference.Key != "" {
		out.Inference.Key = redacted
	}
	if out.Telemetry.Endpoint != "" {
		// DSNs embed a key.
		out.Telemetry.Endpoint = redacted
	}
	return &out
}

// UsesBadger reports whether any store needs the shared badger database.
func (c *Config) UsesBadger() bool {
	return c.RateLimit.Backend == BackendBadger || c.Storage.Backend == BackendBadger
}
