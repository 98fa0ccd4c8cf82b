package config

import (
	"errors"
	"fmt"
	"net/url"

	"github.com/oriys/areca-gateway/internal/validation"
)

// Validate checks the configuration for correctness.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errors.New("config is nil")
	}

	if err := validation.Struct(cfg); err != nil {
		return err
	}

	if cfg.RateLimit.Backend == BackendRedis && cfg.Redis.Addr == "" {
		return errors.New("redis.addr is required when rate_limit.backend is redis")
	}
	if cfg.Gateway.FrontendOrigin != "" {
		u, err := url.Parse(cfg.Gateway.FrontendOrigin)
		if err != nil || u.Host == "" {
			return fmt.Errorf("gateway.frontend_origin %q must be an absolute URL", cfg.Gateway.FrontendOrigin)
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return fmt.Errorf("gateway.frontend_origin scheme must be http or https, got %q", u.Scheme)
		}
	}
	for i, o := range cfg.Gateway.AllowedOrigins {
		if o == "" {
			return fmt.Errorf("gateway.allowed_origins[%d] is empty", i)
		}
	}
	if cfg.Admin.Enabled && cfg.Admin.Listen == cfg.Server.Listen {
		return fmt.Errorf("admin.listen must differ from server.listen (%s)", cfg.Server.Listen)
	}

	return nil
}
