package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/oriys/areca-gateway/internal/admin"
	"github.com/oriys/areca-gateway/internal/apierror"
	"github.com/oriys/areca-gateway/internal/circuitbreaker"
	"github.com/oriys/areca-gateway/internal/config"
	"github.com/oriys/areca-gateway/internal/gateway"
	"github.com/oriys/areca-gateway/internal/health"
	"github.com/oriys/areca-gateway/internal/logging"
	"github.com/oriys/areca-gateway/internal/middleware"
	"github.com/oriys/areca-gateway/internal/proxy"
	"github.com/oriys/areca-gateway/internal/ratelimit"
	"github.com/oriys/areca-gateway/internal/supervisor"
	"github.com/oriys/areca-gateway/internal/telemetry"
)

func main() {
	defaultPath := os.Getenv("ARECA_CONFIG")
	configPath := flag.String("config", defaultPath, "path to the YAML config file (optional)")
	flag.Parse()

	logging.Init(logging.Config{})

	loader := config.NewLoader(*configPath)
	cfg, err := loader.Load()
	if err != nil {
		slog.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logger := logging.Init(logging.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format})
	slog.Info("configuration loaded",
		slog.String("path", *configPath),
		slog.Int("version", loader.Versions().Current().Version),
	)

	if err := run(cfg, loader, logger); err != nil {
		slog.Error("gateway exited", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(cfg *config.Config, loader *config.Loader, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := openStores(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	checker := health.NewChecker()
	st.registerProbes(checker)

	reporter := telemetry.New(cfg.Telemetry, nil)
	responder := apierror.NewResponder(reporter)

	// Nil interface values disable the limiter and uploads.
	var limiter middleware.Enforcer
	if st.rate != nil {
		limiter = ratelimit.NewLimiter(st.rate, cfg.RateLimit.Limit, cfg.RateLimit.Window)
	}

	settings := gateway.NewSettingsStore(gateway.SettingsFromConfig(cfg))
	frontend := proxy.NewFrontend(settings.FrontendOrigin, nil, cfg.Proxy.Timeout,
		circuitbreaker.New("frontend", cfg.Proxy.Breaker))

	opts := gateway.Options{
		Settings:     settings,
		Limiter:      limiter,
		Objects:      st.objects,
		Frontend:     frontend,
		Responder:    responder,
		MaxBodyBytes: cfg.Server.MaxBodyBytes,
	}
	gw := gateway.New(opts)

	tree := supervisor.NewTree(logger, supervisor.TreeConfig{ShutdownTimeout: cfg.Server.ShutdownTimeout})
	tree.AddEdgeService(supervisor.NewHTTPServerService("gateway-http", &http.Server{
		Addr:         cfg.Server.Listen,
		Handler:      gw.Handler(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}, cfg.Server.ShutdownTimeout))

	if cfg.Admin.Enabled {
		ops := admin.New(admin.Options{
			Loader:    loader,
			Health:    checker,
			Routes:    gw.Routes(),
			Breakers:  map[string]admin.BreakerReporter{"frontend": frontend, "telemetry": reporter},
			Telemetry: reporter,
		})
		tree.AddEdgeService(supervisor.NewHTTPServerService("admin-http", &http.Server{
			Addr:    cfg.Admin.Listen,
			Handler: ops.Handler(),
		}, cfg.Server.ShutdownTimeout))
	}

	tree.AddBackgroundService(reporter)
	tree.AddBackgroundService(config.NewWatchService(loader, func(next *config.Config) {
		settings.Apply(next)
		slog.Info("gateway settings applied",
			slog.String("model_version", next.Gateway.ModelVersion),
			slog.Int("allowed_origins", len(next.Gateway.AllowedOrigins)),
		)
	}))

	treeCtx, cancel := context.WithCancel(context.Background())
	defer cancel()
	errCh := tree.ServeBackground(treeCtx)

	checker.SetReady(true)
	slog.Info("areca gateway starting",
		slog.String("listen", cfg.Server.Listen),
		slog.String("rate_limit_backend", cfg.RateLimit.Backend),
		slog.String("storage_backend", cfg.Storage.Backend),
	)

	select {
	case <-ctx.Done():
		slog.Info("shutdown signal received")
	case err := <-errCh:
		return err
	}

	// Fail readiness before the listeners stop accepting.
	checker.SetReady(false)
	cancel()
	if err := <-errCh; err != nil && !errors.Is(err, context.Canceled) {
		slog.Warn("supervisor stopped with error", slog.String("error", err.Error()))
	}
	if report, err := tree.UnstoppedServiceReport(); err == nil && len(report) > 0 {
		slog.Warn("services did not stop in time", slog.Int("count", len(report)))
	}
	slog.Info("areca gateway stopped")
	return nil
}
