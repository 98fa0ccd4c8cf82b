// Package admin serves the ops surface: health, metrics, the effective
// configuration and runtime status. It listens separately from the API.
package admin

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/goccy/go-json"
	"gopkg.in/yaml.v3"

	"github.com/oriys/areca-gateway/internal/config"
	"github.com/oriys/areca-gateway/internal/gateway"
	"github.com/oriys/areca-gateway/internal/health"
	"github.com/oriys/areca-gateway/internal/metrics"
)

// BreakerReporter exposes a circuit breaker's state.
type BreakerReporter interface {
	BreakerState() string
}

// QueueReporter exposes the telemetry queue.
type QueueReporter interface {
	Enabled() bool
	QueueDepth() int
	Dropped() int64
}

// Options wires the admin server. Loader and Health are required.
type Options struct {
	Loader    *config.Loader
	Health    *health.Checker
	Routes    gateway.Table
	Breakers  map[string]BreakerReporter
	Telemetry QueueReporter
}

// Server is the admin API server.
type Server struct {
	opts    Options
	started time.Time
	router  chi.Router
}

// New creates a new admin server and registers routes.
func New(opts Options) *Server {
	s := &Server{opts: opts, started: time.Now()}

	r := chi.NewRouter()
	r.Use(chimiddleware.Recoverer)
	r.Get("/healthz", opts.Health.HealthzHandler())
	r.Get("/readyz", opts.Health.ReadyzHandler())
	r.Handle("/metrics", metrics.Handler())
	r.Route("/admin", func(r chi.Router) {
		r.Get("/config", s.getConfig)
		r.Get("/config/versions", s.listVersions)
		r.Get("/routes", s.listRoutes)
		r.Get("/status", s.getStatus)
	})
	s.router = r
	return s
}

// Handler returns the HTTP handler for the admin server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) getConfig(w http.ResponseWriter, r *http.Request) {
	cfg := s.opts.Loader.Current()
	if cfg == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "no configuration loaded"})
		return
	}
	safe := cfg.Redacted()

	if r.URL.Query().Get("format") == "yaml" {
		out, err := yaml.Marshal(safe)
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "render config"})
			return
		}
		w.Header().Set("Content-Type", "application/yaml")
		w.WriteHeader(http.StatusOK)
		w.Write(out)
		return
	}
	writeJSON(w, http.StatusOK, safe)
}

type versionInfo struct {
	Version   int    `json:"version"`
	Hash      string `json:"hash"`
	Timestamp string `json:"timestamp"`
}

func (s *Server) listVersions(w http.ResponseWriter, r *http.Request) {
	versions := s.opts.Loader.Versions().List()
	result := make([]versionInfo, len(versions))
	for i, v := range versions {
		result[i] = versionInfo{
			Version:   v.Version,
			Hash:      v.Hash,
			Timestamp: v.LoadedAt.Format(time.RFC3339),
		}
	}
	writeJSON(w, http.StatusOK, result)
}

type routeInfo struct {
	Name   string `json:"name"`
	Method string `json:"method"`
	Path   string `json:"path"`
	Match  string `json:"match"`
}

func (s *Server) listRoutes(w http.ResponseWriter, r *http.Request) {
	result := make([]routeInfo, 0, len(s.opts.Routes))
	for _, rt := range s.opts.Routes {
		info := routeInfo{Name: rt.Name, Method: rt.Method, Path: rt.Path.Exact, Match: "exact"}
		if rt.Path.Exact == "" {
			info.Path, info.Match = rt.Path.Prefix, "prefix"
		}
		result = append(result, info)
	}
	writeJSON(w, http.StatusOK, result)
}

type telemetryStatus struct {
	Enabled    bool  `json:"enabled"`
	QueueDepth int   `json:"queue_depth"`
	Dropped    int64 `json:"dropped"`
}

type status struct {
	Status           string            `json:"status"`
	Uptime           string            `json:"uptime"`
	ConfigVersions   int               `json:"config_versions"`
	RateLimitBackend string            `json:"rate_limit_backend"`
	StorageBackend   string            `json:"storage_backend"`
	Probes           []string          `json:"probes"`
	Breakers         map[string]string `json:"breakers"`
	Telemetry        *telemetryStatus  `json:"telemetry,omitempty"`
}

func (s *Server) getStatus(w http.ResponseWriter, r *http.Request) {
	st := status{
		Status:         "running",
		Uptime:         time.Since(s.started).Round(time.Second).String(),
		ConfigVersions: s.opts.Loader.Versions().Len(),
		Probes:         s.opts.Health.Names(),
		Breakers:       make(map[string]string, len(s.opts.Breakers)),
	}
	if !s.opts.Health.Ready() {
		st.Status = "starting"
	}
	if cfg := s.opts.Loader.Current(); cfg != nil {
		st.RateLimitBackend = cfg.RateLimit.Backend
		st.StorageBackend = cfg.Storage.Backend
	}

	for name, b := range s.opts.Breakers {
		st.Breakers[name] = b.BreakerState()
	}

	if t := s.opts.Telemetry; t != nil {
		st.Telemetry = &telemetryStatus{Enabled: t.Enabled(), QueueDepth: t.QueueDepth(), Dropped: t.Dropped()}
	}
	writeJSON(w, http.StatusOK, st)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
