// Package gateway implements the Areca edge API: the route table, the
// dispatcher and the endpoint handlers.
package gateway

import (
	"net/http"
	"time"

	"github.com/oriys/areca-gateway/internal/apierror"
	"github.com/oriys/areca-gateway/internal/middleware"
	"github.com/oriys/areca-gateway/internal/objectstore"
	"github.com/oriys/areca-gateway/internal/proxy"
)

// DefaultMaxBodyBytes caps request bodies when no limit is configured.
const DefaultMaxBodyBytes = 10 << 20

// Options wires a Gateway to its collaborators. Only Settings is required.
type Options struct {
	Settings *SettingsStore
	// Limiter enforces the per-address rate limit; nil disables it.
	Limiter middleware.Enforcer
	// Objects persists uploads; nil answers uploads with a note.
	Objects objectstore.Store
	// Frontend serves non-API paths; nil proxies to the configured origin.
	Frontend http.Handler
	// Responder renders errors; nil renders without telemetry.
	Responder    *apierror.Responder
	MaxBodyBytes int64
}

// Gateway dispatches requests through the route table.
type Gateway struct {
	settings  *SettingsStore
	limiter   middleware.Enforcer
	objects   objectstore.Store
	frontend  http.Handler
	responder *apierror.Responder
	maxBody   int64
	routes    Table
	now       func() time.Time
}

// New creates a Gateway.
func New(opts Options) *Gateway {
	g := &Gateway{
		settings:  opts.Settings,
		limiter:   opts.Limiter,
		objects:   opts.Objects,
		frontend:  opts.Frontend,
		responder: opts.Responder,
		maxBody:   opts.MaxBodyBytes,
		now:       time.Now,
	}
	if g.settings == nil {
		g.settings = NewSettingsStore(nil)
	}
	if g.responder == nil {
		g.responder = apierror.NewResponder(nil)
	}
	if g.maxBody <= 0 {
		g.maxBody = DefaultMaxBodyBytes
	}
	if g.frontend == nil {
		g.frontend = proxy.NewFrontend(g.settings.FrontendOrigin, nil, 0, nil)
	}
	g.routes = g.defaultRoutes()
	return g
}

func (g *Gateway) defaultRoutes() Table {
	return Table{
		{Name: "health", Method: http.MethodGet, Path: Exact("/api/health"), Handler: g.health},
		{Name: "login", Method: http.MethodPost, Path: Exact("/api/login"), Handler: g.login},
		{Name: "detect", Method: http.MethodPost, Path: Exact("/api/detect"), Handler: g.detect},
		{Name: "upload", Method: http.MethodPost, Path: Exact("/api/upload"), Handler: g.upload},
		{Name: "prices", Method: http.MethodGet, Path: Exact("/api/prices"), Handler: g.prices},
		{Name: "alerts_nearby", Method: http.MethodPost, Path: Exact("/api/alerts/nearby"), Handler: g.alertsNearby},
		{Name: "preflight", Method: http.MethodOptions, Path: Prefix("/api/"), Handler: g.preflight},
	}
}

// Routes returns the route table in match order.
func (g *Gateway) Routes() Table {
	return append(Table(nil), g.routes...)
}

// Handler returns the full request pipeline: request context, request log,
// metrics, origin check and rate limit, then dispatch.
func (g *Gateway) Handler() http.Handler {
	opts := g.settings.pipeline
	return middleware.Chain(http.HandlerFunc(g.dispatch), g.responder,
		middleware.Context(opts),
		middleware.Logging(opts),
		middleware.Metrics(),
		middleware.CORS(opts, g.responder),
		middleware.RateLimit(g.limiter, g.responder),
	)
}

func (g *Gateway) dispatch(w http.ResponseWriter, r *http.Request) {
	rc := middleware.FromContext(r.Context())
	route, ok := g.routes.Match(r.Method, r.URL.Path)
	if !ok {
		if !middleware.IsAPIPath(r.URL.Path) {
			g.frontend.ServeHTTP(w, r)
			return
		}
		if rc != nil {
			rc.Route = "not_found"
		}
		g.responder.Write(w, r, correlationOf(r.Context()), apierror.NotFound())
		return
	}
	if rc != nil {
		rc.Route = route.Name
	}

	if r.Body != nil {
		r.Body = http.MaxBytesReader(w, r.Body, g.maxBody)
	}
	resp, err := route.Handler(r.Context(), r)
	if err == nil && resp == nil {
		resp = NoContent()
	}
	if err == nil {
		err = encode(w, resp)
	}
	if err != nil {
		g.responder.Write(w, r, correlationOf(r.Context()), err)
	}
}
