package gateway

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/oriys/areca-gateway/internal/apierror"
	"github.com/oriys/areca-gateway/internal/metrics"
	"github.com/oriys/areca-gateway/internal/middleware"
	"github.com/oriys/areca-gateway/internal/session"
)

// isoMillis matches the ISO-8601 timestamps clients already parse.
const isoMillis = "2006-01-02T15:04:05.000Z"

func iso(t time.Time) string { return t.UTC().Format(isoMillis) }

const (
	defaultLocation  = "IN-KA"
	defaultRadiusKm  = 10.0
	priceCacheTTL    = 900
	priceCacheHeader = "public, max-age=900, stale-while-revalidate=60"
	notConfigured    = "not-configured"
	uploadUnboundMsg = "Bind an object store (storage.backend) to enable uploads."
)

type healthResponse struct {
	Status       string  `json:"status"`
	TS           string  `json:"ts"`
	ModelVersion *string `json:"modelVersion"`
}

func (g *Gateway) health(_ context.Context, _ *http.Request) (*Response, error) {
	resp := healthResponse{Status: "ok", TS: iso(g.now())}
	if mv := g.settings.Load().ModelVersion; mv != "" {
		resp.ModelVersion = &mv
	}
	return JSON(http.StatusOK, resp), nil
}

type loginRequest struct {
	Token string `json:"token" validate:"required"`
}

type okResponse struct {
	OK bool `json:"ok"`
}

func (g *Gateway) login(_ context.Context, r *http.Request) (*Response, error) {
	var req loginRequest
	if err := decodeBody(r, &req, bodyRule{apierror.CodeTokenRequired, "Missing token"}); err != nil {
		return nil, err
	}
	// http.SetCookie drops bytes a cookie value cannot carry; refuse instead
	// of issuing a different token.
	cookie := session.NewCookie(req.Token, session.IsTLS(r))
	if err := cookie.Valid(); err != nil {
		return nil, apierror.Required(apierror.CodeTokenRequired, "Invalid token", "token")
	}
	resp := JSON(http.StatusOK, okResponse{OK: true})
	resp.Cookies = append(resp.Cookies, cookie)
	return resp, nil
}

type detectRequest struct {
	Image    string `json:"image" validate:"required"`
	Metadata any    `json:"metadata,omitempty"`
}

// Material is a treatment input suggested with a diagnosis.
type Material struct {
	Name         string `json:"name"`
	Supplier     string `json:"supplier"`
	Availability string `json:"availability"`
}

// Diagnosis is the detection result returned to the client.
type Diagnosis struct {
	Disease         string     `json:"disease"`
	Confidence      float64    `json:"confidence"`
	Severity        string     `json:"severity"`
	Recommendations []string   `json:"recommendations"`
	Materials       []Material `json:"materials"`
	ModelVersion    string     `json:"modelVersion"`
}

type detectMetadata struct {
	InferenceURL string `json:"inferenceUrl"`
	Received     string `json:"received"`
}

type detectResponse struct {
	OK       bool           `json:"ok"`
	Result   Diagnosis      `json:"result"`
	Metadata detectMetadata `json:"metadata"`
}

func (g *Gateway) detect(ctx context.Context, r *http.Request) (*Response, error) {
	var req detectRequest
	if err := decodeBody(r, &req, bodyRule{apierror.CodeImageRequired, "Missing image payload"}); err != nil {
		return nil, err
	}
	s := g.settings.Load()

	if s.InferenceURL != "" && s.InferenceKey != "" {
		slog.InfoContext(ctx, "inference.forward",
			slog.String("event", "inference.forward"),
			slog.String("inferenceUrl", s.InferenceURL),
			slog.Bool("hasKey", true),
			slog.String("correlationId", correlationOf(ctx)),
		)
	}

	modelVersion := s.ModelVersion
	if modelVersion == "" {
		modelVersion = "unknown"
	}
	inferenceURL := s.InferenceURL
	if inferenceURL == "" {
		inferenceURL = notConfigured
	}

	return JSON(http.StatusOK, detectResponse{
		OK: true,
		Result: Diagnosis{
			Disease:    "arecanut_leaf_spot",
			Confidence: 0.91,
			Severity:   "moderate",
			Recommendations: []string{
				"Inspect neighboring palms for similar lesions within 48 hours.",
				"Apply copper oxychloride @ 3 g/litre as a preventive spray.",
				"Improve drainage and avoid overhead irrigation for a week.",
			},
			Materials: []Material{
				{Name: "Copper Oxychloride 50% WP", Supplier: "Local cooperative", Availability: "in_stock"},
				{Name: "Bio-control pack", Supplier: "Areca FPO", Availability: "preorder"},
			},
			ModelVersion: modelVersion,
		},
		Metadata: detectMetadata{
			InferenceURL: inferenceURL,
			Received:     iso(g.now()),
		},
	}), nil
}

type uploadRequest struct {
	Filename string `json:"filename" validate:"required"`
	Data     string `json:"data" validate:"required"`
}

type uploadResponse struct {
	OK   bool    `json:"ok"`
	Key  string  `json:"key"`
	URL  *string `json:"url"`
	Note string  `json:"note,omitempty"`
}

func (g *Gateway) upload(ctx context.Context, r *http.Request) (*Response, error) {
	var req uploadRequest
	if err := decodeBody(r, &req, bodyRule{apierror.CodeUploadPayload, "Missing file payload"}); err != nil {
		metrics.Uploads.WithLabelValues("rejected").Inc()
		return nil, err
	}
	data, err := decodeBase64(req.Data)
	if err != nil {
		metrics.Uploads.WithLabelValues("rejected").Inc()
		return nil, apierror.Required(apierror.CodeUploadPayload, "Invalid file payload", "data")
	}

	key := CaptureKey(g.now(), req.Filename)
	if g.objects == nil {
		metrics.Uploads.WithLabelValues("unbound").Inc()
		return JSON(http.StatusOK, uploadResponse{OK: true, Key: key, Note: uploadUnboundMsg}), nil
	}

	if err := g.objects.Put(ctx, key, data, guessMimeType(req.Filename)); err != nil {
		metrics.Uploads.WithLabelValues("failed").Inc()
		return nil, fmt.Errorf("store capture %s: %w", key, err)
	}
	metrics.Uploads.WithLabelValues("stored").Inc()

	url := strings.TrimRight(g.settings.Load().PublicURL, "/") + "/" + key
	return JSON(http.StatusOK, uploadResponse{OK: true, Key: key, URL: &url}), nil
}

// Price is one commodity quote.
type Price struct {
	Commodity  string  `json:"commodity"`
	Unit       string  `json:"unit"`
	Price      float64 `json:"price"`
	Currency   string  `json:"currency"`
	ReportedAt string  `json:"reportedAt"`
}

type cacheHint struct {
	TTLSeconds int `json:"ttlSeconds"`
}

type pricesResponse struct {
	OK       bool      `json:"ok"`
	Location string    `json:"location"`
	Since    string    `json:"since"`
	Source   string    `json:"source"`
	Prices   []Price   `json:"prices"`
	Cache    cacheHint `json:"cache"`
}

func (g *Gateway) prices(_ context.Context, r *http.Request) (*Response, error) {
	q := r.URL.Query()
	location := q.Get("location")
	if location == "" {
		location = defaultLocation
	}
	since := q.Get("since")
	if since == "" {
		since = iso(g.now().Add(-24 * time.Hour))
	}
	source := g.settings.Load().MarketSource
	if source == "" {
		source = notConfigured
	}

	resp := JSON(http.StatusOK, pricesResponse{
		OK:       true,
		Location: location,
		Since:    since,
		Source:   source,
		Prices: []Price{
			{Commodity: "Arecanut (Chali)", Unit: "kg", Price: 345, Currency: "INR", ReportedAt: since},
			{Commodity: "Arecanut (Red)", Unit: "kg", Price: 362, Currency: "INR", ReportedAt: since},
		},
		Cache: cacheHint{TTLSeconds: priceCacheTTL},
	})
	resp.Header.Set("Cache-Control", priceCacheHeader)
	return resp, nil
}

type alertsRequest struct {
	Lat    *float64 `json:"lat" validate:"required"`
	Lon    *float64 `json:"lon" validate:"required"`
	Radius *float64 `json:"radius"`
}

// Coordinates is a WGS84 point.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Alert is a field advisory near the caller.
type Alert struct {
	ID              string      `json:"id"`
	Type            string      `json:"type"`
	Title           string      `json:"title"`
	Severity        string      `json:"severity"`
	RadiusKm        float64     `json:"radiusKm"`
	Centroid        Coordinates `json:"centroid"`
	IssuedAt        string      `json:"issuedAt"`
	Recommendations []string    `json:"recommendations"`
}

type alertsResponse struct {
	OK     bool    `json:"ok"`
	Alerts []Alert `json:"alerts"`
}

func (g *Gateway) alertsNearby(_ context.Context, r *http.Request) (*Response, error) {
	var req alertsRequest
	if err := decodeBody(r, &req, bodyRule{apierror.CodeCoordinatesRequired, "lat and lon are required numbers"}); err != nil {
		return nil, err
	}
	radius := defaultRadiusKm
	if req.Radius != nil {
		radius = *req.Radius
	}

	return JSON(http.StatusOK, alertsResponse{
		OK: true,
		Alerts: []Alert{{
			ID:       "alert-001",
			Type:     "disease-hotspot",
			Title:    "Leaf spot surge detected nearby",
			Severity: "high",
			RadiusKm: radius,
			Centroid: Coordinates{Lat: *req.Lat, Lon: *req.Lon},
			IssuedAt: iso(g.now().Add(-time.Hour)),
			Recommendations: []string{
				"Schedule scouting twice daily.",
				"Inform neighboring growers via FPO WhatsApp groups.",
			},
		}},
	}), nil
}

// preflight answers CORS preflight requests; the CORS stage adds the headers.
func (g *Gateway) preflight(_ context.Context, _ *http.Request) (*Response, error) {
	return NoContent(), nil
}

func correlationOf(ctx context.Context) string {
	if rc := middleware.FromContext(ctx); rc != nil {
		return rc.CorrelationID
	}
	return ""
}
