package gateway

import (
	"sync/atomic"

	"github.com/oriys/areca-gateway/internal/config"
	"github.com/oriys/areca-gateway/internal/middleware"
)

// Settings is the read-only, hot-reloadable view of the configuration used at
// request time. A new value is built on every reload and swapped atomically.
type Settings struct {
	ModelVersion   string
	FrontendOrigin string
	InferenceURL   string
	InferenceKey   string
	MarketSource   string
	PublicURL      string

	// Pipeline holds the settings the middleware stages read.
	Pipeline middleware.Options
}

// SettingsFromConfig builds Settings from a loaded configuration.
func SettingsFromConfig(cfg *config.Config) *Settings {
	return &Settings{
		ModelVersion:   cfg.Gateway.ModelVersion,
		FrontendOrigin: cfg.Gateway.FrontendOrigin,
		InferenceURL:   cfg.Inference.URL,
		InferenceKey:   cfg.Inference.Key,
		MarketSource:   cfg.Market.Source,
		PublicURL:      cfg.Storage.PublicURL,
		Pipeline: middleware.Options{
			CorrelationHeaders: append([]string(nil), cfg.Gateway.CorrelationHeaders...),
			ClientIPHeader:     cfg.Gateway.ClientIPHeader,
			AllowedOrigins:     append([]string(nil), cfg.Gateway.AllowedOrigins...),
			ModelVersion:       cfg.Gateway.ModelVersion,
		},
	}
}

// SettingsStore provides atomic access to the current Settings.
type SettingsStore struct {
	current atomic.Pointer[Settings]
}

// NewSettingsStore creates a store holding s.
func NewSettingsStore(s *Settings) *SettingsStore {
	st := &SettingsStore{}
	st.Store(s)
	return st
}

// Store atomically replaces the current Settings.
func (st *SettingsStore) Store(s *Settings) {
	if s == nil {
		s = &Settings{}
	}
	st.current.Store(s)
}

// Load returns the current Settings.
func (st *SettingsStore) Load() *Settings {
	return st.current.Load()
}

// Apply swaps in the hot settings of a reloaded configuration.
func (st *SettingsStore) Apply(cfg *config.Config) {
	st.Store(SettingsFromConfig(cfg))
}

func (st *SettingsStore) pipeline() *middleware.Options {
	return &st.Load().Pipeline
}

// FrontendOrigin returns the frontend origin in effect.
func (st *SettingsStore) FrontendOrigin() string {
	return st.Load().FrontendOrigin
}
