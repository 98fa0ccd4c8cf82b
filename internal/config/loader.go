package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/goccy/go-json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// envMappings maps deployment environment variables to koanf paths. Names
// match the bindings the edge deployment already sets.
var envMappings = map[string]string{
	"model_version":            "gateway.model_version",
	"frontend_origin":          "gateway.frontend_origin",
	"worker_allowlist_origins": "gateway.allowed_origins",
	"client_ip_header":         "gateway.client_ip_header",
	"rate_limit_backend":       "rate_limit.backend",
	"rate_limit_limit":         "rate_limit.limit",
	"rate_limit_window":        "rate_limit.window",
	"redis_addr":               "redis.addr",
	"redis_password":           "redis.password",
	"redis_db":                 "redis.db",
	"storage_backend":          "storage.backend",
	"storage_public_url":       "storage.public_url",
	"badger_path":              "storage.badger_path",
	"inference_url":            "inference.url",
	"inference_key":            "inference.key",
	"sentry_dsn":               "telemetry.endpoint",
	"market_data_source":       "market.source",
	"http_listen":              "server.listen",
	"admin_listen":             "admin.listen",
	"admin_enabled":            "admin.enabled",
	"log_level":                "logging.level",
	"log_format":               "logging.format",
}

// sliceConfigPaths arrive from the environment as comma-separated strings.
var sliceConfigPaths = []string{
	"gateway.allowed_origins",
	"gateway.correlation_headers",
}

func envTransform(key string) string {
	return envMappings[strings.ToLower(key)]
}

// Loader handles loading and hot-reloading of gateway configuration.
// Sources are layered: built-in defaults, then the optional YAML file, then
// the environment.
type Loader struct {
	path     string
	current  atomic.Pointer[Config]
	versions *VersionManager
}

// NewLoader creates a loader. An empty path skips the file layer.
func NewLoader(path string) *Loader {
	return &Loader{path: path, versions: NewVersionManager(10)}
}

// Path returns the config file path, if any.
func (l *Loader) Path() string { return l.path }

// Versions returns the load history.
func (l *Loader) Versions() *VersionManager { return l.versions }

// Load reads every layer, validates the result and makes it current.
func (l *Loader) Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(Default(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}
	if l.path != "" {
		if err := k.Load(file.Provider(l.path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}
	if err := k.Load(env.Provider("", ".", envTransform), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}
	if err := splitSliceFields(k); err != nil {
		return nil, err
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	raw, err := json.Marshal(&cfg)
	if err != nil {
		return nil, fmt.Errorf("encode config: %w", err)
	}
	l.versions.Save(&cfg, raw)
	l.current.Store(&cfg)
	return &cfg, nil
}

func splitSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		s, ok := k.Get(path).(string)
		if !ok {
			continue
		}
		parts := strings.Split(s, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		if err := k.Set(path, out); err != nil {
			return fmt.Errorf("set %s: %w", path, err)
		}
	}
	return nil
}

// Current returns the currently loaded configuration.
func (l *Loader) Current() *Config {
	return l.current.Load()
}

// Watch starts watching the configuration file for changes and calls onChange
// when the file is modified. It blocks until the done channel is closed.
// Without a file it only waits for done.
func (l *Loader) Watch(onChange func(*Config), done <-chan struct{}) error {
	if l.path == "" {
		<-done
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create file watcher: %w", err)
	}
	defer watcher.Close()

	// Watch the directory so editors that replace the file are seen.
	dir := filepath.Dir(l.path)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watch config dir: %w", err)
	}
	target := filepath.Clean(l.path)

	slog.Info("watching config file for changes", slog.String("path", l.path))

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if _, err := os.Stat(l.path); err != nil {
				continue
			}
			slog.Info("config file changed, reloading", slog.String("path", l.path))
			cfg, err := l.Load()
			if err != nil {
				slog.Error("failed to reload config, keeping current",
					slog.String("error", err.Error()),
				)
				continue
			}
			if onChange != nil {
				onChange(cfg)
			}
			slog.Info("config reloaded successfully",
				slog.Int("version", l.versions.Current().Version),
			)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.Error("config watcher error", slog.String("error", err.Error()))
		case <-done:
			return nil
		}
	}
}
