package vmsync

import (
	"log/slog"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/trace"

	"github.com/vango-dev/vmsync/internal/config"
	"github.com/vango-dev/vmsync/pkg/viewmodel"
)

// FileConfig is the content of vmsync.json.
type FileConfig = config.Config

// Config is the client configuration.
type Config struct {
	// File holds the vmsync.json settings. If nil, defaults are used.
	File *FileConfig

	// Logger is the structured logger for the client.
	// If nil, slog.Default() is used.
	Logger *slog.Logger

	// Registerer receives the Prometheus metrics when File.Metrics.Enabled
	// is set. Default: prometheus.DefaultRegisterer
	Registerer prometheus.Registerer

	// TracerProvider is used for spans when File.Tracing.Enabled is set.
	// Default: the global provider.
	TracerProvider trace.TracerProvider

	// Debug receives every payload sent and received. If nil and
	// File.Debug is set, payloads are logged at debug level.
	Debug viewmodel.DebugFunc

	// Middleware runs inside the metrics and tracing middleware.
	Middleware []viewmodel.Middleware

	// Dialer overrides the WebSocket dialer.
	Dialer *websocket.Dialer
}

// DefaultConfig returns a Config with default file settings.
func DefaultConfig() Config {
	return Config{File: config.New()}
}

// LoadConfig reads vmsync.json (or vmsync.toml) from dir.
func LoadConfig(dir string) (Config, error) {
	file, err := config.Load(dir)
	if err != nil {
		return Config{}, err
	}
	return Config{File: file}, nil
}

// LoadConfigFile reads the configuration file at path.
func LoadConfigFile(path string) (Config, error) {
	file, err := config.LoadFile(path)
	if err != nil {
		return Config{}, err
	}
	return Config{File: file}, nil
}
