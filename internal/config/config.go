package config

import (
	"bytes"
	"encoding/json"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/vango-dev/vmsync/internal/errors"
)

const (
	// ConfigFileName is the name of the configuration file.
	ConfigFileName = "vmsync.json"

	// TOMLConfigFileName is the alternative TOML configuration file.
	TOMLConfigFileName = "vmsync.toml"

	// DefaultHubURL is the hub endpoint used when none is configured.
	DefaultHubURL = "ws://localhost:5000/dotnetify"

	// DefaultMetricsAddr is the default listen address for /metrics.
	DefaultMetricsAddr = ":9090"

	// DefaultNamespace is the default metrics namespace and tracer name.
	DefaultNamespace = "vmsync"
)

// Default durations, as written in vmsync.json.
const (
	DefaultHandshakeTimeout = "10s"
	DefaultWriteTimeout     = "10s"
	DefaultPingInterval     = "30s"
	DefaultInitialDelay     = "500ms"
	DefaultMaxDelay         = "30s"
	DefaultMultiplier       = 2.0
	DefaultMaxMessageSize   = 1 << 20
)

// Config represents the complete vmsync.json configuration.
type Config struct {
	// Hub contains the connection settings for the view-model hub.
	Hub HubConfig `json:"hub" toml:"hub"`

	// Debug traces every sent and received payload.
	Debug bool `json:"debug,omitempty" toml:"debug,omitempty"`

	// Metrics contains Prometheus settings.
	Metrics MetricsConfig `json:"metrics,omitempty" toml:"metrics,omitempty"`

	// Tracing contains OpenTelemetry settings.
	Tracing TracingConfig `json:"tracing,omitempty" toml:"tracing,omitempty"`

	// configPath stores the path where the config was loaded from.
	configPath string
}

// HubConfig contains hub connection settings.
type HubConfig struct {
	// URL is the WebSocket endpoint of the hub.
	URL string `json:"url" toml:"url"`

	// Headers are sent with the WebSocket handshake.
	Headers map[string]string `json:"headers,omitempty" toml:"headers,omitempty"`

	// HandshakeTimeout bounds the WebSocket handshake.
	HandshakeTimeout string `json:"handshakeTimeout,omitempty" toml:"handshakeTimeout,omitempty"`

	// WriteTimeout bounds each message write.
	WriteTimeout string `json:"writeTimeout,omitempty" toml:"writeTimeout,omitempty"`

	// PingInterval is the time between keepalive pings. "0s" disables pings.
	PingInterval string `json:"pingInterval,omitempty" toml:"pingInterval,omitempty"`

	// MaxMessageSize is the largest message accepted from the hub.
	MaxMessageSize int64 `json:"maxMessageSize,omitempty" toml:"maxMessageSize,omitempty"`

	// Reconnect controls the redial backoff.
	Reconnect ReconnectConfig `json:"reconnect,omitempty" toml:"reconnect,omitempty"`
}

// ReconnectConfig contains redial backoff settings.
type ReconnectConfig struct {
	InitialDelay string  `json:"initialDelay,omitempty" toml:"initialDelay,omitempty"`
	MaxDelay     string  `json:"maxDelay,omitempty" toml:"maxDelay,omitempty"`
	Multiplier   float64 `json:"multiplier,omitempty" toml:"multiplier,omitempty"`
	Jitter       bool    `json:"jitter,omitempty" toml:"jitter,omitempty"`
}

// MetricsConfig contains Prometheus settings.
type MetricsConfig struct {
	// Enabled registers the traffic metrics middleware.
	Enabled bool `json:"enabled,omitempty" toml:"enabled,omitempty"`

	// Addr is where the CLI serves /metrics.
	Addr string `json:"addr,omitempty" toml:"addr,omitempty"`

	// Namespace prefixes every metric name.
	Namespace string `json:"namespace,omitempty" toml:"namespace,omitempty"`
}

// TracingConfig contains OpenTelemetry settings.
type TracingConfig struct {
	// Enabled registers the tracing middleware.
	Enabled bool `json:"enabled,omitempty" toml:"enabled,omitempty"`

	// TracerName is the name passed to otel.Tracer.
	TracerName string `json:"tracerName,omitempty" toml:"tracerName,omitempty"`
}

// New creates a new Config with default values.
func New() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// Load reads configuration from the specified directory.
// It looks for vmsync.json, then vmsync.toml.
func Load(dir string) (*Config, error) {
	path := filepath.Join(dir, ConfigFileName)
	if _, err := os.Stat(path); err != nil {
		if alt := filepath.Join(dir, TOMLConfigFileName); fileExists(alt) {
			path = alt
		}
	}
	return LoadFile(path)
}

// LoadFile reads configuration from the specified file path.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.New("E141").
				WithDetail("No config file found at " + path).
				WithSuggestion("Pass --url instead, or create the file")
		}
		return nil, errors.New("E120").Wrap(err)
	}

	cfg := &Config{}
	if isTOML(path) {
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, errors.New("E120").
				WithDetail("Failed to parse " + filepath.Base(path) + ": " + err.Error()).
				WithSuggestion("Check that " + filepath.Base(path) + " is valid TOML")
		}
	} else if err := json.Unmarshal(data, cfg); err != nil {
		return nil, errors.New("E120").
			WithDetail("Failed to parse " + filepath.Base(path) + ": " + err.Error()).
			WithSuggestion("Check that " + filepath.Base(path) + " is valid JSON")
	}

	cfg.configPath = path
	cfg.applyDefaults()

	return cfg, nil
}

// Save writes the configuration to the file it was loaded from.
func (c *Config) Save() error {
	if c.configPath == "" {
		return errors.Newf(errors.CategoryConfig, "no config path set")
	}
	return c.SaveTo(c.configPath)
}

// SaveTo writes the configuration to the specified path, as TOML if the
// path ends in .toml and as JSON otherwise.
func (c *Config) SaveTo(path string) error {
	var data []byte
	if isTOML(path) {
		var buf bytes.Buffer
		if err := toml.NewEncoder(&buf).Encode(c); err != nil {
			return errors.New("E120").Wrap(err)
		}
		data = buf.Bytes()
	} else {
		var err error
		data, err = json.MarshalIndent(c, "", "  ")
		if err != nil {
			return errors.New("E120").Wrap(err)
		}
		// Add newline at end of file
		data = append(data, '\n')
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.New("E120").Wrap(err)
	}

	c.configPath = path
	return nil
}

// Path returns the path where the config was loaded from.
func (c *Config) Path() string {
	return c.configPath
}

// applyDefaults fills in default values for empty fields.
func (c *Config) applyDefaults() {
	if c.Hub.URL == "" {
		c.Hub.URL = DefaultHubURL
	}
	if c.Hub.HandshakeTimeout == "" {
		c.Hub.HandshakeTimeout = DefaultHandshakeTimeout
	}
	if c.Hub.WriteTimeout == "" {
		c.Hub.WriteTimeout = DefaultWriteTimeout
	}
	if c.Hub.PingInterval == "" {
		c.Hub.PingInterval = DefaultPingInterval
	}
	if c.Hub.MaxMessageSize == 0 {
		c.Hub.MaxMessageSize = DefaultMaxMessageSize
	}

	// Reconnect
	if c.Hub.Reconnect.InitialDelay == "" {
		c.Hub.Reconnect.InitialDelay = DefaultInitialDelay
	}
	if c.Hub.Reconnect.MaxDelay == "" {
		c.Hub.Reconnect.MaxDelay = DefaultMaxDelay
	}
	if c.Hub.Reconnect.Multiplier == 0 {
		c.Hub.Reconnect.Multiplier = DefaultMultiplier
	}

	// Observability
	if c.Metrics.Addr == "" {
		c.Metrics.Addr = DefaultMetricsAddr
	}
	if c.Metrics.Namespace == "" {
		c.Metrics.Namespace = DefaultNamespace
	}
	if c.Tracing.TracerName == "" {
		c.Tracing.TracerName = DefaultNamespace
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	u, err := url.Parse(c.Hub.URL)
	if err != nil || (u.Scheme != "ws" && u.Scheme != "wss") || u.Host == "" {
		e := errors.New("E121").WithDetail("hub.url = " + c.Hub.URL)
		if err != nil {
			e.Wrap(err)
		}
		return e
	}

	for name, value := range map[string]string{
		"hub.handshakeTimeout":       c.Hub.HandshakeTimeout,
		"hub.writeTimeout":           c.Hub.WriteTimeout,
		"hub.pingInterval":           c.Hub.PingInterval,
		"hub.reconnect.initialDelay": c.Hub.Reconnect.InitialDelay,
		"hub.reconnect.maxDelay":     c.Hub.Reconnect.MaxDelay,
	} {
		if _, err := parseDuration(name, value); err != nil {
			return err
		}
	}

	if c.Hub.Reconnect.Multiplier < 1 {
		return errors.New("E123").WithDetailf("hub.reconnect.multiplier = %v", c.Hub.Reconnect.Multiplier)
	}
	initial, _ := parseDuration("", c.Hub.Reconnect.InitialDelay)
	maxDelay, _ := parseDuration("", c.Hub.Reconnect.MaxDelay)
	if maxDelay < initial {
		return errors.New("E123").WithDetailf("hub.reconnect.maxDelay %s is below initialDelay %s", maxDelay, initial)
	}
	return nil
}

// HandshakeTimeoutDuration returns the parsed handshake timeout.
func (h HubConfig) HandshakeTimeoutDuration() time.Duration {
	return durationOr(h.HandshakeTimeout, DefaultHandshakeTimeout)
}

// WriteTimeoutDuration returns the parsed write timeout.
func (h HubConfig) WriteTimeoutDuration() time.Duration {
	return durationOr(h.WriteTimeout, DefaultWriteTimeout)
}

// PingIntervalDuration returns the parsed ping interval.
func (h HubConfig) PingIntervalDuration() time.Duration {
	return durationOr(h.PingInterval, DefaultPingInterval)
}

// InitialDelayDuration returns the parsed initial redial delay.
func (r ReconnectConfig) InitialDelayDuration() time.Duration {
	return durationOr(r.InitialDelay, DefaultInitialDelay)
}

// MaxDelayDuration returns the parsed maximum redial delay.
func (r ReconnectConfig) MaxDelayDuration() time.Duration {
	return durationOr(r.MaxDelay, DefaultMaxDelay)
}

func parseDuration(name, value string) (time.Duration, error) {
	d, err := time.ParseDuration(value)
	if err != nil || d < 0 {
		e := errors.New("E122").WithDetailf("%s = %q", name, value)
		if err != nil {
			e.Wrap(err)
		}
		return 0, e
	}
	return d, nil
}

func durationOr(value, fallback string) time.Duration {
	if d, err := time.ParseDuration(value); err == nil && d >= 0 {
		return d
	}
	d, _ := time.ParseDuration(fallback)
	return d
}

// Exists checks if a config file exists in the given directory.
func Exists(dir string) bool {
	return fileExists(filepath.Join(dir, ConfigFileName)) ||
		fileExists(filepath.Join(dir, TOMLConfigFileName))
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func isTOML(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".toml")
}
