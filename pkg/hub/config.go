package hub

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/vango-dev/vmsync/internal/config"
)

// Config configures a Hub.
type Config struct {
	// URL is the ws:// or wss:// endpoint of the hub.
	URL string

	// Header is sent with the WebSocket handshake.
	Header http.Header

	// HandshakeTimeout bounds the WebSocket handshake.
	HandshakeTimeout time.Duration

	// WriteTimeout bounds each message write.
	WriteTimeout time.Duration

	// PingInterval is the time between keepalive pings. Zero disables
	// pings and read deadlines.
	PingInterval time.Duration

	// MaxMessageSize is the largest message read from the hub.
	MaxMessageSize int64

	// Backoff controls redials after a failed dial or a lost connection.
	Backoff BackoffConfig

	// Dialer overrides the default dialer.
	Dialer *websocket.Dialer

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// DefaultConfig returns a Config for url with default timeouts.
func DefaultConfig(url string) Config {
	cfg := ConfigFrom(config.New().Hub)
	cfg.URL = url
	return cfg
}

// ConfigFrom converts the hub section of vmsync.json.
func ConfigFrom(h config.HubConfig) Config {
	header := make(http.Header, len(h.Headers))
	for k, v := range h.Headers {
		header.Set(k, v)
	}
	return Config{
		URL:              h.URL,
		Header:           header,
		HandshakeTimeout: h.HandshakeTimeoutDuration(),
		WriteTimeout:     h.WriteTimeoutDuration(),
		PingInterval:     h.PingIntervalDuration(),
		MaxMessageSize:   h.MaxMessageSize,
		Backoff: BackoffConfig{
			InitialDelay: h.Reconnect.InitialDelayDuration(),
			MaxDelay:     h.Reconnect.MaxDelayDuration(),
			Multiplier:   h.Reconnect.Multiplier,
			Jitter:       h.Reconnect.Jitter,
		},
	}
}
