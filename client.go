package vmsync

import (
	"context"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/vango-dev/vmsync/internal/config"
	"github.com/vango-dev/vmsync/internal/errors"
	"github.com/vango-dev/vmsync/pkg/hub"
	"github.com/vango-dev/vmsync/pkg/middleware"
	"github.com/vango-dev/vmsync/pkg/viewmodel"
)

// Client connects view models to a hub.
//
//	cfg, err := vmsync.LoadConfig(".")
//	client, err := vmsync.New(cfg)
//	defer client.Close()
//
//	bag := viewmodel.NewStateBag(nil, nil)
//	vm, err := client.Connect("HelloWorld", bag)
//	err = client.WaitReady(ctx, vm)
type Client struct {
	hub      *hub.Hub
	registry *viewmodel.Registry
	metrics  *middleware.Metrics
	file     *FileConfig
	logger   *slog.Logger
	unsubs   []func()
}

// New creates a client. The hub is dialed when the first view model
// connects.
func New(cfg Config) (*Client, error) {
	file := cfg.File
	if file == nil {
		file = config.New()
	}
	if err := file.Validate(); err != nil {
		return nil, err
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	hubCfg := hub.ConfigFrom(file.Hub)
	hubCfg.Logger = logger
	hubCfg.Dialer = cfg.Dialer
	c := &Client{
		hub:    hub.New(hubCfg),
		file:   file,
		logger: logger.With("component", "vmsync"),
	}

	opts := []viewmodel.RegistryOption{viewmodel.WithLogger(logger.With("component", "viewmodel"))}
	switch {
	case cfg.Debug != nil:
		opts = append(opts, viewmodel.WithDebug(cfg.Debug))
	case file.Debug:
		opts = append(opts, viewmodel.WithDebug(c.logDebug))
	}

	if file.Metrics.Enabled {
		mopts := []middleware.MetricsOption{middleware.WithNamespace(file.Metrics.Namespace)}
		if cfg.Registerer != nil {
			mopts = append(mopts, middleware.WithRegistry(cfg.Registerer))
		} else {
			mopts = append(mopts, middleware.WithRegistry(prometheus.DefaultRegisterer))
		}
		c.metrics = middleware.Prometheus(mopts...)
		opts = append(opts, viewmodel.WithMiddleware(c.metrics.Middleware()))
		c.unsubs = append(c.unsubs,
			c.hub.OnError(c.metrics.RecordHubError),
			c.hub.OnReconnected(c.metrics.RecordReconnect),
		)
	}
	if file.Tracing.Enabled {
		topts := []middleware.OTelOption{middleware.WithTracerName(file.Tracing.TracerName)}
		if cfg.TracerProvider != nil {
			topts = append(topts, middleware.WithTracerProvider(cfg.TracerProvider))
		}
		opts = append(opts, viewmodel.WithMiddleware(middleware.OpenTelemetry(topts...)))
	}
	opts = append(opts, viewmodel.WithMiddleware(cfg.Middleware...))

	c.registry = viewmodel.NewRegistry(c.hub, opts...)
	if err := c.registry.Use(readiness{}); err != nil {
		return nil, err
	}
	if c.metrics != nil {
		if err := c.registry.Use(c.metrics); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Connect creates the proxy for view model id. See viewmodel.Registry.Connect.
func (c *Client) Connect(id string, component viewmodel.Component, opts ...viewmodel.Option) (*viewmodel.Proxy, error) {
	return c.registry.Connect(id, component, opts...)
}

// WaitReady blocks until the first update of p has been applied.
func (c *Client) WaitReady(ctx context.Context, p *viewmodel.Proxy) error {
	v, ok := p.Get(readyKey)
	if !ok {
		return errors.New("E142").WithVM(p.ID()).WithDetail("proxy was not connected through this client")
	}
	select {
	case <-v.(chan struct{}):
		return nil
	case <-ctx.Done():
		return errors.New("E142").WithVM(p.ID()).Wrap(ctx.Err())
	}
}

// OnError subscribes to hub errors.
func (c *Client) OnError(fn func(error)) func() {
	return c.hub.OnError(fn)
}

// Registry returns the view-model registry.
func (c *Client) Registry() *viewmodel.Registry {
	return c.registry
}

// Hub returns the hub connection.
func (c *Client) Hub() *hub.Hub {
	return c.hub
}

// Metrics returns the Prometheus metrics, or nil when disabled.
func (c *Client) Metrics() *middleware.Metrics {
	return c.metrics
}

// FileConfig returns the settings the client was created with.
func (c *Client) FileConfig() *FileConfig {
	return c.file
}

// Close destroys every view model and closes the hub.
func (c *Client) Close() error {
	for _, p := range c.registry.ViewModels() {
		p.Destroy()
	}
	c.registry.Close()
	for _, unsub := range c.unsubs {
		unsub()
	}
	return c.hub.Close()
}

func (c *Client) logDebug(vmID string, direction viewmodel.Direction, value any) {
	c.logger.Debug(string(direction), "vm_id", vmID, "value", value)
}

const readyKey = "vmsync.ready"

// readiness gives every proxy a channel that is closed once it has loaded.
type readiness struct{}

func (readiness) Name() string { return "vmsync.ready" }

func (readiness) OnAttach(p *viewmodel.Proxy) {
	p.Set(readyKey, make(chan struct{}))
}

func (readiness) OnReady(p *viewmodel.Proxy) {
	if v, ok := p.Get(readyKey); ok {
		close(v.(chan struct{}))
	}
}
