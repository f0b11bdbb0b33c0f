package middleware

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/vango-dev/vmsync/internal/errors"
	"github.com/vango-dev/vmsync/pkg/viewmodel"
)

// MetricsConfig configures the Prometheus metrics.
type MetricsConfig struct {
	// Namespace is the metrics namespace (default: "vmsync").
	Namespace string

	// Subsystem is the metrics subsystem (default: "").
	Subsystem string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// Buckets are the histogram buckets for traffic duration.
	// Default: prometheus.DefBuckets
	Buckets []float64

	// Registry is the Prometheus registry to use.
	// Default: prometheus.DefaultRegisterer
	Registry prometheus.Registerer
}

// MetricsOption configures the Prometheus metrics.
type MetricsOption func(*MetricsConfig)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Namespace = namespace
	}
}

// WithSubsystem sets the metrics subsystem.
func WithSubsystem(subsystem string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Subsystem = subsystem
	}
}

// WithConstLabels sets constant labels for all metrics.
func WithConstLabels(labels prometheus.Labels) MetricsOption {
	return func(c *MetricsConfig) {
		c.ConstLabels = labels
	}
}

// WithBuckets sets the histogram buckets.
func WithBuckets(buckets []float64) MetricsOption {
	return func(c *MetricsConfig) {
		c.Buckets = buckets
	}
}

// WithRegistry sets the Prometheus registry.
func WithRegistry(registry prometheus.Registerer) MetricsOption {
	return func(c *MetricsConfig) {
		c.Registry = registry
	}
}

func defaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Namespace: "vmsync",
		Buckets:   prometheus.DefBuckets,
		Registry:  prometheus.DefaultRegisterer,
	}
}

// Metrics holds the Prometheus metrics for view-model traffic.
type Metrics struct {
	trafficTotal    *prometheus.CounterVec
	trafficDuration *prometheus.HistogramVec
	trafficErrors   *prometheus.CounterVec
	opsRejected     *prometheus.CounterVec
	activeVMs       prometheus.Gauge
	hubErrors       *prometheus.CounterVec
	reconnectsTotal prometheus.Counter
}

// Metrics registered on the default registerer are created once, since a
// second registration would panic.
var (
	globalMetrics   *Metrics
	globalMetricsMu sync.Mutex
)

// NewMetrics registers a fresh set of metrics on config.Registry.
func NewMetrics(config MetricsConfig) *Metrics {
	factory := promauto.With(config.Registry)

	return &Metrics{
		trafficTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "traffic_total",
			Help:        "Total number of view-model messages handled",
			ConstLabels: config.ConstLabels,
		}, []string{"direction", "status"}),

		trafficDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "traffic_duration_seconds",
			Help:        "View-model message handling duration in seconds",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}, []string{"direction"}),

		trafficErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "traffic_errors_total",
			Help:        "Total number of failed view-model messages",
			ConstLabels: config.ConstLabels,
		}, []string{"direction", "code"}),

		opsRejected: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "ops_rejected_total",
			Help:        "Total number of list operations skipped by reason",
			ConstLabels: config.ConstLabels,
		}, []string{"reason"}),

		activeVMs: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "active_view_models",
			Help:        "Number of connected view models",
			ConstLabels: config.ConstLabels,
		}),

		hubErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "hub_errors_total",
			Help:        "Total hub errors by code",
			ConstLabels: config.ConstLabels,
		}, []string{"code"}),

		reconnectsTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "reconnects_total",
			Help:        "Total number of hub reconnects",
			ConstLabels: config.ConstLabels,
		}),
	}
}

// Prometheus returns the traffic metrics. With the default registerer the
// same Metrics is returned on every call.
//
// Example:
//
//	m := middleware.Prometheus(middleware.WithNamespace("myapp"))
//	reg := viewmodel.NewRegistry(hub, viewmodel.WithMiddleware(m.Middleware()))
//	_ = reg.Use(m)
//
//	http.Handle("/metrics", promhttp.Handler())
func Prometheus(opts ...MetricsOption) *Metrics {
	config := defaultMetricsConfig()
	for _, opt := range opts {
		opt(&config)
	}
	if config.Registry != prometheus.DefaultRegisterer {
		return NewMetrics(config)
	}

	globalMetricsMu.Lock()
	defer globalMetricsMu.Unlock()
	if globalMetrics == nil {
		globalMetrics = NewMetrics(config)
	}
	return globalMetrics
}

// Middleware returns the traffic middleware.
func (m *Metrics) Middleware() viewmodel.Middleware {
	return func(t *viewmodel.Traffic, next func() error) error {
		direction := string(t.Direction)
		start := time.Now()

		err := next()

		m.trafficDuration.WithLabelValues(direction).Observe(time.Since(start).Seconds())

		status := "success"
		switch {
		case err != nil:
			status = "error"
			m.trafficErrors.WithLabelValues(direction, errorCode(err)).Inc()
		case len(t.Rejected) > 0:
			status = "partial"
		}
		m.trafficTotal.WithLabelValues(direction, status).Inc()

		for _, d := range t.Rejected {
			m.opsRejected.WithLabelValues(string(d.Reason)).Inc()
		}
		return err
	}
}

// Name implements viewmodel.Extension.
func (m *Metrics) Name() string {
	return "prometheus"
}

// OnAttach counts a connected view model.
func (m *Metrics) OnAttach(*viewmodel.Proxy) {
	m.activeVMs.Inc()
}

// OnDetach uncounts a destroyed view model.
func (m *Metrics) OnDetach(*viewmodel.Proxy) {
	m.activeVMs.Dec()
}

// RecordHubError counts an error reported by the hub. Subscribe it with
// hub.OnError.
func (m *Metrics) RecordHubError(err error) {
	m.hubErrors.WithLabelValues(errorCode(err)).Inc()
}

// RecordReconnect counts a hub reconnect. Subscribe it with
// hub.OnReconnected.
func (m *Metrics) RecordReconnect() {
	m.reconnectsTotal.Inc()
}

// errorCode keeps error labels to the registered codes.
func errorCode(err error) string {
	if code := errors.Code(err); code != "" {
		return code
	}
	return "unknown"
}
