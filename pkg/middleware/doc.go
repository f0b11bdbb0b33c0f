// Package middleware provides observability middleware for view-model
// traffic.
//
// This package includes:
//   - Prometheus metrics for requests, updates, disposals and rejected list
//     operations
//   - OpenTelemetry tracing, one span per message
//
// # Prometheus Metrics
//
// Metrics is both a viewmodel.Middleware source and a viewmodel.Extension;
// register it as both so the active view model gauge is kept:
//
//	m := middleware.Prometheus(middleware.WithNamespace("myapp"))
//	reg := viewmodel.NewRegistry(hub, viewmodel.WithMiddleware(m.Middleware()))
//	_ = reg.Use(m)
//
// Collected metrics:
//   - vmsync_traffic_total: messages by direction and status
//   - vmsync_traffic_duration_seconds: handling time by direction
//   - vmsync_traffic_errors_total: failed messages by direction and error code
//   - vmsync_ops_rejected_total: skipped list operations by reason
//   - vmsync_active_view_models: connected view models
//   - vmsync_hub_errors_total: errors reported by the hub, by code
//   - vmsync_reconnects_total: hub reconnects
//
// Expose them with promhttp:
//
//	http.Handle("/metrics", promhttp.Handler())
//
// # OpenTelemetry
//
//	reg := viewmodel.NewRegistry(hub, viewmodel.WithMiddleware(
//	    middleware.OpenTelemetry(middleware.WithTracerName("my-app")),
//	))
//
// Spans use the global tracer provider unless WithTracerProvider is given.
package middleware
