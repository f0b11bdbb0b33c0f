package middleware

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/vango-dev/vmsync/internal/errors"
	"github.com/vango-dev/vmsync/pkg/viewmodel"
)

// Default tracer name.
const defaultTracerName = "vmsync"

// OTelConfig configures the OpenTelemetry middleware.
type OTelConfig struct {
	// TracerName is the name of the tracer (default: "vmsync").
	TracerName string

	// TracerProvider defaults to the global provider.
	TracerProvider trace.TracerProvider

	// Filter determines which traffic to trace.
	// If nil, all traffic is traced.
	Filter func(t *viewmodel.Traffic) bool

	// AttributeExtractor adds custom attributes to each span.
	AttributeExtractor func(t *viewmodel.Traffic) []attribute.KeyValue

	tracer trace.Tracer
}

// OTelOption configures the OpenTelemetry middleware.
type OTelOption func(*OTelConfig)

// WithTracerName sets the tracer name.
func WithTracerName(name string) OTelOption {
	return func(c *OTelConfig) {
		c.TracerName = name
	}
}

// WithTracerProvider sets the tracer provider.
func WithTracerProvider(tp trace.TracerProvider) OTelOption {
	return func(c *OTelConfig) {
		c.TracerProvider = tp
	}
}

// WithTrafficFilter sets a filter function for traffic.
func WithTrafficFilter(filter func(t *viewmodel.Traffic) bool) OTelOption {
	return func(c *OTelConfig) {
		c.Filter = filter
	}
}

// WithAttributeExtractor sets a custom attribute extractor.
func WithAttributeExtractor(extractor func(t *viewmodel.Traffic) []attribute.KeyValue) OTelOption {
	return func(c *OTelConfig) {
		c.AttributeExtractor = extractor
	}
}

// OpenTelemetry creates middleware that traces every view-model message.
//
// Each span is named "vmsync.<direction>" and carries the view-model id
// and payload size. Received updates also record the applied and rejected
// list operation counts. Errors set the span status.
func OpenTelemetry(opts ...OTelOption) viewmodel.Middleware {
	config := OTelConfig{TracerName: defaultTracerName}
	for _, opt := range opts {
		opt(&config)
	}

	if config.TracerProvider != nil {
		config.tracer = config.TracerProvider.Tracer(config.TracerName)
	} else {
		config.tracer = otel.Tracer(config.TracerName)
	}

	return func(t *viewmodel.Traffic, next func() error) error {
		if config.Filter != nil && !config.Filter(t) {
			return next()
		}

		attrs := []attribute.KeyValue{
			attribute.String("vmsync.vm_id", t.VMID),
			attribute.String("vmsync.direction", string(t.Direction)),
		}
		if len(t.Payload) > 0 {
			attrs = append(attrs, attribute.Int("vmsync.payload_bytes", len(t.Payload)))
		}
		if len(t.Value) > 0 {
			attrs = append(attrs, attribute.Int("vmsync.fields", len(t.Value)))
		}
		if config.AttributeExtractor != nil {
			attrs = append(attrs, config.AttributeExtractor(t)...)
		}

		kind := trace.SpanKindClient
		if t.Direction == viewmodel.DirectionReceived {
			kind = trace.SpanKindConsumer
		}
		_, span := config.tracer.Start(
			context.Background(),
			"vmsync."+string(t.Direction),
			trace.WithSpanKind(kind),
			trace.WithAttributes(attrs...),
		)
		defer span.End()

		err := next()

		if t.Direction == viewmodel.DirectionReceived {
			span.SetAttributes(
				attribute.Int("vmsync.ops_applied", t.Applied),
				attribute.Int("vmsync.ops_rejected", len(t.Rejected)),
			)
		}
		if err != nil {
			span.RecordError(err)
			if code := errors.Code(err); code != "" {
				span.SetAttributes(attribute.String("vmsync.error_code", code))
			}
			span.SetStatus(codes.Error, err.Error())
		} else {
			span.SetStatus(codes.Ok, "")
		}
		return err
	}
}
