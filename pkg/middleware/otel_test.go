package middleware

import (
	"context"
	"sync"
	"testing"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	vmerrors "github.com/vango-dev/vmsync/internal/errors"
	"github.com/vango-dev/vmsync/pkg/reconcile"
	"github.com/vango-dev/vmsync/pkg/viewmodel"
)

type recordedSpan struct {
	noop.Span
	name   string
	kind   trace.SpanKind
	attrs  map[attribute.Key]attribute.Value
	status codes.Code
	errs   []error
	ended  bool
}

func (s *recordedSpan) SetAttributes(kv ...attribute.KeyValue) {
	for _, a := range kv {
		s.attrs[a.Key] = a.Value
	}
}

func (s *recordedSpan) SetStatus(code codes.Code, _ string) {
	s.status = code
}

func (s *recordedSpan) RecordError(err error, _ ...trace.EventOption) {
	s.errs = append(s.errs, err)
}

func (s *recordedSpan) End(...trace.SpanEndOption) {
	s.ended = true
}

type recordingTracer struct {
	noop.Tracer
	mu    sync.Mutex
	spans []*recordedSpan
}

func (r *recordingTracer) Start(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	cfg := trace.NewSpanStartConfig(opts...)
	s := &recordedSpan{name: name, kind: cfg.SpanKind(), attrs: make(map[attribute.Key]attribute.Value)}
	s.SetAttributes(cfg.Attributes()...)

	r.mu.Lock()
	r.spans = append(r.spans, s)
	r.mu.Unlock()
	return trace.ContextWithSpan(ctx, s), s
}

type recordingProvider struct {
	noop.TracerProvider
	tracer *recordingTracer
}

func (p *recordingProvider) Tracer(string, ...trace.TracerOption) trace.Tracer {
	return p.tracer
}

func newRecordingProvider() *recordingProvider {
	return &recordingProvider{tracer: &recordingTracer{}}
}

func TestOpenTelemetry_Spans(t *testing.T) {
	tests := []struct {
		name    string
		traffic viewmodel.Traffic
		err     error
		span    string
		kind    trace.SpanKind
		status  codes.Code
	}{
		{
			name:    "sent",
			traffic: viewmodel.Traffic{VMID: "A", Direction: viewmodel.DirectionSent, Value: map[string]any{"x": 1}},
			span:    "vmsync.sent",
			kind:    trace.SpanKindClient,
			status:  codes.Ok,
		},
		{
			name:    "received",
			traffic: viewmodel.Traffic{VMID: "A", Direction: viewmodel.DirectionReceived, Payload: []byte(`{"x":1}`)},
			span:    "vmsync.received",
			kind:    trace.SpanKindConsumer,
			status:  codes.Ok,
		},
		{
			name:    "failed dispose",
			traffic: viewmodel.Traffic{VMID: "A", Direction: viewmodel.DirectionDisposed},
			err:     vmerrors.New("E062"),
			span:    "vmsync.disposed",
			kind:    trace.SpanKindClient,
			status:  codes.Error,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tp := newRecordingProvider()
			mw := OpenTelemetry(WithTracerProvider(tp))

			traffic := tt.traffic
			if err := mw(&traffic, func() error { return tt.err }); err != tt.err {
				t.Fatalf("middleware returned %v, want %v", err, tt.err)
			}

			if len(tp.tracer.spans) != 1 {
				t.Fatalf("got %d spans, want 1", len(tp.tracer.spans))
			}
			span := tp.tracer.spans[0]
			if span.name != tt.span {
				t.Errorf("span name = %q, want %q", span.name, tt.span)
			}
			if span.kind != tt.kind {
				t.Errorf("span kind = %v, want %v", span.kind, tt.kind)
			}
			if span.status != tt.status {
				t.Errorf("status = %v, want %v", span.status, tt.status)
			}
			if !span.ended {
				t.Error("span not ended")
			}
			if got := span.attrs["vmsync.vm_id"].AsString(); got != "A" {
				t.Errorf("vm_id = %q", got)
			}
			if tt.err != nil {
				if len(span.errs) != 1 {
					t.Errorf("recorded %d errors, want 1", len(span.errs))
				}
				if got := span.attrs["vmsync.error_code"].AsString(); got != "E062" {
					t.Errorf("error_code = %q", got)
				}
			}
		})
	}
}

func TestOpenTelemetry_ReceivedCounts(t *testing.T) {
	tp := newRecordingProvider()
	mw := OpenTelemetry(WithTracerProvider(tp))

	traffic := &viewmodel.Traffic{VMID: "A", Direction: viewmodel.DirectionReceived, Payload: []byte(`{}`)}
	_ = mw(traffic, func() error {
		traffic.Applied = 2
		traffic.Rejected = []reconcile.Diagnostic{{List: "Items", Reason: reconcile.ReasonDuplicateKey}}
		return nil
	})

	span := tp.tracer.spans[0]
	if got := span.attrs["vmsync.ops_applied"].AsInt64(); got != 2 {
		t.Errorf("ops_applied = %d, want 2", got)
	}
	if got := span.attrs["vmsync.ops_rejected"].AsInt64(); got != 1 {
		t.Errorf("ops_rejected = %d, want 1", got)
	}
	if got := span.attrs["vmsync.payload_bytes"].AsInt64(); got != 2 {
		t.Errorf("payload_bytes = %d, want 2", got)
	}
}

func TestOpenTelemetry_FilterAndExtractor(t *testing.T) {
	tp := newRecordingProvider()
	mw := OpenTelemetry(
		WithTracerProvider(tp),
		WithTracerName("custom"),
		WithTrafficFilter(func(t *viewmodel.Traffic) bool {
			return t.Direction != viewmodel.DirectionRequested
		}),
		WithAttributeExtractor(func(t *viewmodel.Traffic) []attribute.KeyValue {
			return []attribute.KeyValue{attribute.String("test.attr", "ok")}
		}),
	)

	called := 0
	next := func() error { called++; return nil }
	_ = mw(&viewmodel.Traffic{VMID: "A", Direction: viewmodel.DirectionRequested}, next)
	_ = mw(&viewmodel.Traffic{VMID: "A", Direction: viewmodel.DirectionSent}, next)

	if called != 2 {
		t.Errorf("next called %d times, want 2", called)
	}
	if len(tp.tracer.spans) != 1 {
		t.Fatalf("got %d spans, want 1 (requested is filtered)", len(tp.tracer.spans))
	}
	if got := tp.tracer.spans[0].attrs["test.attr"].AsString(); got != "ok" {
		t.Errorf("test.attr = %q", got)
	}
}

func TestOpenTelemetry_GlobalProvider(t *testing.T) {
	mw := OpenTelemetry()
	err := mw(&viewmodel.Traffic{VMID: "A", Direction: viewmodel.DirectionSent}, func() error { return nil })
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
