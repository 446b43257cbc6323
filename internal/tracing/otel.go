package tracing

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

// DefaultServiceName identifies SDK spans when the embedding
// application does not name itself.
const DefaultServiceName = "axonflow-sdk"

var setup struct {
	once     sync.Once
	mu       sync.Mutex
	provider *sdktrace.TracerProvider
	err      error
}

// Init installs the process-wide tracer provider that backs the SDK's
// query and plan spans. Only the first call takes effect; later calls
// return the first call's error, if any. Applications that install
// their own provider before the client starts do not need to call it.
func Init(serviceName string) error {
	setup.once.Do(func() {
		if serviceName == "" {
			serviceName = DefaultServiceName
		}

		res, err := resource.New(context.Background(),
			resource.WithAttributes(semconv.ServiceName(serviceName)),
		)
		if err != nil {
			setup.err = err
			return
		}

		tp := sdktrace.NewTracerProvider(
			sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(1))),
			sdktrace.WithResource(res),
		)

		setup.mu.Lock()
		setup.provider = tp
		setup.mu.Unlock()

		otel.SetTracerProvider(tp)
	})
	return setup.err
}

// Shutdown flushes and stops the provider installed by Init. A no-op
// when Init never ran.
func Shutdown(ctx context.Context) error {
	setup.mu.Lock()
	tp := setup.provider
	setup.mu.Unlock()
	if tp == nil {
		return nil
	}
	return tp.Shutdown(ctx)
}

// StartSpan opens a span and stamps its trace ID into the context so
// audit records and logs correlate even when no exporter is attached.
func StartSpan(ctx context.Context, tracerName, spanName string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, spanName, trace.WithAttributes(attrs...))

	if GetTraceID(ctx) == "" {
		if sc := span.SpanContext(); sc.IsValid() {
			ctx = WithTraceID(ctx, sc.TraceID().String())
		}
	}
	return ctx, span
}
