package tracing_test

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel"

	"cardfraud/inference-api/internal/tracing"
)

func TestInitTracerProvider_InstallsGlobals(t *testing.T) {
	tp, err := tracing.InitTracerProvider("fraud-inference-test", "http://127.0.0.1:14268/api/traces", 0)
	if err != nil {
		t.Fatalf("InitTracerProvider: %v", err)
	}
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	if otel.GetTracerProvider() != tp {
		t.Error("global tracer provider not installed")
	}
	fields := otel.GetTextMapPropagator().Fields()
	var hasTraceparent bool
	for _, f := range fields {
		if f == "traceparent" {
			hasTraceparent = true
		}
	}
	if !hasTraceparent {
		t.Errorf("propagator fields = %v, want traceparent", fields)
	}
}
