package observability

import (
	"context"
	"testing"
	"time"

	"go.opentelemetry.io/otel"
)

func TestInitTracer_EmptyEndpointIsNoop(t *testing.T) {
	shutdown, err := InitTracer(context.Background(), TracingConfig{ServiceName: "spritefactory"})
	if err != nil {
		t.Fatalf("InitTracer failed: %v", err)
	}
	if shutdown == nil {
		t.Fatal("expected shutdown function to be non-nil")
	}
	if err := shutdown(context.Background()); err != nil {
		t.Errorf("no-op shutdown returned %v", err)
	}
}

func TestInitTracer_InstallsPropagator(t *testing.T) {
	if _, err := InitTracer(context.Background(), TracingConfig{ServiceName: "spritefactory"}); err != nil {
		t.Fatalf("InitTracer failed: %v", err)
	}

	fields := otel.GetTextMapPropagator().Fields()
	found := false
	for _, f := range fields {
		if f == "traceparent" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected traceparent among propagated fields, got %v", fields)
	}
}

func TestInitTracer_LazyEndpoint(t *testing.T) {
	// gRPC connects lazily, so an unreachable collector still initializes.
	shutdown, err := InitTracer(context.Background(), TracingConfig{
		ServiceName: "spritefactory",
		Endpoint:    "localhost:4317",
		RunID:       "run-1",
	})
	if err != nil {
		t.Logf("InitTracer returned error (may be expected in test environment): %v", err)
		return
	}
	if shutdown == nil {
		t.Fatal("expected shutdown function to be non-nil")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_ = shutdown(shutdownCtx)
}
