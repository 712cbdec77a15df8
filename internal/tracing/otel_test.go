package tracing

import (
	"testing"
)

func TestInitOpenTelemetryIdempotent(t *testing.T) {
	if err := InitOpenTelemetry("serialqueue-test"); err != nil {
		t.Fatalf("InitOpenTelemetry failed: %v", err)
	}

	// Later calls, including with the empty default name, must not error or
	// replace the provider.
	if err := InitOpenTelemetry(""); err != nil {
		t.Fatalf("Repeated InitOpenTelemetry failed: %v", err)
	}
}

func TestNewProviderDefaultName(t *testing.T) {
	tp, err := newProvider(defaultServiceName)
	if err != nil {
		t.Fatalf("newProvider failed: %v", err)
	}
	if tp == nil {
		t.Fatal("newProvider returned nil provider")
	}
}
