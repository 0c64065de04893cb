package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func TestRegisterIdempotent(t *testing.T) {
	reg := prometheus.NewRegistry()
	if err := Register(reg); err != nil {
		t.Fatalf("first register: %v", err)
	}
	if err := Register(reg); err != nil {
		t.Fatalf("second register must be a no-op: %v", err)
	}
}

func TestCollectorsUsable(t *testing.T) {
	IncStart("api")
	IncStop("api")
	IncCrashRestart("api")
	SetRunning("web", 2)
	SetRunning("web", 0)
}
