package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func TestMustRegisterExposesCollectors(t *testing.T) {
	MustRegister()
	// A CounterVec only shows up in Gather output once a child exists.
	IncUpdate("command")

	families, err := prometheus.DefaultGatherer.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	found := false
	for _, mf := range families {
		if mf.GetName() == "telegram_updates_total" {
			found = true
			break
		}
	}
	if !found {
		t.Fatal("telegram_updates_total not registered with the default registry")
	}

	// A second call must not panic on duplicate registration.
	MustRegister()
}
