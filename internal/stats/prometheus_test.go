package stats

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestExporter_ObserveDedup(t *testing.T) {
	reg := prometheus.NewRegistry()
	e := NewExporter(reg, "")

	e.ObserveDedup("saved")
	e.ObserveDedup("saved")
	e.ObserveDedup("exact_duplicate")

	metrics, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}

	var found *dto.MetricFamily
	for _, mf := range metrics {
		if mf.GetName() == "promptforge_dedup_outcomes_total" {
			found = mf
		}
	}
	if found == nil {
		t.Fatal("expected dedup_outcomes_total metric family")
	}
	if len(found.Metric) != 2 {
		t.Fatalf("expected 2 label combinations, got %d", len(found.Metric))
	}
}

func TestExporter_ObserveTickAndFamilyCounts(t *testing.T) {
	reg := prometheus.NewRegistry()
	e := NewExporter(reg, "test")

	e.ObserveTick("ASSIGNED", 50*time.Millisecond)
	e.SetFamilyCounts(12, 3)
	e.ObserveTemplateAction("MINOR", "family-1", 1)

	metrics, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	if len(metrics) == 0 {
		t.Fatal("expected at least one metric family")
	}
}
