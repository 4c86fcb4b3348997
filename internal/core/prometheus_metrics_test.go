package core

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func TestPrometheusMetricsRecorderObserves(t *testing.T) {
	reg := prometheus.NewRegistry()
	recorder, err := NewPrometheusMetricsRecorder(reg)
	if err != nil {
		t.Fatalf("new recorder: %v", err)
	}

	recorder.Observe(context.Background(), "add_study", true, 10*time.Millisecond)
	recorder.Observe(context.Background(), "add_study", false, 5*time.Millisecond)
	recorder.Observe(context.Background(), "", true, time.Millisecond)

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	byName := make(map[string]bool, len(families))
	for _, fam := range families {
		byName[fam.GetName()] = true
	}
	if !byName["metacore_operation_duration_seconds"] {
		t.Fatalf("duration histogram not registered: %v", byName)
	}
	if !byName["metacore_operation_results_total"] {
		t.Fatalf("results counter not registered: %v", byName)
	}

	for _, fam := range families {
		if fam.GetName() != "metacore_operation_results_total" {
			continue
		}
		var total float64
		for _, metric := range fam.GetMetric() {
			total += metric.GetCounter().GetValue()
		}
		if total != 2 {
			t.Fatalf("expected 2 result samples, got %v", total)
		}
	}
}

func TestPrometheusMetricsRecorderRejectsDoubleRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	if _, err := NewPrometheusMetricsRecorder(reg); err != nil {
		t.Fatalf("first registration: %v", err)
	}
	if _, err := NewPrometheusMetricsRecorder(reg); err == nil {
		t.Fatalf("expected duplicate registration error")
	}
}

func TestPrometheusMetricsRecorderDrivesService(t *testing.T) {
	reg := prometheus.NewRegistry()
	recorder, err := NewPrometheusMetricsRecorder(reg)
	if err != nil {
		t.Fatalf("new recorder: %v", err)
	}
	svc := NewInMemoryService(NewRulesEngine(), WithMetricsRecorder(recorder))
	if _, _, err := svc.CreateDataset(context.Background(), Dataset{Title: "t"}); err != nil {
		t.Fatalf("create: %v", err)
	}
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	if len(families) == 0 {
		t.Fatalf("expected gathered metrics after service use")
	}
}
