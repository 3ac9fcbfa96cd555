package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserveViewReveal(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewNavigationMetrics(reg)

	m.ObserveViewReveal("scheduler", "network")
	m.ObserveViewReveal("scheduler", "cache")
	m.ObserveViewReveal("scheduler", "cache")

	if got := testutil.ToFloat64(m.viewRevealTotal.WithLabelValues("scheduler", "cache")); got != 2 {
		t.Fatalf("cache reveals = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.viewRevealTotal.WithLabelValues("scheduler", "network")); got != 1 {
		t.Fatalf("network reveals = %v, want 1", got)
	}
}

func TestObserveSaveAndSuggest(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewNavigationMetrics(reg)

	m.ObserveSave("create", "success")
	m.ObserveSuggest("patient", "divert")

	if got := testutil.ToFloat64(m.saveTotal.WithLabelValues("create", "success")); got != 1 {
		t.Fatalf("save total = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.suggestTotal.WithLabelValues("patient", "divert")); got != 1 {
		t.Fatalf("suggest total = %v, want 1", got)
	}
}

func TestNilReceiverIsSafe(t *testing.T) {
	var m *NavigationMetrics
	m.ObserveFragmentFetch("scheduler", "ok", 0.1)
	m.ObserveViewReveal("scheduler", "cache")
	m.ObserveSave("delete", "failure")
	m.ObserveSuggest("provider", "lock")
}
