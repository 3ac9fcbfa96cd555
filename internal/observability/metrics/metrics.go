package metrics

import "github.com/prometheus/client_golang/prometheus"

// NavigationMetrics exposes counters/histograms for the view and modal runtime.
type NavigationMetrics struct {
	fragmentFetchTotal   *prometheus.CounterVec
	fragmentFetchSeconds *prometheus.HistogramVec
	viewRevealTotal      *prometheus.CounterVec
	saveTotal            *prometheus.CounterVec
	suggestTotal         *prometheus.CounterVec
}

func NewNavigationMetrics(reg prometheus.Registerer) *NavigationMetrics {
	m := &NavigationMetrics{
		fragmentFetchTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ehrshell",
			Subsystem: "navigation",
			Name:      "fragment_fetch_total",
			Help:      "Total view-fragment fetches",
		}, []string{"view", "status"}),
		fragmentFetchSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "ehrshell",
			Subsystem: "navigation",
			Name:      "fragment_fetch_seconds",
			Help:      "Latency of view-fragment fetches",
			Buckets:   prometheus.DefBuckets,
		}, []string{"view"}),
		viewRevealTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ehrshell",
			Subsystem: "navigation",
			Name:      "view_reveal_total",
			Help:      "Total view reveals by source (cache or network)",
		}, []string{"view", "source"}),
		saveTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ehrshell",
			Subsystem: "appointment",
			Name:      "save_total",
			Help:      "Total appointment save/delete attempts",
		}, []string{"op", "status"}),
		suggestTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ehrshell",
			Subsystem: "appointment",
			Name:      "suggest_total",
			Help:      "Total inline entity-suggest resolutions",
		}, []string{"kind", "outcome"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(
		m.fragmentFetchTotal,
		m.fragmentFetchSeconds,
		m.viewRevealTotal,
		m.saveTotal,
		m.suggestTotal,
	)
	return m
}

func (m *NavigationMetrics) ObserveFragmentFetch(view, status string, seconds float64) {
	if m == nil {
		return
	}
	m.fragmentFetchTotal.WithLabelValues(view, status).Inc()
	m.fragmentFetchSeconds.WithLabelValues(view).Observe(seconds)
}

func (m *NavigationMetrics) ObserveViewReveal(view, source string) {
	if m == nil {
		return
	}
	m.viewRevealTotal.WithLabelValues(view, source).Inc()
}

func (m *NavigationMetrics) ObserveSave(op, status string) {
	if m == nil {
		return
	}
	m.saveTotal.WithLabelValues(op, status).Inc()
}

func (m *NavigationMetrics) ObserveSuggest(kind, outcome string) {
	if m == nil {
		return
	}
	m.suggestTotal.WithLabelValues(kind, outcome).Inc()
}
