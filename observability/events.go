package observability

import (
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

type eventMetrics struct {
	events *prometheus.CounterVec
}

var (
	eventMetricsOnce sync.Once
	eventRegistry    *eventMetrics
)

// Events returns the metrics registry counting structured settlement events.
func Events() *eventMetrics {
	eventMetricsOnce.Do(func() {
		eventRegistry = &eventMetrics{
			events: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "drippy",
				Subsystem: "events",
				Name:      "emitted_total",
				Help:      "Count of settlement events segmented by type.",
			}, []string{"type"}),
		}
		prometheus.MustRegister(eventRegistry.events)
	})
	return eventRegistry
}

// Record increments the counter for the supplied event type.
func (m *eventMetrics) Record(eventType string) {
	if m == nil {
		return
	}
	normalized := strings.TrimSpace(strings.ToLower(eventType))
	if normalized == "" {
		normalized = "unknown"
	}
	m.events.WithLabelValues(normalized).Inc()
}
