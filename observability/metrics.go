package observability

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type moduleMetrics struct {
	requests  *prometheus.CounterVec
	errors    *prometheus.CounterVec
	latency   *prometheus.HistogramVec
	throttles *prometheus.CounterVec
}

var (
	moduleMetricsOnce sync.Once
	moduleRegistry    *moduleMetrics

	settlementOnce     sync.Once
	settlementRegistry *SettlementMetrics

	payoutMetricsOnce sync.Once
	payoutRegistry    *PayoutdMetrics
)

// ModuleMetrics returns the lazily-initialised registry recording API
// activity per handler.
func ModuleMetrics() *moduleMetrics {
	moduleMetricsOnce.Do(func() {
		moduleRegistry = &moduleMetrics{
			requests: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "drippy",
				Subsystem: "api",
				Name:      "requests_total",
				Help:      "Total API requests segmented by module and method.",
			}, []string{"module", "method", "outcome"}),
			errors: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "drippy",
				Subsystem: "api",
				Name:      "errors_total",
				Help:      "Total API errors segmented by module, method, and status code.",
			}, []string{"module", "method", "status"}),
			latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: "drippy",
				Subsystem: "api",
				Name:      "request_duration_seconds",
				Help:      "Latency distribution for API handlers.",
				Buckets:   prometheus.DefBuckets,
			}, []string{"module", "method"}),
			throttles: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "drippy",
				Subsystem: "api",
				Name:      "throttles_total",
				Help:      "Count of API requests rejected due to throttling policies.",
			}, []string{"module", "reason"}),
		}
		prometheus.MustRegister(
			moduleRegistry.requests,
			moduleRegistry.errors,
			moduleRegistry.latency,
			moduleRegistry.throttles,
		)
	})
	return moduleRegistry
}

// Observe records the outcome of an API request. The status code should be
// the HTTP status that was ultimately written to the response writer.
func (m *moduleMetrics) Observe(module, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	if module == "" {
		module = "unknown"
	}
	if method == "" {
		method = "unknown"
	}
	outcome := "success"
	if status >= 400 {
		outcome = "error"
	}
	m.requests.WithLabelValues(module, method, outcome).Inc()
	if status >= 400 {
		m.errors.WithLabelValues(module, method, fmt.Sprintf("%d", status)).Inc()
	}
	m.latency.WithLabelValues(module, method).Observe(duration.Seconds())
}

// RecordThrottle increments the throttle counter for the supplied module and
// reason.
func (m *moduleMetrics) RecordThrottle(module, reason string) {
	if m == nil {
		return
	}
	if module == "" {
		module = "unknown"
	}
	if reason == "" {
		reason = "unspecified"
	}
	m.throttles.WithLabelValues(module, reason).Inc()
}

// SettlementMetrics tracks engine operations.
type SettlementMetrics struct {
	operations      *prometheus.CounterVec
	latency         *prometheus.HistogramVec
	emitted         *prometheus.CounterVec
	storageFailures *prometheus.CounterVec
}

// Settlement exposes the metrics registry for the settlement engine.
func Settlement() *SettlementMetrics {
	settlementOnce.Do(func() {
		settlementRegistry = &SettlementMetrics{
			operations: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "drippy",
				Subsystem: "engine",
				Name:      "operations_total",
				Help:      "Settlement operations segmented by kind, status, and reason.",
			}, []string{"kind", "status", "reason"}),
			latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: "drippy",
				Subsystem: "engine",
				Name:      "operation_duration_seconds",
				Help:      "Latency distribution for settlement operations.",
				Buckets:   prometheus.DefBuckets,
			}, []string{"kind"}),
			emitted: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "drippy",
				Subsystem: "engine",
				Name:      "emitted_amount_total",
				Help:      "Value handed to the payout emitter in minor units.",
			}, []string{"asset", "purpose"}),
			storageFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "drippy",
				Subsystem: "engine",
				Name:      "storage_failures_total",
				Help:      "Ledger writes that failed after value was emitted. Each one needs reconciliation.",
			}, []string{"kind"}),
		}
		prometheus.MustRegister(
			settlementRegistry.operations,
			settlementRegistry.latency,
			settlementRegistry.emitted,
			settlementRegistry.storageFailures,
		)
	})
	return settlementRegistry
}

// ObserveOperation records a terminal operation outcome.
func (m *SettlementMetrics) ObserveOperation(kind, status, reason string, d time.Duration) {
	if m == nil {
		return
	}
	if reason == "" {
		reason = "none"
	}
	m.operations.WithLabelValues(kind, status, reason).Inc()
	m.latency.WithLabelValues(kind).Observe(d.Seconds())
}

// RecordEmitted adds amount to the emitted counter.
func (m *SettlementMetrics) RecordEmitted(asset, purpose string, amount uint64) {
	if m == nil || amount == 0 {
		return
	}
	m.emitted.WithLabelValues(labelAsset(asset), purpose).Add(float64(amount))
}

// RecordStorageFailure counts a post-emission storage failure.
func (m *SettlementMetrics) RecordStorageFailure(kind string) {
	if m == nil {
		return
	}
	m.storageFailures.WithLabelValues(kind).Inc()
}

// StorageFailures exposes the counter for tests and status checks.
func (m *SettlementMetrics) StorageFailures() *prometheus.CounterVec {
	return m.storageFailures
}

// PayoutdMetrics wraps collectors tracking payout emitter health.
type PayoutdMetrics struct {
	payoutLatency  *prometheus.HistogramVec
	capRemaining   *prometheus.GaugeVec
	capUtilization *prometheus.GaugeVec
	reserve        *prometheus.GaugeVec
	errors         *prometheus.CounterVec
	pauseEngaged   prometheus.Gauge
}

// Payoutd exposes the metrics registry for the payout emitter.
func Payoutd() *PayoutdMetrics {
	payoutMetricsOnce.Do(func() {
		payoutRegistry = &PayoutdMetrics{
			payoutLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: "drippy",
				Subsystem: "payoutd",
				Name:      "payout_latency_seconds",
				Help:      "Latency distribution for completed payout batches.",
				Buckets:   prometheus.DefBuckets,
			}, []string{"asset"}),
			capRemaining: prometheus.NewGaugeVec(prometheus.GaugeOpts{
				Namespace: "drippy",
				Subsystem: "payoutd",
				Name:      "cap_remaining",
				Help:      "Remaining daily cap per asset in minor units.",
			}, []string{"asset"}),
			capUtilization: prometheus.NewGaugeVec(prometheus.GaugeOpts{
				Namespace: "drippy",
				Subsystem: "payoutd",
				Name:      "cap_utilization",
				Help:      "Ratio of consumed cap for the current day (0-1).",
			}, []string{"asset"}),
			reserve: prometheus.NewGaugeVec(prometheus.GaugeOpts{
				Namespace: "drippy",
				Subsystem: "payoutd",
				Name:      "boost_reserve",
				Help:      "Boost reserve balance per asset in minor units.",
			}, []string{"asset"}),
			errors: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "drippy",
				Subsystem: "payoutd",
				Name:      "errors_total",
				Help:      "Count of payout failures segmented by asset and reason.",
			}, []string{"asset", "reason"}),
			pauseEngaged: prometheus.NewGauge(prometheus.GaugeOpts{
				Namespace: "drippy",
				Subsystem: "payoutd",
				Name:      "pause_engaged",
				Help:      "Indicates whether the payout pause guard is active (1) or not (0).",
			}),
		}
		prometheus.MustRegister(
			payoutRegistry.payoutLatency,
			payoutRegistry.capRemaining,
			payoutRegistry.capUtilization,
			payoutRegistry.reserve,
			payoutRegistry.errors,
			payoutRegistry.pauseEngaged,
		)
	})
	return payoutRegistry
}

// ObserveLatency records the processing latency for a payout batch.
func (m *PayoutdMetrics) ObserveLatency(asset string, d time.Duration) {
	if m == nil {
		return
	}
	m.payoutLatency.WithLabelValues(labelAsset(asset)).Observe(d.Seconds())
}

// RecordCap updates the remaining cap and utilisation gauge for an asset.
func (m *PayoutdMetrics) RecordCap(asset string, remaining, total uint64) {
	if m == nil {
		return
	}
	label := labelAsset(asset)
	m.capRemaining.WithLabelValues(label).Set(float64(remaining))
	utilisation := 0.0
	if total > 0 {
		used := float64(total) - float64(remaining)
		if used < 0 {
			used = 0
		}
		utilisation = used / float64(total)
		if utilisation > 1 {
			utilisation = 1
		}
	}
	m.capUtilization.WithLabelValues(label).Set(utilisation)
}

// RecordReserve publishes the boost reserve balance of an asset.
func (m *PayoutdMetrics) RecordReserve(asset string, balance uint64) {
	if m == nil {
		return
	}
	m.reserve.WithLabelValues(labelAsset(asset)).Set(float64(balance))
}

// RecordError increments the error counter for the supplied reason.
func (m *PayoutdMetrics) RecordError(asset, reason string) {
	if m == nil {
		return
	}
	if reason = strings.TrimSpace(reason); reason == "" {
		reason = "unspecified"
	}
	m.errors.WithLabelValues(labelAsset(asset), reason).Inc()
}

// SetPause toggles the pause_engaged gauge.
func (m *PayoutdMetrics) SetPause(engaged bool) {
	if m == nil {
		return
	}
	if engaged {
		m.pauseEngaged.Set(1)
		return
	}
	m.pauseEngaged.Set(0)
}

func labelAsset(asset string) string {
	trimmed := strings.TrimSpace(asset)
	if trimmed == "" {
		return "unknown"
	}
	return strings.ToUpper(trimmed)
}
