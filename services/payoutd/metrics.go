package payoutd

import "drippy/observability"

// Metrics exposes Prometheus collectors for payout instrumentation.
type Metrics = observability.PayoutdMetrics

// NewMetrics returns a lazily initialised metrics registry.
func NewMetrics() *Metrics { return observability.Payoutd() }
