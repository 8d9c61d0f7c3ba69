package dispatch

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	cyclesTotal      prometheus.Counter
	assignmentsTotal *prometheus.CounterVec
	cycleDuration    prometheus.Histogram
	candidatesGauge  prometheus.Gauge
	requeuedTotal    prometheus.Counter
)

// newCollectors creates new metric collectors.
func newCollectors() (prometheus.Counter, *prometheus.CounterVec, prometheus.Histogram, prometheus.Gauge, prometheus.Counter) {
	cycles := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "dispatch_cycles_total",
			Help: "Number of dispatch cycles run",
		},
	)
	asn := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dispatch_assignments_total",
			Help: "Number of transport orders assigned to vehicles",
		},
		[]string{"order_type"},
	)
	dur := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "dispatch_cycle_duration_seconds",
			Help:    "Duration of a dispatch cycle",
			Buckets: prometheus.DefBuckets,
		},
	)
	cand := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "dispatch_candidates",
			Help: "Number of assignment candidates built in the last cycle",
		},
	)
	req := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "dispatch_requeued_total",
			Help: "Number of vehicles or orders left for the next cycle after losing a conflict",
		},
	)
	return cycles, asn, dur, cand, req
}

func init() {
	cyclesTotal, assignmentsTotal, cycleDuration, candidatesGauge, requeuedTotal = newCollectors()
	MustRegisterMetrics(nil)
}

// MustRegisterMetrics registers dispatch metrics on the provided registry.
// If reg is nil, prometheus.DefaultRegisterer is used.
func MustRegisterMetrics(reg prometheus.Registerer) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(cyclesTotal, assignmentsTotal, cycleDuration, candidatesGauge, requeuedTotal)
}

// ResetMetrics reinitializes metrics collectors for testing purposes and
// registers them on the provided registry if not nil.
func ResetMetrics(reg prometheus.Registerer) {
	cyclesTotal, assignmentsTotal, cycleDuration, candidatesGauge, requeuedTotal = newCollectors()
	if reg != nil {
		MustRegisterMetrics(reg)
	}
}
