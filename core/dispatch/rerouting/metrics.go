package rerouting

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Reroute outcomes.
const (
	OutcomeStrategy = "strategy"
	OutcomePatched  = "patched"
	OutcomeSkipped  = "skipped"
)

var reroutesTotal *prometheus.CounterVec

func newCollectors() *prometheus.CounterVec {
	return prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reroutes_total",
			Help: "Number of reroute requests by rerouting type and outcome",
		},
		[]string{"type", "outcome"},
	)
}

func init() {
	reroutesTotal = newCollectors()
	MustRegisterMetrics(nil)
}

// MustRegisterMetrics registers rerouting metrics on the provided registry.
// If reg is nil, prometheus.DefaultRegisterer is used.
func MustRegisterMetrics(reg prometheus.Registerer) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(reroutesTotal)
}

// ResetMetrics reinitializes the collectors for tests and registers them on
// reg if not nil.
func ResetMetrics(reg prometheus.Registerer) {
	reroutesTotal = newCollectors()
	if reg != nil {
		MustRegisterMetrics(reg)
	}
}
