package metrics

import (
	"errors"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	coremetrics "github.com/kilianp07/agvkernel/core/metrics"
)

// PromSink records kernel events in Prometheus metrics.
type PromSink struct {
	assignments *prometheus.CounterVec
	costs       *prometheus.HistogramVec
	transitions *prometheus.CounterVec
	reroutes    *prometheus.CounterVec
	energy      *prometheus.GaugeVec
	parked      prometheus.Gauge
}

var _ interface {
	coremetrics.MetricsSink
	coremetrics.CycleRecorder
	coremetrics.RerouteRecorder
	coremetrics.OrderStateRecorder
	coremetrics.VehicleStateRecorder
} = (*PromSink)(nil)

// NewPromSink registers the sink metrics on the default Prometheus registerer.
// The HTTP endpoint is started separately with StartPromServer.
func NewPromSink() (*PromSink, error) {
	return NewPromSinkWithRegistry(prometheus.DefaultRegisterer)
}

// NewPromSinkWithRegistry registers metrics on the provided registerer.
// A nil registerer defaults to the global Prometheus registerer. Collectors
// already registered by an earlier sink are reused.
func NewPromSinkWithRegistry(reg prometheus.Registerer) (*PromSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	var err error
	s := &PromSink{}
	if s.assignments, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "agv_assignments_total",
		Help: "Transport orders committed to vehicles",
	}, []string{"vehicle", "order_type"})); err != nil {
		return nil, err
	}
	if s.costs, err = register(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "agv_assignment_routing_costs",
		Help:    "Routing costs of committed assignments",
		Buckets: prometheus.ExponentialBuckets(10, 2, 12),
	}, []string{"kind"})); err != nil {
		return nil, err
	}
	if s.transitions, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "agv_order_transitions_total",
		Help: "Transport order state transitions",
	}, []string{"from", "to"})); err != nil {
		return nil, err
	}
	if s.reroutes, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "agv_vehicle_reroutes_total",
		Help: "Reroutes applied per vehicle",
	}, []string{"vehicle", "type", "strategy"})); err != nil {
		return nil, err
	}
	if s.energy, err = register(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "agv_vehicle_energy_level_percent",
		Help: "Last reported energy level per vehicle",
	}, []string{"vehicle"})); err != nil {
		return nil, err
	}
	if s.parked, err = register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "agv_parked_last_cycle",
		Help: "Vehicles sent to a parking position in the last dispatch cycle",
	})); err != nil {
		return nil, err
	}
	return s, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

// RecordAssignments counts assignments and observes their costs.
func (s *PromSink) RecordAssignments(evs []coremetrics.AssignmentEvent) error {
	for _, e := range evs {
		s.assignments.WithLabelValues(e.Vehicle, e.OrderType).Inc()
		s.costs.WithLabelValues("initial").Observe(float64(e.InitialCosts))
		s.costs.WithLabelValues("complete").Observe(float64(e.CompleteCosts))
	}
	return nil
}

// RecordCycle sets the parked gauge.
func (s *PromSink) RecordCycle(ev coremetrics.CycleEvent) error {
	s.parked.Set(float64(ev.Parked))
	return nil
}

// RecordReroute counts reroutes by vehicle and outcome.
func (s *PromSink) RecordReroute(ev coremetrics.RerouteEvent) error {
	s.reroutes.WithLabelValues(ev.Vehicle, ev.Type.String(), strconv.FormatBool(ev.Strategy)).Inc()
	return nil
}

// RecordOrderState counts order transitions.
func (s *PromSink) RecordOrderState(ev coremetrics.OrderStateEvent) error {
	s.transitions.WithLabelValues(ev.From.String(), ev.To.String()).Inc()
	return nil
}

// RecordVehicleState tracks the vehicle's energy level.
func (s *PromSink) RecordVehicleState(ev coremetrics.VehicleStateEvent) error {
	s.energy.WithLabelValues(ev.Vehicle.Name).Set(float64(ev.Vehicle.EnergyLevel))
	return nil
}
