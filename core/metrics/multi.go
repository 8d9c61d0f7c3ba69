package metrics

import "errors"

// MultiSink fans events out to several sinks. Optional recorder calls only
// reach the sinks implementing them. Every sink is called even if an earlier
// one failed; the failures are joined.
type MultiSink struct {
	Sinks []MetricsSink
}

// NewMultiSink creates a MultiSink with the provided sinks.
func NewMultiSink(sinks ...MetricsSink) *MultiSink {
	return &MultiSink{Sinks: sinks}
}

// RecordAssignments forwards assignments to all sinks.
func (m *MultiSink) RecordAssignments(evs []AssignmentEvent) error {
	var errs []error
	for _, s := range m.Sinks {
		errs = append(errs, s.RecordAssignments(evs))
	}
	return errors.Join(errs...)
}

// RecordCycle forwards cycle summaries.
func (m *MultiSink) RecordCycle(ev CycleEvent) error {
	return forward(m.Sinks, func(r CycleRecorder) error { return r.RecordCycle(ev) })
}

// RecordReroute forwards reroutes.
func (m *MultiSink) RecordReroute(ev RerouteEvent) error {
	return forward(m.Sinks, func(r RerouteRecorder) error { return r.RecordReroute(ev) })
}

// RecordOrderState forwards order transitions.
func (m *MultiSink) RecordOrderState(ev OrderStateEvent) error {
	return forward(m.Sinks, func(r OrderStateRecorder) error { return r.RecordOrderState(ev) })
}

// RecordVehicleState forwards vehicle snapshots.
func (m *MultiSink) RecordVehicleState(ev VehicleStateEvent) error {
	return forward(m.Sinks, func(r VehicleStateRecorder) error { return r.RecordVehicleState(ev) })
}

func forward[R any](sinks []MetricsSink, call func(R) error) error {
	var errs []error
	for _, s := range sinks {
		if r, ok := s.(R); ok {
			errs = append(errs, call(r))
		}
	}
	return errors.Join(errs...)
}
