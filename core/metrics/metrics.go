package metrics

import (
	"time"

	"github.com/kilianp07/agvkernel/core/model"
)

// AssignmentEvent is a transport order committed to a vehicle.
type AssignmentEvent struct {
	Vehicle       string
	Order         string
	OrderType     string
	InitialCosts  int64
	CompleteCosts int64
	Time          time.Time
}

// MetricsSink records assignments for observability purposes.
type MetricsSink interface {
	RecordAssignments(events []AssignmentEvent) error
}

// CycleEvent summarizes one dispatch cycle.
type CycleEvent struct {
	Assignments int
	Reserved    int
	Parked      int
	Requeued    int
	Duration    time.Duration
	Time        time.Time
}

// CycleRecorder records dispatch cycles.
type CycleRecorder interface {
	RecordCycle(ev CycleEvent) error
}

// RerouteEvent describes a reroute applied to a vehicle's order.
type RerouteEvent struct {
	Vehicle    string
	Order      string
	Type       model.ReroutingType
	Strategy   bool
	Restricted int
	Time       time.Time
}

// RerouteRecorder records reroutes.
type RerouteRecorder interface {
	RecordReroute(ev RerouteEvent) error
}

// OrderStateEvent is a transport order state transition.
type OrderStateEvent struct {
	Order string
	From  model.OrderState
	To    model.OrderState
	Time  time.Time
}

// OrderStateRecorder records order transitions.
type OrderStateRecorder interface {
	RecordOrderState(ev OrderStateEvent) error
}

// VehicleStateEvent is a snapshot of a vehicle after a report.
type VehicleStateEvent struct {
	Vehicle model.Vehicle
	Time    time.Time
}

// VehicleStateRecorder records vehicle snapshots.
type VehicleStateRecorder interface {
	RecordVehicleState(ev VehicleStateEvent) error
}

// NopSink implements every recorder with no-op methods.
type NopSink struct{}

func (NopSink) RecordAssignments([]AssignmentEvent) error  { return nil }
func (NopSink) RecordCycle(CycleEvent) error               { return nil }
func (NopSink) RecordReroute(RerouteEvent) error           { return nil }
func (NopSink) RecordOrderState(OrderStateEvent) error     { return nil }
func (NopSink) RecordVehicleState(VehicleStateEvent) error { return nil }
