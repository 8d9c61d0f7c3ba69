package events

import (
	"time"

	"github.com/kilianp07/agvkernel/core/model"
)

// OrderStateChanged is published for every transport order state transition.
type OrderStateChanged struct {
	Order string
	From  model.OrderState
	To    model.OrderState
	Time  time.Time
}

// VehicleAssigned is published when an order is committed to a vehicle.
type VehicleAssigned struct {
	Vehicle       string
	Order         string
	OrderType     string
	InitialCosts  int64
	CompleteCosts int64
	Time          time.Time
}

// CycleCompleted summarizes one dispatch cycle.
type CycleCompleted struct {
	Assignments int
	Reserved    int
	Parked      int
	Requeued    int
	Duration    time.Duration
	Time        time.Time
}
