package model

import "time"

// Transport order types with a reserved meaning.
const (
	OrderTypeAny    = "*"
	OrderTypeNone   = "-"
	OrderTypePark   = "Park"
	OrderTypeCharge = "Charge"
)

// OrderState is the lifecycle state of a transport order.
type OrderState int

const (
	OrderStateRaw OrderState = iota
	OrderStateActive
	OrderStateDispatchable
	OrderStateBeingProcessed
	OrderStateWithdrawn
	OrderStateFinished
	OrderStateFailed
	OrderStateUnroutable
)

func (s OrderState) String() string {
	switch s {
	case OrderStateRaw:
		return "RAW"
	case OrderStateActive:
		return "ACTIVE"
	case OrderStateDispatchable:
		return "DISPATCHABLE"
	case OrderStateBeingProcessed:
		return "BEING_PROCESSED"
	case OrderStateWithdrawn:
		return "WITHDRAWN"
	case OrderStateFinished:
		return "FINISHED"
	case OrderStateFailed:
		return "FAILED"
	case OrderStateUnroutable:
		return "UNROUTABLE"
	default:
		return "unknown"
	}
}

// IsFinal reports whether no further transition is possible from this state.
// WITHDRAWN counts as final for dispatching purposes.
func (s OrderState) IsFinal() bool {
	switch s {
	case OrderStateFinished, OrderStateFailed, OrderStateUnroutable, OrderStateWithdrawn:
		return true
	}
	return false
}

// DriveOrderState is the processing state of a single drive order.
type DriveOrderState int

const (
	DriveOrderPristine DriveOrderState = iota
	DriveOrderTravelling
	DriveOrderOperating
	DriveOrderFinished
	DriveOrderFailed
)

// DestinationKind tells whether a drive order targets a point or a location.
type DestinationKind int

const (
	PointDestination DestinationKind = iota
	LocationDestination
)

// Destination is the target of a drive order.
type Destination struct {
	Kind      DestinationKind
	Name      string
	Operation string
}

// DriveOrder is one leg of a transport order.
type DriveOrder struct {
	Name           string
	Destination    Destination
	Route          *Route
	State          DriveOrderState
	TransportOrder string
}

// WithRoute returns a copy of the drive order using the given route.
func (d DriveOrder) WithRoute(r *Route) DriveOrder {
	d.Route = r
	return d
}

// TransportOrder is a job consisting of ordered drive orders.
type TransportOrder struct {
	Name        string
	Type        string
	DriveOrders []DriveOrder
	// CurrentDriveOrderIndex is -1 before processing started.
	CurrentDriveOrderIndex int
	State                  OrderState
	CreationTime           time.Time
	Deadline               time.Time
	Dispensable            bool
	WrappingSequence       string
	IntendedVehicle        string
	Dependencies           []string
	ProcessingVehicle      string
}

// HasState reports whether the order is in the given state.
func (o TransportOrder) HasState(s OrderState) bool { return o.State == s }

// PastDriveOrders returns the drive orders already processed.
func (o TransportOrder) PastDriveOrders() []DriveOrder {
	if o.CurrentDriveOrderIndex <= 0 {
		return nil
	}
	end := min(o.CurrentDriveOrderIndex, len(o.DriveOrders))
	return append([]DriveOrder(nil), o.DriveOrders[:end]...)
}

// CurrentDriveOrder returns the drive order being processed, if any.
func (o TransportOrder) CurrentDriveOrder() (DriveOrder, bool) {
	if o.CurrentDriveOrderIndex < 0 || o.CurrentDriveOrderIndex >= len(o.DriveOrders) {
		return DriveOrder{}, false
	}
	return o.DriveOrders[o.CurrentDriveOrderIndex], true
}

// FutureDriveOrders returns the drive orders after the current one.
func (o TransportOrder) FutureDriveOrders() []DriveOrder {
	start := o.CurrentDriveOrderIndex + 1
	if start >= len(o.DriveOrders) {
		return nil
	}
	return append([]DriveOrder(nil), o.DriveOrders[start:]...)
}

// UnfinishedDriveOrders returns the current drive order followed by the future ones.
func (o TransportOrder) UnfinishedDriveOrders() []DriveOrder {
	var res []DriveOrder
	if cur, ok := o.CurrentDriveOrder(); ok {
		res = append(res, cur)
	}
	return append(res, o.FutureDriveOrders()...)
}

// OrderSequence groups transport orders that must be processed in order by one vehicle.
type OrderSequence struct {
	Name              string
	Orders            []string
	Complete          bool
	FinishedIndex     int
	ProcessingVehicle string
}

// LastOrder returns the name of the last order in the sequence.
func (s OrderSequence) LastOrder() (string, bool) {
	if len(s.Orders) == 0 {
		return "", false
	}
	return s.Orders[len(s.Orders)-1], true
}

// NextUnfinishedOrder returns the first order that has not been finished yet.
func (s OrderSequence) NextUnfinishedOrder() (string, bool) {
	next := s.FinishedIndex + 1
	if next < 0 || next >= len(s.Orders) {
		return "", false
	}
	return s.Orders[next], true
}

// ReroutingType selects how a vehicle's remaining route is recomputed.
type ReroutingType int

const (
	ReroutingRegular ReroutingType = iota
	ReroutingForced
)

func (t ReroutingType) String() string {
	switch t {
	case ReroutingRegular:
		return "REGULAR"
	case ReroutingForced:
		return "FORCED"
	default:
		return "unknown"
	}
}
