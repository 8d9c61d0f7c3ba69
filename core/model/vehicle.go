package model

import "time"

// ProcState describes a vehicle's processing state from the kernel's point of view.
type ProcState int

const (
	ProcStateIdle ProcState = iota
	ProcStateAwaitingOrder
	ProcStateProcessingOrder
)

func (p ProcState) String() string {
	switch p {
	case ProcStateIdle:
		return "IDLE"
	case ProcStateAwaitingOrder:
		return "AWAITING_ORDER"
	case ProcStateProcessingOrder:
		return "PROCESSING_ORDER"
	default:
		return "unknown"
	}
}

// VehicleState is the physical/operational state reported by the vehicle controller.
type VehicleState int

const (
	VehicleStateUnknown VehicleState = iota
	VehicleStateUnavailable
	VehicleStateError
	VehicleStateIdle
	VehicleStateExecuting
	VehicleStateCharging
)

func (s VehicleState) String() string {
	switch s {
	case VehicleStateUnknown:
		return "UNKNOWN"
	case VehicleStateUnavailable:
		return "UNAVAILABLE"
	case VehicleStateError:
		return "ERROR"
	case VehicleStateIdle:
		return "IDLE"
	case VehicleStateExecuting:
		return "EXECUTING"
	case VehicleStateCharging:
		return "CHARGING"
	default:
		return "unknown"
	}
}

// ParseVehicleState converts the textual form used in plant files and vehicle reports.
func ParseVehicleState(s string) (VehicleState, bool) {
	for st := VehicleStateUnknown; st <= VehicleStateCharging; st++ {
		if st.String() == s {
			return st, true
		}
	}
	return VehicleStateUnknown, false
}

// IntegrationLevel defines how far a vehicle is integrated into the fleet.
type IntegrationLevel int

const (
	IntegrationToBeIgnored IntegrationLevel = iota
	IntegrationToBeNoticed
	IntegrationToBeRespected
	IntegrationToBeUtilized
)

func (l IntegrationLevel) String() string {
	switch l {
	case IntegrationToBeIgnored:
		return "TO_BE_IGNORED"
	case IntegrationToBeNoticed:
		return "TO_BE_NOTICED"
	case IntegrationToBeRespected:
		return "TO_BE_RESPECTED"
	case IntegrationToBeUtilized:
		return "TO_BE_UTILIZED"
	default:
		return "unknown"
	}
}

// ParseIntegrationLevel converts the textual form of an integration level.
func ParseIntegrationLevel(s string) (IntegrationLevel, bool) {
	for l := IntegrationToBeIgnored; l <= IntegrationToBeUtilized; l++ {
		if l.String() == s {
			return l, true
		}
	}
	return IntegrationToBeIgnored, false
}

// Orientation is the direction in which a vehicle travels a path.
type Orientation int

const (
	OrientationUndefined Orientation = iota
	OrientationForward
	OrientationBackward
)

// AcceptableOrderType is an order type a vehicle accepts, with its priority.
type AcceptableOrderType struct {
	Name     string `json:"name" yaml:"name"`
	Priority int    `json:"priority" yaml:"priority"`
}

// Vehicle represents an automated guided vehicle known to the kernel.
type Vehicle struct {
	Name             string
	ProcState        ProcState
	State            VehicleState
	IntegrationLevel IntegrationLevel

	// EnergyLevel is the battery charge in percent (0-100).
	EnergyLevel                      int
	EnergyLevelCritical              int
	EnergyLevelGood                  int
	EnergyLevelSufficientlyRecharged int
	EnergyLevelFullyRecharged        int

	// CurrentPosition is the name of the point the vehicle stands on, empty if unknown.
	CurrentPosition string
	// NextPosition is the point the vehicle will reach next, empty if none.
	NextPosition string

	AcceptableOrderTypes []AcceptableOrderType
	OrderSequence        string
	TransportOrder       string
	Paused               bool

	ProcStateTimestamp time.Time
}

// HasState reports whether the vehicle is in the given operational state.
func (v Vehicle) HasState(s VehicleState) bool { return v.State == s }

// HasProcState reports whether the vehicle is in the given processing state.
func (v Vehicle) HasProcState(p ProcState) bool { return v.ProcState == p }

// IsProcessingOrder reports whether the vehicle is assigned a transport order,
// whether or not it currently drives.
func (v Vehicle) IsProcessingOrder() bool {
	return v.TransportOrder != "" &&
		(v.ProcState == ProcStateProcessingOrder || v.ProcState == ProcStateAwaitingOrder)
}

// IsEnergyLevelCritical reports whether the energy level is at or below the critical threshold.
func (v Vehicle) IsEnergyLevelCritical() bool {
	return v.EnergyLevel <= v.EnergyLevelCritical
}

// IsEnergyLevelSufficientlyRecharged reports whether charging may be interrupted.
func (v Vehicle) IsEnergyLevelSufficientlyRecharged() bool {
	return v.EnergyLevel >= v.EnergyLevelSufficientlyRecharged
}

// IsEnergyLevelFullyRecharged reports whether the vehicle is done charging.
func (v Vehicle) IsEnergyLevelFullyRecharged() bool {
	return v.EnergyLevel >= v.EnergyLevelFullyRecharged
}

// AcceptsOrderType reports whether the vehicle accepts orders of the given type,
// either explicitly or through the wildcard type.
func (v Vehicle) AcceptsOrderType(orderType string) bool {
	for _, t := range v.AcceptableOrderTypes {
		if t.Name == orderType || t.Name == OrderTypeAny {
			return true
		}
	}
	return false
}

// FutureOrCurrentPosition returns the next position if known, the current one otherwise.
func (v Vehicle) FutureOrCurrentPosition() string {
	if v.NextPosition != "" {
		return v.NextPosition
	}
	return v.CurrentPosition
}
