package dispatch

import (
	"cmp"
	"time"

	"github.com/kilianp07/agvkernel/core/model"
)

// Comparator defines a total order: negative when a sorts before b.
type Comparator[T any] func(a, b T) int

// Comparator keys accepted in the priority settings.
const (
	KeyByAge                  = "BY_AGE"
	KeyByDeadline             = "BY_DEADLINE"
	KeyDeadlineAtRiskFirst    = "DEADLINE_AT_RISK_FIRST"
	KeyByName                 = "BY_NAME"
	KeyByEnergyLevel          = "BY_ENERGY_LEVEL"
	KeyIdleFirst              = "IDLE_FIRST"
	KeyByCompleteRoutingCosts = "BY_COMPLETE_ROUTING_COSTS"
	KeyByInitialRoutingCosts  = "BY_INITIAL_ROUTING_COSTS"
	KeyByOrderName            = "BY_ORDER_NAME"
	KeyByVehicleName          = "BY_VEHICLE_NAME"
)

// Chain returns a comparator consulting each comparator in turn until one
// discriminates.
func Chain[T any](cs ...Comparator[T]) Comparator[T] {
	return func(a, b T) int {
		for _, c := range cs {
			if r := c(a, b); r != 0 {
				return r
			}
		}
		return 0
	}
}

// By lifts a comparator over U into one over T.
func By[T, U any](key func(T) U, c Comparator[U]) Comparator[T] {
	return func(a, b T) int { return c(key(a), key(b)) }
}

// OrdersByAge sorts older orders first.
func OrdersByAge(a, b model.TransportOrder) int {
	return a.CreationTime.Compare(b.CreationTime)
}

// OrdersByDeadline sorts earlier deadlines first.
func OrdersByDeadline(a, b model.TransportOrder) int {
	return a.Deadline.Compare(b.Deadline)
}

// OrdersByName sorts by name ascending.
func OrdersByName(a, b model.TransportOrder) int {
	return cmp.Compare(a.Name, b.Name)
}

// OrdersDeadlineAtRiskFirst sorts orders whose deadline lies within the
// window from now ahead of the others. Ties fall back to the deadline. now is
// read once, so every comparison of the returned comparator sees the same
// instant.
func OrdersDeadlineAtRiskFirst(window time.Duration, now func() time.Time) Comparator[model.TransportOrder] {
	t := now()
	return func(a, b model.TransportOrder) int {
		aRisk := a.Deadline.Sub(t) < window
		bRisk := b.Deadline.Sub(t) < window
		switch {
		case aRisk && !bRisk:
			return -1
		case !aRisk && bRisk:
			return 1
		}
		return OrdersByDeadline(a, b)
	}
}

// VehiclesByEnergyLevel sorts vehicles with more energy first.
func VehiclesByEnergyLevel(a, b model.Vehicle) int {
	return cmp.Compare(b.EnergyLevel, a.EnergyLevel)
}

// VehiclesIdleFirst sorts idle vehicles ahead of busy ones.
func VehiclesIdleFirst(a, b model.Vehicle) int {
	aIdle := a.HasProcState(model.ProcStateIdle)
	bIdle := b.HasProcState(model.ProcStateIdle)
	switch {
	case aIdle && !bIdle:
		return -1
	case !aIdle && bIdle:
		return 1
	}
	return 0
}

// VehiclesByName sorts by name ascending.
func VehiclesByName(a, b model.Vehicle) int {
	return cmp.Compare(a.Name, b.Name)
}

func candidateOrder(c AssignmentCandidate) model.TransportOrder { return c.order }

func candidateVehicle(c AssignmentCandidate) model.Vehicle { return c.vehicle }

// CandidatesByCompleteRoutingCosts sorts cheaper complete routes first.
func CandidatesByCompleteRoutingCosts(a, b AssignmentCandidate) int {
	return cmp.Compare(a.completeRoutingCosts, b.completeRoutingCosts)
}

// CandidatesByInitialRoutingCosts sorts cheaper first legs first.
func CandidatesByInitialRoutingCosts(a, b AssignmentCandidate) int {
	return cmp.Compare(a.initialRoutingCosts, b.initialRoutingCosts)
}

// orderComparators maps keys to order comparators.
func orderComparators(cfg Config, now func() time.Time) map[string]Comparator[model.TransportOrder] {
	return map[string]Comparator[model.TransportOrder]{
		KeyByAge:               OrdersByAge,
		KeyByDeadline:          OrdersByDeadline,
		KeyDeadlineAtRiskFirst: OrdersDeadlineAtRiskFirst(cfg.DeadlineAtRiskPeriod(), now),
		KeyByName:              OrdersByName,
	}
}

// vehicleComparators maps keys to vehicle comparators.
func vehicleComparators() map[string]Comparator[model.Vehicle] {
	return map[string]Comparator[model.Vehicle]{
		KeyByEnergyLevel: VehiclesByEnergyLevel,
		KeyIdleFirst:     VehiclesIdleFirst,
		KeyByName:        VehiclesByName,
	}
}

// candidateComparators maps keys to candidate comparators.
func candidateComparators(cfg Config, now func() time.Time) map[string]Comparator[AssignmentCandidate] {
	return map[string]Comparator[AssignmentCandidate]{
		KeyByAge:                  By(candidateOrder, OrdersByAge),
		KeyByDeadline:             By(candidateOrder, OrdersByDeadline),
		KeyDeadlineAtRiskFirst:    By(candidateOrder, OrdersDeadlineAtRiskFirst(cfg.DeadlineAtRiskPeriod(), now)),
		KeyByEnergyLevel:          By(candidateVehicle, VehiclesByEnergyLevel),
		KeyIdleFirst:              By(candidateVehicle, VehiclesIdleFirst),
		KeyByCompleteRoutingCosts: CandidatesByCompleteRoutingCosts,
		KeyByInitialRoutingCosts:  CandidatesByInitialRoutingCosts,
		KeyByOrderName:            By(candidateOrder, OrdersByName),
		KeyByVehicleName:          By(candidateVehicle, VehiclesByName),
	}
}
