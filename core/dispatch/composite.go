package dispatch

import (
	"time"

	"github.com/kilianp07/agvkernel/core/logger"
	"github.com/kilianp07/agvkernel/core/model"
)

// Composites bundles the four comparators used by a dispatch cycle.
type Composites struct {
	Orders            Comparator[model.TransportOrder]
	Vehicles          Comparator[model.Vehicle]
	OrderCandidates   Comparator[AssignmentCandidate]
	VehicleCandidates Comparator[AssignmentCandidate]
}

// NewComposites builds the comparators from the configured priority keys.
// Unknown keys are logged and skipped. Each composite ends with fixed
// fallbacks so that equal inputs always sort the same way.
func NewComposites(cfg Config, now func() time.Time, log logger.Logger) Composites {
	return Composites{
		Orders:            CompositeOrderComparator(cfg, now, log),
		Vehicles:          CompositeVehicleComparator(cfg, log),
		OrderCandidates:   CompositeOrderCandidateComparator(cfg, now, log),
		VehicleCandidates: CompositeVehicleCandidateComparator(cfg, now, log),
	}
}

// CompositeOrderComparator ranks orders; ties fall back to age, then name.
func CompositeOrderComparator(cfg Config, now func() time.Time, log logger.Logger) Comparator[model.TransportOrder] {
	cs := resolve("order_priorities", cfg.OrderPriorities, orderComparators(cfg, now), log)
	return Chain(append(cs, OrdersByAge, OrdersByName)...)
}

// CompositeVehicleComparator ranks vehicles; ties fall back to energy level,
// then name.
func CompositeVehicleComparator(cfg Config, log logger.Logger) Comparator[model.Vehicle] {
	cs := resolve("vehicle_priorities", cfg.VehiclePriorities, vehicleComparators(), log)
	return Chain(append(cs, VehiclesByEnergyLevel, VehiclesByName)...)
}

// CompositeOrderCandidateComparator ranks the candidates of one vehicle; ties
// fall back to the order's age, then its name.
func CompositeOrderCandidateComparator(cfg Config, now func() time.Time, log logger.Logger) Comparator[AssignmentCandidate] {
	cs := resolve("order_candidate_priorities", cfg.OrderCandidatePriorities, candidateComparators(cfg, now), log)
	return Chain(append(cs, By(candidateOrder, OrdersByAge), By(candidateOrder, OrdersByName))...)
}

// CompositeVehicleCandidateComparator ranks the candidates of one order; ties
// fall back to the vehicle's energy level, then its name.
func CompositeVehicleCandidateComparator(cfg Config, now func() time.Time, log logger.Logger) Comparator[AssignmentCandidate] {
	cs := resolve("vehicle_candidate_priorities", cfg.VehicleCandidatePriorities, candidateComparators(cfg, now), log)
	return Chain(append(cs, By(candidateVehicle, VehiclesByEnergyLevel), By(candidateVehicle, VehiclesByName))...)
}

func resolve[T any](setting string, keys []string, known map[string]Comparator[T], log logger.Logger) []Comparator[T] {
	var cs []Comparator[T]
	for _, k := range keys {
		c, ok := known[k]
		if !ok {
			if log != nil {
				log.Warnf("%s: unknown comparator key %q ignored", setting, k)
			}
			continue
		}
		cs = append(cs, c)
	}
	return cs
}
