package dispatch

import (
	"fmt"

	"github.com/kilianp07/agvkernel/core/model"
	"github.com/kilianp07/agvkernel/core/services"
)

// OrderFilter explains why a transport order cannot be dispatched.
type OrderFilter interface {
	Reasons(order model.TransportOrder) []string
}

// OrderFilterFunc adapts a function to OrderFilter.
type OrderFilterFunc func(order model.TransportOrder) []string

func (f OrderFilterFunc) Reasons(order model.TransportOrder) []string { return f(order) }

// OrderFilters concatenates the reasons of all filters.
type OrderFilters []OrderFilter

func (fs OrderFilters) Reasons(order model.TransportOrder) []string {
	var reasons []string
	for _, f := range fs {
		reasons = append(reasons, f.Reasons(order)...)
	}
	return reasons
}

// ContainsLockedTargetLocations rejects orders with a drive order heading to
// a locked or unknown location. Point destinations are never checked.
type ContainsLockedTargetLocations struct {
	objects services.ObjectService
}

// NewContainsLockedTargetLocations builds the filter.
func NewContainsLockedTargetLocations(objects services.ObjectService) *ContainsLockedTargetLocations {
	return &ContainsLockedTargetLocations{objects: objects}
}

func (f *ContainsLockedTargetLocations) Reasons(order model.TransportOrder) []string {
	for _, d := range order.DriveOrders {
		if d.Destination.Kind != model.LocationDestination {
			continue
		}
		loc, err := f.objects.Location(d.Destination.Name)
		if err != nil {
			return []string{err.Error()}
		}
		if loc.Locked {
			return []string{"destination location " + loc.Name + " is locked"}
		}
	}
	return nil
}

// HasUnfinishedPeripheralJobs rejects orders with related peripheral jobs
// that must complete before the order may proceed.
type HasUnfinishedPeripheralJobs struct {
	objects services.ObjectService
}

// NewHasUnfinishedPeripheralJobs builds the filter.
func NewHasUnfinishedPeripheralJobs(objects services.ObjectService) *HasUnfinishedPeripheralJobs {
	return &HasUnfinishedPeripheralJobs{objects: objects}
}

func (f *HasUnfinishedPeripheralJobs) Reasons(order model.TransportOrder) []string {
	if len(UnfinishedRequiredPeripheralJobs(f.objects, order.Name)) > 0 {
		return []string{"related to unfinished peripheral jobs"}
	}
	return nil
}

// UnfinishedRequiredPeripheralJobs returns the non-final peripheral jobs
// related to the order whose operation requires completion.
func UnfinishedRequiredPeripheralJobs(objects services.ObjectService, order string) []model.PeripheralJob {
	return objects.PeripheralJobs(func(j model.PeripheralJob) bool {
		return j.RelatedTransportOrder == order &&
			j.Operation.CompletionRequired &&
			!j.State.IsFinal()
	})
}

// IsFreelyDispatchable rejects orders held in the reservation pool and orders
// of a sequence that are not the sequence's next unfinished order.
type IsFreelyDispatchable struct {
	objects      services.ObjectService
	reservations *OrderReservationPool
}

// NewIsFreelyDispatchable builds the filter.
func NewIsFreelyDispatchable(objects services.ObjectService, reservations *OrderReservationPool) *IsFreelyDispatchable {
	return &IsFreelyDispatchable{objects: objects, reservations: reservations}
}

func (f *IsFreelyDispatchable) Reasons(order model.TransportOrder) []string {
	var reasons []string
	if v, ok := f.reservations.ReservedFor(order.Name); ok {
		reasons = append(reasons, "reserved for "+v)
	}
	if order.WrappingSequence != "" {
		seq, err := f.objects.OrderSequence(order.WrappingSequence)
		if err != nil {
			return append(reasons, fmt.Sprintf("order sequence %s unknown", order.WrappingSequence))
		}
		if next, ok := seq.NextUnfinishedOrder(); !ok || next != order.Name {
			reasons = append(reasons, "not the next order of sequence "+seq.Name)
		}
	}
	return reasons
}
