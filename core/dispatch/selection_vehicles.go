package dispatch

import (
	"fmt"

	"github.com/kilianp07/agvkernel/core/model"
	"github.com/kilianp07/agvkernel/core/services"
)

// IsAvailableForAnyOrder decides whether a vehicle may receive a new
// transport order in the current cycle.
type IsAvailableForAnyOrder struct {
	objects      services.ObjectService
	reservations *OrderReservationPool
	config       ConfigSource
}

// NewIsAvailableForAnyOrder builds the filter.
func NewIsAvailableForAnyOrder(objects services.ObjectService, reservations *OrderReservationPool, config ConfigSource) *IsAvailableForAnyOrder {
	return &IsAvailableForAnyOrder{objects: objects, reservations: reservations, config: config}
}

// Test returns true when the vehicle is fully utilized, positioned, charged
// enough, unreserved, not paused and either idle or processing an order it may
// give up. Unknown referenced objects are reported as errors.
func (f *IsAvailableForAnyOrder) Test(v model.Vehicle) (bool, error) {
	if v.IntegrationLevel != model.IntegrationToBeUtilized ||
		v.CurrentPosition == "" ||
		f.needsMoreCharging(v) ||
		len(f.reservations.FindReservations(v.Name)) > 0 ||
		v.Paused {
		return false, nil
	}
	ok, err := f.processesNoOrDispensableOrder(v)
	if err != nil || !ok {
		return false, err
	}
	if v.OrderSequence == "" {
		return true, nil
	}
	return f.processesDispensableLastOrderInSequence(v)
}

func (f *IsAvailableForAnyOrder) needsMoreCharging(v model.Vehicle) bool {
	if !v.HasState(model.VehicleStateCharging) {
		return false
	}
	if f.config.Config().KeepRechargingUntilFullyCharged {
		return !v.IsEnergyLevelFullyRecharged()
	}
	return !v.IsEnergyLevelSufficientlyRecharged()
}

func (f *IsAvailableForAnyOrder) processesNoOrDispensableOrder(v model.Vehicle) (bool, error) {
	if v.HasProcState(model.ProcStateIdle) &&
		(v.HasState(model.VehicleStateIdle) || v.HasState(model.VehicleStateCharging)) {
		return true, nil
	}
	if !v.HasProcState(model.ProcStateProcessingOrder) {
		return false, nil
	}
	order, err := f.objects.TransportOrder(v.TransportOrder)
	if err != nil {
		return false, fmt.Errorf("vehicle %s: %w", v.Name, err)
	}
	return order.Dispensable, nil
}

func (f *IsAvailableForAnyOrder) processesDispensableLastOrderInSequence(v model.Vehicle) (bool, error) {
	if !v.HasProcState(model.ProcStateProcessingOrder) {
		return false, nil
	}
	seq, err := f.objects.OrderSequence(v.OrderSequence)
	if err != nil {
		return false, fmt.Errorf("vehicle %s: %w", v.Name, err)
	}
	last, ok := seq.LastOrder()
	if !seq.Complete || !ok || last != v.TransportOrder {
		return false, nil
	}
	order, err := f.objects.TransportOrder(v.TransportOrder)
	if err != nil {
		return false, fmt.Errorf("vehicle %s: %w", v.Name, err)
	}
	return order.Dispensable, nil
}

// IsParkable explains why a vehicle may not be sent to a parking position.
type IsParkable struct {
	objects services.ObjectService
	config  ConfigSource
	clock   services.TimeProvider
}

// NewIsParkable builds the filter.
func NewIsParkable(objects services.ObjectService, config ConfigSource, clock services.TimeProvider) *IsParkable {
	return &IsParkable{objects: objects, config: config, clock: clock}
}

// Reasons returns why the vehicle cannot be parked. An empty result means it
// can.
func (f *IsParkable) Reasons(v model.Vehicle) []string {
	if v.IntegrationLevel != model.IntegrationToBeUtilized {
		return []string{"not fully integrated"}
	}
	if v.CurrentPosition == "" {
		return []string{"unknown position"}
	}
	pt, err := f.objects.Point(v.CurrentPosition)
	if err != nil {
		return []string{err.Error()}
	}
	var reasons []string
	if pt.IsParkingPosition() {
		reasons = append(reasons, "already on a parking position")
	}
	if !v.HasState(model.VehicleStateIdle) {
		reasons = append(reasons, fmt.Sprintf("state is %s", v.State))
	}
	if !v.HasProcState(model.ProcStateIdle) {
		reasons = append(reasons, fmt.Sprintf("processing state is %s", v.ProcState))
	}
	if v.OrderSequence != "" {
		reasons = append(reasons, "bound to order sequence "+v.OrderSequence)
	}
	if !v.AcceptsOrderType(model.OrderTypePark) {
		reasons = append(reasons, "does not accept park orders")
	}
	delay := f.config.Config().ParkIdleVehiclesDelay()
	if f.clock.Now().Sub(v.ProcStateTimestamp) < delay {
		reasons = append(reasons, fmt.Sprintf("idle for less than %s", delay))
	}
	return reasons
}
