package dispatch

import (
	"fmt"
	"slices"

	"github.com/kilianp07/agvkernel/core/model"
)

// FinishDriveOrder marks the vehicle's current drive order as finished and
// moves on to the next one. When the last drive order is done the transport
// order becomes FINISHED and the vehicle is freed.
func (d *Dispatcher) FinishDriveOrder(vehicle string) error {
	v, o, err := d.processedOrder(vehicle)
	if err != nil {
		return err
	}
	if !o.HasState(model.OrderStateBeingProcessed) {
		d.log.Warnf("vehicle %s reported progress on %s order %s", vehicle, o.State, o.Name)
		return nil
	}
	driveOrders := o.DriveOrders
	idx := o.CurrentDriveOrderIndex
	if idx >= 0 && idx < len(driveOrders) {
		driveOrders[idx].State = model.DriveOrderFinished
	}
	next := idx + 1
	if next < len(driveOrders) {
		driveOrders[next].State = model.DriveOrderTravelling
	}
	if err := d.orders.UpdateDriveOrders(o.Name, driveOrders); err != nil {
		return err
	}
	if err := d.orders.UpdateCurrentDriveOrderIndex(o.Name, next); err != nil {
		return err
	}
	if next < len(driveOrders) {
		updated, err := d.orders.TransportOrder(o.Name)
		if err != nil {
			return err
		}
		if err := d.controllers.VehicleController(vehicle).SetTransportOrder(updated); err != nil {
			d.log.Errorf("vehicle %s rejected transport order %s: %v", vehicle, o.Name, err)
		}
		return nil
	}
	if err := d.setOrderState(o.Name, o.State, model.OrderStateFinished); err != nil {
		return err
	}
	if err := d.advanceSequence(v, o); err != nil {
		return err
	}
	d.log.Infof("vehicle %s finished transport order %s", vehicle, o.Name)
	return d.freeVehicle(vehicle)
}

// FailOrder marks the vehicle's transport order as FAILED and frees the
// vehicle.
func (d *Dispatcher) FailOrder(vehicle string) error {
	v, o, err := d.processedOrder(vehicle)
	if err != nil {
		return err
	}
	if o.State.IsFinal() {
		d.log.Warnf("vehicle %s reported failure of %s order %s", vehicle, o.State, o.Name)
		return d.freeVehicle(vehicle)
	}
	driveOrders := o.DriveOrders
	if idx := o.CurrentDriveOrderIndex; idx >= 0 && idx < len(driveOrders) {
		driveOrders[idx].State = model.DriveOrderFailed
		if err := d.orders.UpdateDriveOrders(o.Name, driveOrders); err != nil {
			return err
		}
	}
	if err := d.setOrderState(o.Name, o.State, model.OrderStateFailed); err != nil {
		return err
	}
	if err := d.advanceSequence(v, o); err != nil {
		return err
	}
	d.log.Warnf("transport order %s failed on vehicle %s", o.Name, vehicle)
	return d.freeVehicle(vehicle)
}

// WithdrawOrder moves a non-final order to WITHDRAWN, drops its reservation
// and tells the processing vehicle to abort. Final orders are left untouched.
func (d *Dispatcher) WithdrawOrder(order string) error {
	o, err := d.orders.TransportOrder(order)
	if err != nil {
		return err
	}
	if o.State.IsFinal() {
		d.log.Warnf("transport order %s is already %s", o.Name, o.State)
		return nil
	}
	d.reservations.RemoveReservation(o.Name)
	if err := d.setOrderState(o.Name, o.State, model.OrderStateWithdrawn); err != nil {
		return err
	}
	if o.ProcessingVehicle == "" {
		return nil
	}
	v, err := d.orders.Vehicle(o.ProcessingVehicle)
	if err != nil {
		return err
	}
	if v.TransportOrder != o.Name {
		return nil
	}
	if err := d.controllers.VehicleController(v.Name).AbortTransportOrder(); err != nil {
		d.log.Errorf("vehicle %s failed to abort %s: %v", v.Name, o.Name, err)
	}
	if err := d.advanceSequence(v, o); err != nil {
		return err
	}
	d.log.Infof("withdrew transport order %s from %s", o.Name, v.Name)
	return d.freeVehicle(v.Name)
}

func (d *Dispatcher) processedOrder(vehicle string) (model.Vehicle, model.TransportOrder, error) {
	v, err := d.orders.Vehicle(vehicle)
	if err != nil {
		return model.Vehicle{}, model.TransportOrder{}, err
	}
	if v.TransportOrder == "" {
		return model.Vehicle{}, model.TransportOrder{}, fmt.Errorf("vehicle %s has no transport order: %w", vehicle, model.ErrInvalidArgument)
	}
	o, err := d.orders.TransportOrder(v.TransportOrder)
	if err != nil {
		return model.Vehicle{}, model.TransportOrder{}, err
	}
	return v, o, nil
}

// advanceSequence records that the order of a sequence reached a final state
// and releases the vehicle from a complete sequence once its last order is
// done.
func (d *Dispatcher) advanceSequence(v model.Vehicle, o model.TransportOrder) error {
	if o.WrappingSequence == "" {
		return nil
	}
	seq, err := d.orders.OrderSequence(o.WrappingSequence)
	if err != nil {
		return err
	}
	idx := slices.Index(seq.Orders, o.Name)
	if idx < 0 {
		return nil
	}
	if idx > seq.FinishedIndex {
		if err := d.orders.MarkOrderSequenceFinished(seq.Name, idx); err != nil {
			return err
		}
	}
	if seq.Complete && idx == len(seq.Orders)-1 && v.OrderSequence == seq.Name {
		return d.vehicles.SetVehicleOrderSequence(v.Name, "")
	}
	return nil
}
