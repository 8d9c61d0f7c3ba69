package dispatch

import (
	"context"
	"errors"
	"slices"

	"github.com/kilianp07/agvkernel/core/model"
)

// activateOrders moves RAW orders whose dependencies finished to ACTIVE and
// ACTIVE orders to DISPATCHABLE, or UNROUTABLE if a destination is unknown.
func (d *Dispatcher) activateOrders() error {
	for _, o := range d.orders.TransportOrders() {
		switch o.State {
		case model.OrderStateRaw:
			if !d.dependenciesFinished(o) {
				continue
			}
			if err := d.setOrderState(o.Name, o.State, model.OrderStateActive); err != nil {
				return err
			}
			o.State = model.OrderStateActive
			fallthrough
		case model.OrderStateActive:
			next := model.OrderStateDispatchable
			if _, err := d.destinationPoints(o); err != nil {
				if !errors.Is(err, model.ErrObjectUnknown) && !errors.Is(err, model.ErrInvalidArgument) {
					return err
				}
				d.log.Warnf("transport order %s is unroutable: %v", o.Name, err)
				next = model.OrderStateUnroutable
			}
			if err := d.setOrderState(o.Name, o.State, next); err != nil {
				return err
			}
		}
	}
	return nil
}

func (d *Dispatcher) dependenciesFinished(o model.TransportOrder) bool {
	for _, dep := range o.Dependencies {
		other, err := d.orders.TransportOrder(dep)
		if err != nil {
			d.log.Debugf("order %s waits for unknown dependency %s", o.Name, dep)
			return false
		}
		if !other.HasState(model.OrderStateFinished) {
			return false
		}
	}
	return true
}

// readyForOrder reports whether a vehicle holding a reservation or sequence
// can take its next order right now.
func readyForOrder(v model.Vehicle) bool {
	return v.HasProcState(model.ProcStateIdle) &&
		v.IntegrationLevel == model.IntegrationToBeUtilized &&
		v.CurrentPosition != "" &&
		!v.Paused
}

// assignReservedOrders commits orders reserved for vehicles that gave up
// their previous order.
func (d *Dispatcher) assignReservedOrders(res *CycleResult) error {
	for _, name := range d.reservations.Vehicles() {
		v, err := d.orders.Vehicle(name)
		if err != nil {
			return err
		}
		if !readyForOrder(v) {
			continue
		}
		for _, orderName := range d.reservations.FindReservations(name) {
			o, err := d.orders.TransportOrder(orderName)
			if err != nil {
				return err
			}
			if !o.HasState(model.OrderStateDispatchable) {
				d.log.Debugf("dropping reservation of %s order %s for %s", o.State, o.Name, name)
				d.reservations.RemoveReservation(orderName)
				continue
			}
			c, ok, err := d.candidateFor(v, o)
			if err != nil {
				return err
			}
			if !ok {
				d.log.Debugf("no route for reserved order %s and vehicle %s", o.Name, name)
				d.reservations.RemoveReservation(orderName)
				continue
			}
			if err := d.assign(c); err != nil {
				return err
			}
			res.Assignments = append(res.Assignments, assignmentOf(c))
			break
		}
	}
	return nil
}

// assignSequenceSuccessors gives idle vehicles bound to an order sequence the
// sequence's next order.
func (d *Dispatcher) assignSequenceSuccessors(res *CycleResult) error {
	for _, v := range d.orders.Vehicles() {
		if v.OrderSequence == "" || !readyForOrder(v) {
			continue
		}
		seq, err := d.orders.OrderSequence(v.OrderSequence)
		if err != nil {
			return err
		}
		next, ok := seq.NextUnfinishedOrder()
		if !ok {
			if seq.Complete {
				d.log.Debugf("vehicle %s finished order sequence %s", v.Name, seq.Name)
				if err := d.vehicles.SetVehicleOrderSequence(v.Name, ""); err != nil {
					return err
				}
			}
			continue
		}
		o, err := d.orders.TransportOrder(next)
		if err != nil {
			return err
		}
		if !o.HasState(model.OrderStateDispatchable) || !v.AcceptsOrderType(o.Type) {
			continue
		}
		if reasons := d.orderFilters.Reasons(o); len(reasons) > 0 {
			d.log.Debugw("sequence order not dispatchable", map[string]any{"order": o.Name, "reasons": reasons})
			continue
		}
		c, ok, err := d.candidateFor(v, o)
		if err != nil {
			return err
		}
		if !ok {
			d.log.Debugf("no route for sequence order %s and vehicle %s", o.Name, v.Name)
			continue
		}
		if err := d.assign(c); err != nil {
			return err
		}
		res.Assignments = append(res.Assignments, assignmentOf(c))
	}
	return nil
}

func (d *Dispatcher) availableVehicles() ([]model.Vehicle, error) {
	var res []model.Vehicle
	for _, v := range d.orders.Vehicles() {
		ok, err := d.available.Test(v)
		if err != nil {
			return nil, err
		}
		if ok {
			res = append(res, v)
		}
	}
	return res, nil
}

func (d *Dispatcher) dispatchableOrders() []model.TransportOrder {
	var res []model.TransportOrder
	for _, o := range d.orders.TransportOrders() {
		if !o.HasState(model.OrderStateDispatchable) {
			continue
		}
		if reasons := d.orderFilters.Reasons(o); len(reasons) > 0 {
			d.log.Debugw("order not dispatchable", map[string]any{"order": o.Name, "reasons": reasons})
			continue
		}
		res = append(res, o)
	}
	return res
}

// assignFreeOrders matches available vehicles with dispatchable orders. The
// scarcer side picks from the more plentiful one: with at least as many
// orders as vehicles each vehicle picks its best order, otherwise each order
// picks its best vehicle. Losers of a conflict wait for the next cycle.
func (d *Dispatcher) assignFreeOrders(ctx context.Context, cfg Config, res *CycleResult) error {
	vehicles, err := d.availableVehicles()
	if err != nil {
		return err
	}
	orders := d.dispatchableOrders()
	if len(vehicles) == 0 || len(orders) == 0 {
		d.log.Debugf("nothing to assign: %d vehicles, %d orders", len(vehicles), len(orders))
		return nil
	}
	candidates, err := d.buildCandidates(ctx, vehicles, orders)
	if err != nil {
		return err
	}
	candidatesGauge.Set(float64(len(candidates)))
	comps := NewComposites(cfg, d.clock.Now, d.log)

	takenVehicles := map[string]bool{}
	takenOrders := map[string]bool{}
	pick := func(own []AssignmentCandidate, lost bool, rank Comparator[AssignmentCandidate]) error {
		if len(own) == 0 {
			if lost {
				res.Requeued++
			}
			return nil
		}
		slices.SortStableFunc(own, rank)
		best := own[0]
		takenVehicles[best.vehicle.Name] = true
		takenOrders[best.order.Name] = true
		return d.commit(best, res)
	}

	if len(orders) >= len(vehicles) {
		slices.SortStableFunc(vehicles, comps.Vehicles)
		for _, v := range vehicles {
			var own []AssignmentCandidate
			lost := false
			for _, c := range candidates {
				if c.vehicle.Name != v.Name {
					continue
				}
				if takenOrders[c.order.Name] {
					lost = true
					continue
				}
				own = append(own, c)
			}
			if err := pick(own, lost, comps.OrderCandidates); err != nil {
				return err
			}
		}
		return nil
	}

	slices.SortStableFunc(orders, comps.Orders)
	for _, o := range orders {
		var own []AssignmentCandidate
		lost := false
		for _, c := range candidates {
			if c.order.Name != o.Name {
				continue
			}
			if takenVehicles[c.vehicle.Name] {
				lost = true
				continue
			}
			own = append(own, c)
		}
		if err := pick(own, lost, comps.VehicleCandidates); err != nil {
			return err
		}
	}
	return nil
}

// commit assigns the candidate, or, if the vehicle is busy with a dispensable
// order, reserves the new order and withdraws the current one.
func (d *Dispatcher) commit(c AssignmentCandidate, res *CycleResult) error {
	if c.vehicle.HasProcState(model.ProcStateProcessingOrder) && c.vehicle.TransportOrder != "" {
		d.reservations.AddReservation(c.order.Name, c.vehicle.Name)
		d.log.Infof("reserved %s for %s, withdrawing dispensable order %s",
			c.order.Name, c.vehicle.Name, c.vehicle.TransportOrder)
		if err := d.WithdrawOrder(c.vehicle.TransportOrder); err != nil {
			return err
		}
		res.Reserved = append(res.Reserved, assignmentOf(c))
		return nil
	}
	if err := d.assign(c); err != nil {
		return err
	}
	res.Assignments = append(res.Assignments, assignmentOf(c))
	return nil
}
