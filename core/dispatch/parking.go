package dispatch

import (
	"fmt"

	"github.com/kilianp07/agvkernel/core/model"
)

// ParkOperation is the operation name of drive orders created for parking.
const ParkOperation = "PARK"

// parkIdleVehicles sends every parkable vehicle to the cheapest reachable
// parking position that is neither occupied nor targeted.
func (d *Dispatcher) parkIdleVehicles(res *CycleResult) error {
	vehicles := d.orders.Vehicles()
	taken := map[string]bool{}
	for _, v := range vehicles {
		if v.CurrentPosition != "" {
			taken[v.CurrentPosition] = true
		}
		if v.NextPosition != "" {
			taken[v.NextPosition] = true
		}
	}
	for _, o := range d.orders.TransportOrders() {
		if o.Type != model.OrderTypePark || o.State.IsFinal() || len(o.DriveOrders) == 0 {
			continue
		}
		taken[o.DriveOrders[len(o.DriveOrders)-1].Destination.Name] = true
	}
	var parking []string
	for _, p := range d.orders.Points() {
		if p.IsParkingPosition() {
			parking = append(parking, p.Name)
		}
	}

	for _, v := range vehicles {
		if reasons := d.parkable.Reasons(v); len(reasons) > 0 {
			d.log.Debugw("vehicle not parkable", map[string]any{"vehicle": v.Name, "reasons": reasons})
			continue
		}
		if len(d.reservations.FindReservations(v.Name)) > 0 {
			continue
		}
		point, route, ok := d.cheapestParkingPosition(v, parking, taken)
		if !ok {
			d.log.Debugf("no free parking position reachable for %s", v.Name)
			continue
		}
		if err := d.park(v, point, route); err != nil {
			return err
		}
		taken[point] = true
		res.Parked = append(res.Parked, v.Name)
	}
	return nil
}

func (d *Dispatcher) cheapestParkingPosition(v model.Vehicle, parking []string, taken map[string]bool) (string, *model.Route, bool) {
	var (
		bestPoint string
		best      *model.Route
	)
	for _, p := range parking {
		if taken[p] {
			continue
		}
		r, ok := d.router.Route(v, v.CurrentPosition, p)
		if !ok || len(r.Steps) == 0 {
			continue
		}
		if best == nil || r.Costs() < best.Costs() {
			bestPoint, best = p, model.NewRoute(r.Steps)
		}
	}
	return bestPoint, best, best != nil
}

func (d *Dispatcher) park(v model.Vehicle, point string, route *model.Route) error {
	created, err := d.orders.CreateTransportOrder(model.TransportOrder{
		Type:            model.OrderTypePark,
		IntendedVehicle: v.Name,
		Dispensable:     true,
		DriveOrders: []model.DriveOrder{{
			Destination: model.Destination{Kind: model.PointDestination, Name: point, Operation: ParkOperation},
		}},
	})
	if err != nil {
		return fmt.Errorf("park %s: %w", v.Name, err)
	}
	if err := d.setOrderState(created.Name, created.State, model.OrderStateDispatchable); err != nil {
		return fmt.Errorf("park %s: %w", v.Name, err)
	}
	created.State = model.OrderStateDispatchable
	c, err := NewAssignmentCandidate(v, created, []model.DriveOrder{created.DriveOrders[0].WithRoute(route)})
	if err != nil {
		return err
	}
	d.log.Infof("sending %s to parking position %s", v.Name, point)
	return d.assign(c)
}
