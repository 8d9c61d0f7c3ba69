package dispatch

import (
	"slices"
	"sync"
)

// OrderReservationPool records transport orders held for vehicles until the
// assignment is committed. Its state is transient and never persisted.
type OrderReservationPool struct {
	mu sync.RWMutex
	// vehicle -> reserved orders, in reservation order
	byVehicle map[string][]string
	// order -> vehicle
	byOrder map[string]string
}

// NewOrderReservationPool returns an empty pool.
func NewOrderReservationPool() *OrderReservationPool {
	return &OrderReservationPool{
		byVehicle: map[string][]string{},
		byOrder:   map[string]string{},
	}
}

// Clear removes all reservations.
func (p *OrderReservationPool) Clear() {
	p.mu.Lock()
	p.byVehicle = map[string][]string{}
	p.byOrder = map[string]string{}
	p.mu.Unlock()
}

// IsReserved reports whether the order is reserved for any vehicle.
func (p *OrderReservationPool) IsReserved(order string) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	_, ok := p.byOrder[order]
	return ok
}

// ReservedFor returns the vehicle the order is reserved for.
func (p *OrderReservationPool) ReservedFor(order string) (string, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	v, ok := p.byOrder[order]
	return v, ok
}

// AddReservation reserves order for vehicle. An existing reservation of the
// order for another vehicle is moved.
func (p *OrderReservationPool) AddReservation(order, vehicle string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if prev, ok := p.byOrder[order]; ok {
		if prev == vehicle {
			return
		}
		p.removeLocked(order, prev)
	}
	p.byOrder[order] = vehicle
	p.byVehicle[vehicle] = append(p.byVehicle[vehicle], order)
}

// RemoveReservation drops the reservation of order, if any.
func (p *OrderReservationPool) RemoveReservation(order string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if v, ok := p.byOrder[order]; ok {
		p.removeLocked(order, v)
	}
}

// RemoveReservations drops every reservation held for vehicle.
func (p *OrderReservationPool) RemoveReservations(vehicle string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, o := range p.byVehicle[vehicle] {
		delete(p.byOrder, o)
	}
	delete(p.byVehicle, vehicle)
}

// FindReservations returns the orders reserved for vehicle in reservation order.
func (p *OrderReservationPool) FindReservations(vehicle string) []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return append([]string(nil), p.byVehicle[vehicle]...)
}

// Vehicles returns the vehicles holding reservations, sorted by name.
func (p *OrderReservationPool) Vehicles() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	res := make([]string, 0, len(p.byVehicle))
	for v := range p.byVehicle {
		res = append(res, v)
	}
	slices.Sort(res)
	return res
}

func (p *OrderReservationPool) removeLocked(order, vehicle string) {
	delete(p.byOrder, order)
	orders := slices.DeleteFunc(p.byVehicle[vehicle], func(o string) bool { return o == order })
	if len(orders) == 0 {
		delete(p.byVehicle, vehicle)
		return
	}
	p.byVehicle[vehicle] = orders
}
