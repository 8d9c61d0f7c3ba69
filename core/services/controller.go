package services

import (
	"sync"

	"github.com/kilianp07/agvkernel/core/model"
)

// NopController accepts every command and discards it.
type NopController struct{}

func (NopController) SetTransportOrder(model.TransportOrder) error { return nil }
func (NopController) AbortTransportOrder() error                   { return nil }

// RecordingControllerPool keeps every order pushed to any vehicle. It backs
// the one-shot CLI cycle and tests.
type RecordingControllerPool struct {
	mu      sync.Mutex
	Orders  map[string][]model.TransportOrder
	Aborted map[string]int
}

// NewRecordingControllerPool returns an empty pool.
func NewRecordingControllerPool() *RecordingControllerPool {
	return &RecordingControllerPool{
		Orders:  map[string][]model.TransportOrder{},
		Aborted: map[string]int{},
	}
}

// VehicleController returns a controller recording into the pool.
func (p *RecordingControllerPool) VehicleController(vehicle string) VehicleController {
	return &recordingController{pool: p, vehicle: vehicle}
}

// Last returns the last order pushed to vehicle.
func (p *RecordingControllerPool) Last(vehicle string) (model.TransportOrder, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	orders := p.Orders[vehicle]
	if len(orders) == 0 {
		return model.TransportOrder{}, false
	}
	return orders[len(orders)-1], true
}

// Count returns how many orders were pushed to vehicle.
func (p *RecordingControllerPool) Count(vehicle string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.Orders[vehicle])
}

type recordingController struct {
	pool    *RecordingControllerPool
	vehicle string
}

func (c *recordingController) SetTransportOrder(order model.TransportOrder) error {
	c.pool.mu.Lock()
	c.pool.Orders[c.vehicle] = append(c.pool.Orders[c.vehicle], order)
	c.pool.mu.Unlock()
	return nil
}

func (c *recordingController) AbortTransportOrder() error {
	c.pool.mu.Lock()
	c.pool.Aborted[c.vehicle]++
	c.pool.mu.Unlock()
	return nil
}
