// Package objectpool is an in-memory store of the kernel's plant and order
// objects. It implements the object, transport order, vehicle and plant model
// services.
package objectpool

import (
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/kilianp07/agvkernel/core/model"
	"github.com/kilianp07/agvkernel/core/services"
)

// Pool holds all objects behind a single RWMutex. Returned values are copies.
type Pool struct {
	mu             sync.RWMutex
	points         map[string]model.Point
	paths          map[string]model.Path
	locationTypes  map[string]model.LocationType
	locations      map[string]model.Location
	vehicles       map[string]model.Vehicle
	orders         map[string]model.TransportOrder
	sequences      map[string]model.OrderSequence
	peripheralJobs map[string]model.PeripheralJob
	clock          services.TimeProvider
}

var (
	_ services.TransportOrderService = (*Pool)(nil)
	_ services.VehicleService        = (*Pool)(nil)
	_ services.PlantModelService     = (*Pool)(nil)
)

// New returns an empty pool. A nil clock uses the system clock.
func New(clock services.TimeProvider) *Pool {
	if clock == nil {
		clock = services.SystemClock{}
	}
	return &Pool{
		points:         map[string]model.Point{},
		paths:          map[string]model.Path{},
		locationTypes:  map[string]model.LocationType{},
		locations:      map[string]model.Location{},
		vehicles:       map[string]model.Vehicle{},
		orders:         map[string]model.TransportOrder{},
		sequences:      map[string]model.OrderSequence{},
		peripheralJobs: map[string]model.PeripheralJob{},
		clock:          clock,
	}
}

// AddPoint stores or replaces a point.
func (p *Pool) AddPoint(pt model.Point) {
	p.mu.Lock()
	p.points[pt.Name] = pt
	p.mu.Unlock()
}

// AddPath stores or replaces a path.
func (p *Pool) AddPath(path model.Path) {
	p.mu.Lock()
	p.paths[path.Name] = path
	p.mu.Unlock()
}

// AddLocationType stores or replaces a location type.
func (p *Pool) AddLocationType(lt model.LocationType) {
	p.mu.Lock()
	p.locationTypes[lt.Name] = lt
	p.mu.Unlock()
}

// AddLocation stores or replaces a location.
func (p *Pool) AddLocation(loc model.Location) {
	p.mu.Lock()
	loc.Links = append([]string(nil), loc.Links...)
	p.locations[loc.Name] = loc
	p.mu.Unlock()
}

// AddVehicle stores or replaces a vehicle.
func (p *Pool) AddVehicle(v model.Vehicle) {
	p.mu.Lock()
	p.vehicles[v.Name] = cloneVehicle(v)
	p.mu.Unlock()
}

// AddOrderSequence stores or replaces an order sequence.
func (p *Pool) AddOrderSequence(s model.OrderSequence) {
	p.mu.Lock()
	s.Orders = append([]string(nil), s.Orders...)
	p.sequences[s.Name] = s
	p.mu.Unlock()
}

// AddPeripheralJob stores or replaces a peripheral job.
func (p *Pool) AddPeripheralJob(j model.PeripheralJob) {
	p.mu.Lock()
	p.peripheralJobs[j.Name] = j
	p.mu.Unlock()
}

// SetPeripheralJobState updates the state of a peripheral job.
func (p *Pool) SetPeripheralJobState(name string, state model.PeripheralJobState) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	j, ok := p.peripheralJobs[name]
	if !ok {
		return model.Unknown("peripheral job", name)
	}
	j.State = state
	p.peripheralJobs[name] = j
	return nil
}

func (p *Pool) Vehicle(name string) (model.Vehicle, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	v, ok := p.vehicles[name]
	if !ok {
		return model.Vehicle{}, model.Unknown("vehicle", name)
	}
	return cloneVehicle(v), nil
}

// Vehicles returns all vehicles sorted by name.
func (p *Pool) Vehicles() []model.Vehicle {
	p.mu.RLock()
	defer p.mu.RUnlock()
	res := make([]model.Vehicle, 0, len(p.vehicles))
	for _, v := range p.vehicles {
		res = append(res, cloneVehicle(v))
	}
	sort.Slice(res, func(i, j int) bool { return res[i].Name < res[j].Name })
	return res
}

func (p *Pool) TransportOrder(name string) (model.TransportOrder, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	o, ok := p.orders[name]
	if !ok {
		return model.TransportOrder{}, model.Unknown("transport order", name)
	}
	return cloneOrder(o), nil
}

// TransportOrders returns all orders sorted by name.
func (p *Pool) TransportOrders() []model.TransportOrder {
	p.mu.RLock()
	defer p.mu.RUnlock()
	res := make([]model.TransportOrder, 0, len(p.orders))
	for _, o := range p.orders {
		res = append(res, cloneOrder(o))
	}
	sort.Slice(res, func(i, j int) bool { return res[i].Name < res[j].Name })
	return res
}

func (p *Pool) Point(name string) (model.Point, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	pt, ok := p.points[name]
	if !ok {
		return model.Point{}, model.Unknown("point", name)
	}
	return pt, nil
}

// Points returns all points sorted by name.
func (p *Pool) Points() []model.Point {
	p.mu.RLock()
	defer p.mu.RUnlock()
	res := make([]model.Point, 0, len(p.points))
	for _, pt := range p.points {
		res = append(res, pt)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].Name < res[j].Name })
	return res
}

func (p *Pool) Path(name string) (model.Path, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	path, ok := p.paths[name]
	if !ok {
		return model.Path{}, model.Unknown("path", name)
	}
	return path, nil
}

// Paths returns all paths sorted by name.
func (p *Pool) Paths() []model.Path {
	p.mu.RLock()
	defer p.mu.RUnlock()
	res := make([]model.Path, 0, len(p.paths))
	for _, path := range p.paths {
		res = append(res, path)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].Name < res[j].Name })
	return res
}

func (p *Pool) Location(name string) (model.Location, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	loc, ok := p.locations[name]
	if !ok {
		return model.Location{}, model.Unknown("location", name)
	}
	loc.Links = append([]string(nil), loc.Links...)
	return loc, nil
}

// Locations returns all locations sorted by name.
func (p *Pool) Locations() []model.Location {
	p.mu.RLock()
	defer p.mu.RUnlock()
	res := make([]model.Location, 0, len(p.locations))
	for _, loc := range p.locations {
		loc.Links = append([]string(nil), loc.Links...)
		res = append(res, loc)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].Name < res[j].Name })
	return res
}

// LocationType returns the named location type.
func (p *Pool) LocationType(name string) (model.LocationType, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	lt, ok := p.locationTypes[name]
	if !ok {
		return model.LocationType{}, model.Unknown("location type", name)
	}
	return lt, nil
}

func (p *Pool) OrderSequence(name string) (model.OrderSequence, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	s, ok := p.sequences[name]
	if !ok {
		return model.OrderSequence{}, model.Unknown("order sequence", name)
	}
	s.Orders = append([]string(nil), s.Orders...)
	return s, nil
}

// PeripheralJobs returns the jobs matching pred, sorted by name.
func (p *Pool) PeripheralJobs(pred func(model.PeripheralJob) bool) []model.PeripheralJob {
	p.mu.RLock()
	defer p.mu.RUnlock()
	var res []model.PeripheralJob
	for _, j := range p.peripheralJobs {
		if pred == nil || pred(j) {
			res = append(res, j)
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i].Name < res[j].Name })
	return res
}

// CreateTransportOrder stores a new order in state RAW. Orders without a name
// get a generated one; the creation time defaults to the pool's clock.
func (p *Pool) CreateTransportOrder(order model.TransportOrder) (model.TransportOrder, error) {
	if len(order.DriveOrders) == 0 {
		return model.TransportOrder{}, fmt.Errorf("transport order %q has no drive orders: %w", order.Name, model.ErrInvalidArgument)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if order.Name == "" {
		order.Name = "TOrder-" + uuid.NewString()
	}
	if _, ok := p.orders[order.Name]; ok {
		return model.TransportOrder{}, fmt.Errorf("transport order %q: %w", order.Name, model.ErrObjectExists)
	}
	if order.Type == "" {
		order.Type = model.OrderTypeNone
	}
	if order.CreationTime.IsZero() {
		order.CreationTime = p.clock.Now()
	}
	order.State = model.OrderStateRaw
	order.CurrentDriveOrderIndex = -1
	order.ProcessingVehicle = ""
	order = cloneOrder(order)
	for i := range order.DriveOrders {
		order.DriveOrders[i].TransportOrder = order.Name
		if order.DriveOrders[i].Name == "" {
			order.DriveOrders[i].Name = fmt.Sprintf("%s-%d", order.Name, i)
		}
	}
	if order.WrappingSequence != "" {
		seq, ok := p.sequences[order.WrappingSequence]
		if !ok {
			return model.TransportOrder{}, model.Unknown("order sequence", order.WrappingSequence)
		}
		if seq.Complete {
			return model.TransportOrder{}, fmt.Errorf("order sequence %q is complete: %w", seq.Name, model.ErrInvalidArgument)
		}
		seq.Orders = append(seq.Orders, order.Name)
		p.sequences[seq.Name] = seq
	}
	p.orders[order.Name] = order
	return cloneOrder(order), nil
}

// UpdateDriveOrders replaces the drive orders of an order, e.g. after routing.
func (p *Pool) UpdateDriveOrders(name string, driveOrders []model.DriveOrder) error {
	return p.updateOrder(name, func(o *model.TransportOrder) {
		o.DriveOrders = cloneDriveOrders(driveOrders)
	})
}

func (p *Pool) SetTransportOrderState(name string, state model.OrderState) error {
	return p.updateOrder(name, func(o *model.TransportOrder) { o.State = state })
}

func (p *Pool) SetTransportOrderProcessingVehicle(name, vehicle string) error {
	return p.updateOrder(name, func(o *model.TransportOrder) { o.ProcessingVehicle = vehicle })
}

func (p *Pool) UpdateCurrentDriveOrderIndex(name string, index int) error {
	return p.updateOrder(name, func(o *model.TransportOrder) { o.CurrentDriveOrderIndex = index })
}

func (p *Pool) updateOrder(name string, fn func(*model.TransportOrder)) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	o, ok := p.orders[name]
	if !ok {
		return model.Unknown("transport order", name)
	}
	fn(&o)
	p.orders[name] = o
	return nil
}

func (p *Pool) SetOrderSequenceProcessingVehicle(name, vehicle string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	s, ok := p.sequences[name]
	if !ok {
		return model.Unknown("order sequence", name)
	}
	s.ProcessingVehicle = vehicle
	p.sequences[name] = s
	return nil
}

// MarkOrderSequenceComplete closes the sequence for further orders.
func (p *Pool) MarkOrderSequenceComplete(name string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	s, ok := p.sequences[name]
	if !ok {
		return model.Unknown("order sequence", name)
	}
	s.Complete = true
	p.sequences[name] = s
	return nil
}

func (p *Pool) MarkOrderSequenceFinished(name string, finishedIndex int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	s, ok := p.sequences[name]
	if !ok {
		return model.Unknown("order sequence", name)
	}
	s.FinishedIndex = finishedIndex
	p.sequences[name] = s
	return nil
}

func (p *Pool) SetVehicleProcState(name string, state model.ProcState) error {
	return p.updateVehicle(name, func(v *model.Vehicle) {
		if v.ProcState != state {
			v.ProcStateTimestamp = p.clock.Now()
		}
		v.ProcState = state
	})
}

func (p *Pool) SetVehicleTransportOrder(name, order string) error {
	return p.updateVehicle(name, func(v *model.Vehicle) { v.TransportOrder = order })
}

func (p *Pool) SetVehicleOrderSequence(name, sequence string) error {
	return p.updateVehicle(name, func(v *model.Vehicle) { v.OrderSequence = sequence })
}

func (p *Pool) SetVehicleIntegrationLevel(name string, level model.IntegrationLevel) error {
	return p.updateVehicle(name, func(v *model.Vehicle) { v.IntegrationLevel = level })
}

// UpdateVehicle replaces the stored vehicle with the same name.
func (p *Pool) UpdateVehicle(v model.Vehicle) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.vehicles[v.Name]; !ok {
		return model.Unknown("vehicle", v.Name)
	}
	p.vehicles[v.Name] = cloneVehicle(v)
	return nil
}

func (p *Pool) updateVehicle(name string, fn func(*model.Vehicle)) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	v, ok := p.vehicles[name]
	if !ok {
		return model.Unknown("vehicle", name)
	}
	fn(&v)
	p.vehicles[name] = v
	return nil
}

func (p *Pool) SetPathLocked(name string, locked bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	path, ok := p.paths[name]
	if !ok {
		return model.Unknown("path", name)
	}
	path.Locked = locked
	p.paths[name] = path
	return nil
}

func (p *Pool) SetLocationLocked(name string, locked bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	loc, ok := p.locations[name]
	if !ok {
		return model.Unknown("location", name)
	}
	loc.Locked = locked
	p.locations[name] = loc
	return nil
}

func cloneVehicle(v model.Vehicle) model.Vehicle {
	v.AcceptableOrderTypes = append([]model.AcceptableOrderType(nil), v.AcceptableOrderTypes...)
	return v
}

func cloneOrder(o model.TransportOrder) model.TransportOrder {
	o.DriveOrders = cloneDriveOrders(o.DriveOrders)
	o.Dependencies = append([]string(nil), o.Dependencies...)
	return o
}

func cloneDriveOrders(in []model.DriveOrder) []model.DriveOrder {
	if in == nil {
		return nil
	}
	out := make([]model.DriveOrder, len(in))
	for i, d := range in {
		if d.Route != nil {
			d.Route = model.NewRoute(d.Route.Steps)
		}
		out[i] = d
	}
	return out
}
