// Package services declares the collaborators the dispatching core depends on.
// Reference implementations live under infra/.
package services

import (
	"time"

	"github.com/kilianp07/agvkernel/core/model"
)

// Router computes routes between points for a given vehicle. Implementations
// must be free of side effects and safe for concurrent use.
type Router interface {
	// Route returns the cheapest route from source to destination point.
	// The boolean is false when no route exists.
	Route(vehicle model.Vehicle, source, destination string) (model.Route, bool)
	// UpdateRoutingTopology rebuilds internal routing tables, e.g. after
	// path locks changed.
	UpdateRoutingTopology()
}

// ObjectService gives read access to the kernel's objects. Lookups of missing
// objects return a *model.ObjectUnknownError.
type ObjectService interface {
	Vehicle(name string) (model.Vehicle, error)
	Vehicles() []model.Vehicle
	TransportOrder(name string) (model.TransportOrder, error)
	TransportOrders() []model.TransportOrder
	Point(name string) (model.Point, error)
	Points() []model.Point
	Path(name string) (model.Path, error)
	Paths() []model.Path
	Location(name string) (model.Location, error)
	OrderSequence(name string) (model.OrderSequence, error)
	PeripheralJobs(pred func(model.PeripheralJob) bool) []model.PeripheralJob
}

// TransportOrderService mutates transport orders and order sequences.
type TransportOrderService interface {
	ObjectService
	CreateTransportOrder(order model.TransportOrder) (model.TransportOrder, error)
	UpdateDriveOrders(order string, driveOrders []model.DriveOrder) error
	SetTransportOrderState(order string, state model.OrderState) error
	SetTransportOrderProcessingVehicle(order, vehicle string) error
	UpdateCurrentDriveOrderIndex(order string, index int) error
	SetOrderSequenceProcessingVehicle(sequence, vehicle string) error
	MarkOrderSequenceFinished(sequence string, finishedIndex int) error
}

// VehicleService mutates vehicles.
type VehicleService interface {
	SetVehicleProcState(vehicle string, state model.ProcState) error
	SetVehicleTransportOrder(vehicle, order string) error
	SetVehicleOrderSequence(vehicle, sequence string) error
	SetVehicleIntegrationLevel(vehicle string, level model.IntegrationLevel) error
	UpdateVehicle(vehicle model.Vehicle) error
}

// PlantModelService mutates the plant model.
type PlantModelService interface {
	SetPathLocked(path string, locked bool) error
	SetLocationLocked(location string, locked bool) error
}

// VehicleController drives one physical vehicle.
type VehicleController interface {
	// SetTransportOrder hands the (possibly rerouted) order to the vehicle.
	SetTransportOrder(order model.TransportOrder) error
	// AbortTransportOrder tells the vehicle to stop working on its order.
	AbortTransportOrder() error
}

// VehicleControllerPool resolves the controller attached to a vehicle.
type VehicleControllerPool interface {
	VehicleController(vehicle string) VehicleController
}

// TimeProvider returns the current time.
type TimeProvider interface {
	Now() time.Time
}

// SystemClock is the wall clock.
type SystemClock struct{}

// Now returns time.Now().
func (SystemClock) Now() time.Time { return time.Now() }

// FixedClock always returns the same instant. Tests advance it by assigning.
type FixedClock struct {
	T time.Time
}

// Now returns the configured instant.
func (c *FixedClock) Now() time.Time { return c.T }
