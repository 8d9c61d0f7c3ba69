package dispatch

import (
	"context"
	"fmt"
	"time"

	"github.com/kilianp07/agvkernel/core/events"
	"github.com/kilianp07/agvkernel/core/logger"
	"github.com/kilianp07/agvkernel/core/model"
	"github.com/kilianp07/agvkernel/core/services"
	"github.com/kilianp07/agvkernel/internal/eventbus"
)

// Assignment is a pairing decided in a dispatch cycle.
type Assignment struct {
	Vehicle       string
	Order         string
	OrderType     string
	InitialCosts  int64
	CompleteCosts int64
}

func assignmentOf(c AssignmentCandidate) Assignment {
	return Assignment{
		Vehicle:       c.vehicle.Name,
		Order:         c.order.Name,
		OrderType:     c.order.Type,
		InitialCosts:  c.initialRoutingCosts,
		CompleteCosts: c.completeRoutingCosts,
	}
}

// CycleResult reports what a dispatch cycle did.
type CycleResult struct {
	// Assignments were committed to their vehicles.
	Assignments []Assignment
	// Reserved orders wait for their vehicle to give up a dispensable order.
	Reserved []Assignment
	// Parked lists the vehicles sent to a parking position.
	Parked []string
	// Requeued counts vehicles or orders whose candidates all lost a conflict.
	Requeued int
}

// Deps holds the collaborators of a Dispatcher. Orders, Vehicles, Router and
// Controllers are mandatory.
type Deps struct {
	Orders       services.TransportOrderService
	Vehicles     services.VehicleService
	Router       services.Router
	Controllers  services.VehicleControllerPool
	Clock        services.TimeProvider
	Config       ConfigSource
	Reservations *OrderReservationPool
	Bus          eventbus.EventBus
	Logger       logger.Logger
	// Workers bounds concurrent route computations. Defaults to 8.
	Workers int
}

// Dispatcher assigns transport orders to vehicles. Its methods mutate kernel
// state and must only be called from the kernel's serialized context.
type Dispatcher struct {
	orders       services.TransportOrderService
	vehicles     services.VehicleService
	router       services.Router
	controllers  services.VehicleControllerPool
	clock        services.TimeProvider
	config       ConfigSource
	reservations *OrderReservationPool
	bus          eventbus.EventBus
	log          logger.Logger
	workers      int

	available    *IsAvailableForAnyOrder
	parkable     *IsParkable
	orderFilters OrderFilters
}

// NewDispatcher creates a dispatcher with the default order filters.
func NewDispatcher(deps Deps) (*Dispatcher, error) {
	if deps.Orders == nil || deps.Vehicles == nil || deps.Router == nil || deps.Controllers == nil {
		return nil, fmt.Errorf("dispatch: nil parameter provided to NewDispatcher")
	}
	if deps.Clock == nil {
		deps.Clock = services.SystemClock{}
	}
	if deps.Config == nil {
		deps.Config = StaticConfig(DefaultConfig())
	}
	if deps.Reservations == nil {
		deps.Reservations = NewOrderReservationPool()
	}
	if deps.Logger == nil {
		deps.Logger = logger.Nop{}
	}
	if deps.Workers <= 0 {
		deps.Workers = 8
	}
	d := &Dispatcher{
		orders:       deps.Orders,
		vehicles:     deps.Vehicles,
		router:       deps.Router,
		controllers:  deps.Controllers,
		clock:        deps.Clock,
		config:       deps.Config,
		reservations: deps.Reservations,
		bus:          deps.Bus,
		log:          deps.Logger,
		workers:      deps.Workers,
	}
	d.available = NewIsAvailableForAnyOrder(d.orders, d.reservations, d.config)
	d.parkable = NewIsParkable(d.orders, d.config, d.clock)
	d.orderFilters = OrderFilters{
		NewIsFreelyDispatchable(d.orders, d.reservations),
		NewContainsLockedTargetLocations(d.orders),
		NewHasUnfinishedPeripheralJobs(d.orders),
	}
	return d, nil
}

// AddOrderFilter registers an additional order filter.
func (d *Dispatcher) AddOrderFilter(f OrderFilter) {
	d.orderFilters = append(d.orderFilters, f)
}

// Reservations exposes the reservation pool.
func (d *Dispatcher) Reservations() *OrderReservationPool { return d.reservations }

// IsAvailable reports whether the vehicle may receive a new order.
func (d *Dispatcher) IsAvailable(v model.Vehicle) (bool, error) { return d.available.Test(v) }

// ParkReasons explains why the vehicle may not be parked.
func (d *Dispatcher) ParkReasons(v model.Vehicle) []string { return d.parkable.Reasons(v) }

// OrderReasons explains why the order may not be dispatched.
func (d *Dispatcher) OrderReasons(o model.TransportOrder) []string { return d.orderFilters.Reasons(o) }

// Dispatch runs one dispatch cycle: activate new orders, commit reserved and
// sequence orders, assign free orders and park idle vehicles.
func (d *Dispatcher) Dispatch(ctx context.Context) (CycleResult, error) {
	start := time.Now()
	cfg := d.config.Config()
	var res CycleResult

	if err := d.activateOrders(); err != nil {
		return res, err
	}
	if err := d.assignReservedOrders(&res); err != nil {
		return res, err
	}
	if err := d.assignSequenceSuccessors(&res); err != nil {
		return res, err
	}
	if err := d.assignFreeOrders(ctx, cfg, &res); err != nil {
		return res, err
	}
	if cfg.ParkIdleVehicles {
		if err := d.parkIdleVehicles(&res); err != nil {
			return res, err
		}
	}

	dur := time.Since(start)
	cyclesTotal.Inc()
	cycleDuration.Observe(dur.Seconds())
	requeuedTotal.Add(float64(res.Requeued))
	d.log.Infof("dispatch cycle: %d assigned, %d reserved, %d parked, %d requeued",
		len(res.Assignments), len(res.Reserved), len(res.Parked), res.Requeued)
	d.publish(events.CycleCompleted{
		Assignments: len(res.Assignments),
		Reserved:    len(res.Reserved),
		Parked:      len(res.Parked),
		Requeued:    res.Requeued,
		Duration:    dur,
		Time:        d.clock.Now(),
	})
	return res, nil
}

// assign commits a candidate: reserve, update order and vehicle, hand the
// order to the vehicle's controller and release the reservation. If a write
// fails, the writes done so far are undone.
func (d *Dispatcher) assign(c AssignmentCandidate) error {
	vehicle, order := c.vehicle.Name, c.order.Name
	prevOrder, err := d.orders.TransportOrder(order)
	if err != nil {
		return fmt.Errorf("assign %s to %s: %w", order, vehicle, err)
	}
	prevVehicle, err := d.orders.Vehicle(vehicle)
	if err != nil {
		return fmt.Errorf("assign %s to %s: %w", order, vehicle, err)
	}
	seq := c.order.WrappingSequence
	var prevSeq model.OrderSequence
	if seq != "" {
		if prevSeq, err = d.orders.OrderSequence(seq); err != nil {
			return fmt.Errorf("assign %s to %s: %w", order, vehicle, err)
		}
	}

	d.reservations.AddReservation(order, vehicle)
	defer d.reservations.RemoveReservation(order)

	driveOrders := c.DriveOrders()
	driveOrders[0].State = model.DriveOrderTravelling
	type write struct{ do, undo func() error }
	writes := []write{
		{
			func() error { return d.orders.UpdateDriveOrders(order, driveOrders) },
			func() error { return d.orders.UpdateDriveOrders(order, prevOrder.DriveOrders) },
		},
		{
			func() error { return d.orders.SetTransportOrderProcessingVehicle(order, vehicle) },
			func() error { return d.orders.SetTransportOrderProcessingVehicle(order, prevOrder.ProcessingVehicle) },
		},
		{
			func() error { return d.orders.UpdateCurrentDriveOrderIndex(order, 0) },
			func() error { return d.orders.UpdateCurrentDriveOrderIndex(order, prevOrder.CurrentDriveOrderIndex) },
		},
		{
			func() error { return d.orders.SetTransportOrderState(order, model.OrderStateBeingProcessed) },
			func() error { return d.orders.SetTransportOrderState(order, prevOrder.State) },
		},
	}
	if seq != "" {
		writes = append(writes,
			write{
				func() error { return d.orders.SetOrderSequenceProcessingVehicle(seq, vehicle) },
				func() error { return d.orders.SetOrderSequenceProcessingVehicle(seq, prevSeq.ProcessingVehicle) },
			},
			write{
				func() error { return d.vehicles.SetVehicleOrderSequence(vehicle, seq) },
				func() error { return d.vehicles.SetVehicleOrderSequence(vehicle, prevVehicle.OrderSequence) },
			},
		)
	}
	writes = append(writes,
		write{
			func() error { return d.vehicles.SetVehicleTransportOrder(vehicle, order) },
			func() error { return d.vehicles.SetVehicleTransportOrder(vehicle, prevVehicle.TransportOrder) },
		},
		write{
			func() error { return d.vehicles.SetVehicleProcState(vehicle, model.ProcStateProcessingOrder) },
			func() error { return d.vehicles.SetVehicleProcState(vehicle, prevVehicle.ProcState) },
		},
	)
	for i, w := range writes {
		if err := w.do(); err != nil {
			for j := i - 1; j >= 0; j-- {
				if uerr := writes[j].undo(); uerr != nil {
					d.log.Errorf("undo assignment of %s to %s: %v", order, vehicle, uerr)
				}
			}
			return fmt.Errorf("assign %s to %s: %w", order, vehicle, err)
		}
	}
	if prevOrder.State != model.OrderStateBeingProcessed {
		d.publish(events.OrderStateChanged{Order: order, From: prevOrder.State, To: model.OrderStateBeingProcessed, Time: d.clock.Now()})
	}

	committed, err := d.orders.TransportOrder(order)
	if err != nil {
		return fmt.Errorf("assign %s to %s: %w", order, vehicle, err)
	}
	if err := d.controllers.VehicleController(vehicle).SetTransportOrder(committed); err != nil {
		d.log.Errorf("vehicle %s rejected transport order %s: %v", vehicle, order, err)
	}

	assignmentsTotal.WithLabelValues(c.order.Type).Inc()
	d.log.Debugw("assigned transport order", map[string]any{
		"vehicle":        vehicle,
		"order":          order,
		"initial_costs":  c.initialRoutingCosts,
		"complete_costs": c.completeRoutingCosts,
	})
	d.publish(events.VehicleAssigned{
		Vehicle:       vehicle,
		Order:         order,
		OrderType:     c.order.Type,
		InitialCosts:  c.initialRoutingCosts,
		CompleteCosts: c.completeRoutingCosts,
		Time:          d.clock.Now(),
	})
	return nil
}

func (d *Dispatcher) setOrderState(order string, from, to model.OrderState) error {
	if err := d.orders.SetTransportOrderState(order, to); err != nil {
		return err
	}
	if from != to {
		d.publish(events.OrderStateChanged{Order: order, From: from, To: to, Time: d.clock.Now()})
	}
	return nil
}

func (d *Dispatcher) freeVehicle(vehicle string) error {
	if err := d.vehicles.SetVehicleTransportOrder(vehicle, ""); err != nil {
		return err
	}
	return d.vehicles.SetVehicleProcState(vehicle, model.ProcStateIdle)
}

func (d *Dispatcher) publish(e eventbus.Event) {
	if d.bus != nil {
		d.bus.Publish(e)
	}
}
