// Package kernel funnels every state-changing operation of the fleet through a
// single executor goroutine. Reads of the object pool may happen anywhere;
// writes happen here.
package kernel

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/kilianp07/agvkernel/core/dispatch"
	"github.com/kilianp07/agvkernel/core/dispatch/rerouting"
	"github.com/kilianp07/agvkernel/core/events"
	"github.com/kilianp07/agvkernel/core/logger"
	"github.com/kilianp07/agvkernel/core/model"
	coremqtt "github.com/kilianp07/agvkernel/core/mqtt"
	"github.com/kilianp07/agvkernel/core/services"
	"github.com/kilianp07/agvkernel/internal/eventbus"
	"github.com/kilianp07/agvkernel/internal/executor"
)

// Objects is the object pool the kernel owns.
type Objects interface {
	services.TransportOrderService
	services.VehicleService
	services.PlantModelService
}

// Deps holds the collaborators of a Kernel. Objects, Router and Controllers
// are mandatory.
type Deps struct {
	Objects     Objects
	Router      services.Router
	Controllers services.VehicleControllerPool
	Clock       services.TimeProvider
	Config      dispatch.ConfigSource
	Bus         eventbus.EventBus
	Logger      logger.Logger
	// QueueSize bounds pending kernel tasks.
	QueueSize int
	// Workers bounds concurrent route computations during dispatch.
	Workers int
	// DispatchOnEvents schedules a dispatch cycle after every successful
	// mutation.
	DispatchOnEvents bool
}

// Kernel serializes dispatching, rerouting and object mutations.
type Kernel struct {
	objects     Objects
	router      services.Router
	controllers services.VehicleControllerPool
	clock       services.TimeProvider
	config      dispatch.ConfigSource
	bus         eventbus.EventBus
	log         logger.Logger

	exec       *executor.Executor
	dispatcher *dispatch.Dispatcher
	rerouter   *rerouting.Util

	dispatchOnEvents bool
	dispatchPending  atomic.Bool
}

// New wires the dispatcher and the rerouting util and starts the executor.
func New(deps Deps) (*Kernel, error) {
	if deps.Objects == nil || deps.Router == nil || deps.Controllers == nil {
		return nil, fmt.Errorf("kernel: nil parameter provided to New")
	}
	if deps.Clock == nil {
		deps.Clock = services.SystemClock{}
	}
	if deps.Config == nil {
		deps.Config = dispatch.NewConfigHolder(dispatch.DefaultConfig())
	}
	if deps.Logger == nil {
		deps.Logger = logger.Nop{}
	}
	d, err := dispatch.NewDispatcher(dispatch.Deps{
		Orders:      deps.Objects,
		Vehicles:    deps.Objects,
		Router:      deps.Router,
		Controllers: deps.Controllers,
		Clock:       deps.Clock,
		Config:      deps.Config,
		Bus:         deps.Bus,
		Logger:      deps.Logger,
		Workers:     deps.Workers,
	})
	if err != nil {
		return nil, err
	}
	positions := rerouting.NewVehiclePositionResolver(deps.Objects)
	r, err := rerouting.NewUtil(rerouting.Deps{
		Orders:      deps.Objects,
		Controllers: deps.Controllers,
		Config:      deps.Config,
		Strategies:  rerouting.DefaultStrategies(deps.Router, deps.Objects, positions),
		Positions:   positions,
		Clock:       deps.Clock,
		Bus:         deps.Bus,
		Logger:      deps.Logger,
	})
	if err != nil {
		return nil, err
	}
	return &Kernel{
		objects:          deps.Objects,
		router:           deps.Router,
		controllers:      deps.Controllers,
		clock:            deps.Clock,
		config:           deps.Config,
		bus:              deps.Bus,
		log:              deps.Logger,
		exec:             executor.New(deps.QueueSize, deps.Logger),
		dispatcher:       d,
		rerouter:         r,
		dispatchOnEvents: deps.DispatchOnEvents,
	}, nil
}

// Close stops the executor. Pending tasks are discarded.
func (k *Kernel) Close() { k.exec.Stop() }

// Objects gives read access to the kernel's objects.
func (k *Kernel) Objects() services.ObjectService { return k.objects }

// Dispatcher exposes the dispatcher for registering additional filters. Its
// methods must not be called outside the kernel.
func (k *Kernel) Dispatcher() *dispatch.Dispatcher { return k.dispatcher }

// call runs fn in the serialized context and schedules a dispatch cycle on
// success when dispatching on events is enabled.
func (k *Kernel) call(ctx context.Context, fn func() error) error {
	if err := k.exec.Call(ctx, fn); err != nil {
		return err
	}
	if k.dispatchOnEvents {
		k.requestDispatch()
	}
	return nil
}

// requestDispatch enqueues one dispatch cycle unless one is already pending.
// It must not be called from inside the executor.
func (k *Kernel) requestDispatch() {
	if !k.dispatchPending.CompareAndSwap(false, true) {
		return
	}
	err := k.exec.Submit(func() error {
		k.dispatchPending.Store(false)
		_, err := k.dispatcher.Dispatch(context.Background())
		return err
	})
	if err != nil {
		k.dispatchPending.Store(false)
	}
}

// Dispatch runs one dispatch cycle.
func (k *Kernel) Dispatch(ctx context.Context) (dispatch.CycleResult, error) {
	return executor.CallResult(ctx, k.exec, func() (dispatch.CycleResult, error) {
		return k.dispatcher.Dispatch(ctx)
	})
}

// CreateTransportOrder stores a new order in state RAW. It becomes eligible
// for dispatching with the next cycle.
func (k *Kernel) CreateTransportOrder(ctx context.Context, order model.TransportOrder) (model.TransportOrder, error) {
	created, err := executor.CallResult(ctx, k.exec, func() (model.TransportOrder, error) {
		created, err := k.objects.CreateTransportOrder(order)
		if err != nil {
			return model.TransportOrder{}, err
		}
		k.log.Infof("created transport order %s", created.Name)
		return created, nil
	})
	if err != nil {
		return model.TransportOrder{}, err
	}
	if k.dispatchOnEvents {
		k.requestDispatch()
	}
	return created, nil
}

// WithdrawTransportOrder withdraws the order and frees its vehicle.
func (k *Kernel) WithdrawTransportOrder(ctx context.Context, order string) error {
	return k.call(ctx, func() error { return k.dispatcher.WithdrawOrder(order) })
}

// UpdateVehicle applies the controller-owned fields of v: state, position,
// next position, energy level and paused flag. Fields owned by the kernel are
// kept.
func (k *Kernel) UpdateVehicle(ctx context.Context, v model.Vehicle) error {
	return k.call(ctx, func() error {
		cur, err := k.objects.Vehicle(v.Name)
		if err != nil {
			return err
		}
		cur.State = v.State
		cur.CurrentPosition = v.CurrentPosition
		cur.NextPosition = v.NextPosition
		cur.EnergyLevel = v.EnergyLevel
		cur.Paused = v.Paused
		return k.storeVehicle(cur)
	})
}

// ApplyReport merges a vehicle report and handles the drive order event it
// carries.
func (k *Kernel) ApplyReport(ctx context.Context, r coremqtt.VehicleReport) error {
	return k.call(ctx, func() error {
		cur, err := k.objects.Vehicle(r.Vehicle)
		if err != nil {
			return err
		}
		updated, err := r.Apply(cur)
		if err != nil {
			return err
		}
		if err := k.storeVehicle(updated); err != nil {
			return err
		}
		switch r.Event {
		case "":
			return nil
		case coremqtt.EventDriveOrderFinished:
			return k.dispatcher.FinishDriveOrder(r.Vehicle)
		case coremqtt.EventDriveOrderFailed:
			return k.dispatcher.FailOrder(r.Vehicle)
		default:
			return fmt.Errorf("vehicle %s: report event %q: %w", r.Vehicle, r.Event, model.ErrInvalidArgument)
		}
	})
}

func (k *Kernel) storeVehicle(v model.Vehicle) error {
	if v.EnergyLevel < 0 || v.EnergyLevel > 100 {
		return fmt.Errorf("vehicle %s: energy level %d: %w", v.Name, v.EnergyLevel, model.ErrInvalidArgument)
	}
	if err := k.objects.UpdateVehicle(v); err != nil {
		return err
	}
	k.publish(events.VehicleUpdated{Vehicle: v, Time: k.clock.Now()})
	return nil
}

// SetIntegrationLevel changes how the vehicle is integrated into the fleet.
func (k *Kernel) SetIntegrationLevel(ctx context.Context, vehicle string, level model.IntegrationLevel) error {
	return k.call(ctx, func() error {
		if err := k.objects.SetVehicleIntegrationLevel(vehicle, level); err != nil {
			return err
		}
		v, err := k.objects.Vehicle(vehicle)
		if err != nil {
			return err
		}
		k.publish(events.VehicleUpdated{Vehicle: v, Time: k.clock.Now()})
		return nil
	})
}

// SetPathLocked locks or unlocks a path and refreshes the routing topology.
// Vehicles processing orders are rerouted when configured.
func (k *Kernel) SetPathLocked(ctx context.Context, path string, locked bool) error {
	return k.call(ctx, func() error {
		p, err := k.objects.Path(path)
		if err != nil {
			return err
		}
		if p.Locked == locked {
			return nil
		}
		if err := k.objects.SetPathLocked(path, locked); err != nil {
			return err
		}
		k.router.UpdateRoutingTopology()
		k.publish(events.PathLockChanged{Path: path, Locked: locked, Time: k.clock.Now()})
		if !k.config.Config().RerouteOnTopologyChanges {
			return nil
		}
		return k.rerouter.RerouteAll(k.processingVehicles(), model.ReroutingRegular)
	})
}

// SetLocationLocked locks or unlocks a location. Orders targeting locked
// locations are not dispatched.
func (k *Kernel) SetLocationLocked(ctx context.Context, location string, locked bool) error {
	return k.call(ctx, func() error { return k.objects.SetLocationLocked(location, locked) })
}

// RerouteVehicle recomputes the remaining route of the vehicle.
func (k *Kernel) RerouteVehicle(ctx context.Context, vehicle string, t model.ReroutingType) error {
	return k.call(ctx, func() error {
		v, err := k.objects.Vehicle(vehicle)
		if err != nil {
			return err
		}
		return k.rerouter.Reroute(v, t)
	})
}

// RerouteAll reroutes every vehicle currently processing an order.
func (k *Kernel) RerouteAll(ctx context.Context, t model.ReroutingType) error {
	return k.call(ctx, func() error { return k.rerouter.RerouteAll(k.processingVehicles(), t) })
}

// DriveOrderFinished advances the vehicle's order to its next drive order or
// finishes it.
func (k *Kernel) DriveOrderFinished(ctx context.Context, vehicle string) error {
	return k.call(ctx, func() error { return k.dispatcher.FinishDriveOrder(vehicle) })
}

// DriveOrderFailed fails the vehicle's order.
func (k *Kernel) DriveOrderFailed(ctx context.Context, vehicle string) error {
	return k.call(ctx, func() error { return k.dispatcher.FailOrder(vehicle) })
}

func (k *Kernel) processingVehicles() []model.Vehicle {
	var out []model.Vehicle
	for _, v := range k.objects.Vehicles() {
		if v.IsProcessingOrder() {
			out = append(out, v)
		}
	}
	return out
}

func (k *Kernel) publish(e eventbus.Event) {
	if k.bus != nil {
		k.bus.Publish(e)
	}
}

// IsStopped reports whether err signals a closed kernel.
func IsStopped(err error) bool { return errors.Is(err, executor.ErrStopped) }
