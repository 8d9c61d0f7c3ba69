// Package rerouting recomputes the remaining route of vehicles that are
// already processing a transport order.
package rerouting

import (
	"errors"
	"fmt"

	"github.com/kilianp07/agvkernel/core/dispatch"
	"github.com/kilianp07/agvkernel/core/events"
	"github.com/kilianp07/agvkernel/core/logger"
	"github.com/kilianp07/agvkernel/core/model"
	"github.com/kilianp07/agvkernel/core/services"
	"github.com/kilianp07/agvkernel/internal/eventbus"
)

// Deps holds the collaborators of a Util. Orders, Controllers and Config are
// mandatory.
type Deps struct {
	Orders      services.TransportOrderService
	Controllers services.VehicleControllerPool
	Config      dispatch.ConfigSource
	Strategies  map[model.ReroutingType]Strategy
	Positions   PositionResolver
	Clock       services.TimeProvider
	Bus         eventbus.EventBus
	Logger      logger.Logger
}

// DefaultStrategies registers the regular and forced strategies.
func DefaultStrategies(router services.Router, objects services.ObjectService, positions PositionResolver) map[model.ReroutingType]Strategy {
	return map[model.ReroutingType]Strategy{
		model.ReroutingRegular: NewRegularStrategy(router, objects, positions),
		model.ReroutingForced:  NewForcedStrategy(router, objects),
	}
}

// Util reroutes vehicles. Like the dispatcher it must only be used from the
// kernel's serialized context.
type Util struct {
	orders      services.TransportOrderService
	controllers services.VehicleControllerPool
	config      dispatch.ConfigSource
	strategies  map[model.ReroutingType]Strategy
	positions   PositionResolver
	clock       services.TimeProvider
	bus         eventbus.EventBus
	log         logger.Logger
}

// NewUtil creates a Util. A nil strategy table means every reroute falls back
// to patching the existing route.
func NewUtil(deps Deps) (*Util, error) {
	if deps.Orders == nil || deps.Controllers == nil || deps.Config == nil {
		return nil, fmt.Errorf("rerouting: nil parameter provided to NewUtil")
	}
	if deps.Positions == nil {
		deps.Positions = NewVehiclePositionResolver(deps.Orders)
	}
	if deps.Clock == nil {
		deps.Clock = services.SystemClock{}
	}
	if deps.Logger == nil {
		deps.Logger = logger.Nop{}
	}
	return &Util{
		orders:      deps.Orders,
		controllers: deps.Controllers,
		config:      deps.Config,
		strategies:  deps.Strategies,
		positions:   deps.Positions,
		clock:       deps.Clock,
		bus:         deps.Bus,
		log:         deps.Logger,
	}, nil
}

// RerouteAll reroutes each vehicle in turn. A failure for one vehicle does not
// stop the others; all errors are returned joined.
func (u *Util) RerouteAll(vehicles []model.Vehicle, t model.ReroutingType) error {
	var errs []error
	for _, v := range vehicles {
		if err := u.Reroute(v, t); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Reroute replaces the unfinished drive orders of the vehicle's transport
// order with newly routed ones. When the strategy finds no route the existing
// route is kept and its lock annotations are refreshed instead. Requests that
// cannot be honoured are logged and ignored; only collaborator failures are
// returned.
func (u *Util) Reroute(vehicle model.Vehicle, t model.ReroutingType) error {
	u.log.Debugf("trying to reroute vehicle %s", vehicle.Name)
	if !vehicle.IsProcessingOrder() {
		u.log.Debugf("%s can't be rerouted without processing a transport order", vehicle.Name)
		reroutesTotal.WithLabelValues(t.String(), OutcomeSkipped).Inc()
		return nil
	}
	order, err := u.orders.TransportOrder(vehicle.TransportOrder)
	if err != nil {
		return fmt.Errorf("reroute %s: %w", vehicle.Name, err)
	}
	if order.HasState(model.OrderStateWithdrawn) {
		u.log.Warnf("%s can't be rerouted when its transport order %s was withdrawn", vehicle.Name, order.Name)
		reroutesTotal.WithLabelValues(t.String(), OutcomeSkipped).Inc()
		return nil
	}
	if t == model.ReroutingForced && len(dispatch.UnfinishedRequiredPeripheralJobs(u.orders, order.Name)) > 0 {
		u.log.Warnf("cannot reroute %s while peripheral jobs related to %s are unfinished", vehicle.Name, order.Name)
		reroutesTotal.WithLabelValues(t.String(), OutcomeSkipped).Inc()
		return nil
	}

	var (
		driveOrders []model.DriveOrder
		found       bool
	)
	if s, ok := u.strategies[t]; ok {
		driveOrders, found = s.Reroute(vehicle)
	} else {
		u.log.Warnf("cannot reroute %s for unknown rerouting type %s", vehicle.Name, t)
	}

	if t == model.ReroutingForced && !vehicle.HasState(model.VehicleStateIdle) {
		u.log.Warnf("forcefully rerouting %s although its state is %s", vehicle.Name, vehicle.State)
	}

	outcome := OutcomeStrategy
	if !found {
		outcome = OutcomePatched
		driveOrders, err = u.updatePathLocksAndRestrictions(vehicle, order)
		if err != nil {
			return fmt.Errorf("reroute %s: %w", vehicle.Name, err)
		}
	}

	if err := u.updateTransportOrder(order, driveOrders, vehicle); err != nil {
		return fmt.Errorf("reroute %s: %w", vehicle.Name, err)
	}
	reroutesTotal.WithLabelValues(t.String(), outcome).Inc()
	if u.bus != nil {
		u.bus.Publish(events.VehicleRerouted{
			Vehicle:    vehicle.Name,
			Order:      order.Name,
			Type:       t,
			Strategy:   found,
			Restricted: restrictedSteps(driveOrders),
			Time:       u.clock.Now(),
		})
	}
	return nil
}

func (u *Util) updatePathLocksAndRestrictions(vehicle model.Vehicle, order model.TransportOrder) ([]model.DriveOrder, error) {
	u.log.Debugf("no new route for %s, updating the current one", vehicle.Name)
	unfinished, err := refreshPaths(u.orders, order.UnfinishedDriveOrders())
	if err != nil {
		return nil, err
	}
	strategy := u.config.Config().ReroutingImpossibleStrategy
	source := u.positions.FutureOrCurrentPosition(vehicle)
	if source == "" && strategy == dispatch.PauseImmediately {
		u.log.Warnf("position of %s is unknown, pausing it before its first step", vehicle.Name)
	}
	return markRestrictedSteps(unfinished, strategy, source), nil
}

// updateTransportOrder stores past plus new drive orders and, if the vehicle
// is driving, hands the refreshed order to its controller.
func (u *Util) updateTransportOrder(order model.TransportOrder, driveOrders []model.DriveOrder, vehicle model.Vehicle) error {
	all := append(order.PastDriveOrders(), driveOrders...)
	u.log.Debugw("updating drive orders", map[string]any{"order": order.Name, "drive_orders": len(all)})
	if err := u.orders.UpdateDriveOrders(order.Name, all); err != nil {
		return err
	}
	if !vehicle.HasProcState(model.ProcStateProcessingOrder) {
		return nil
	}
	updated, err := u.orders.TransportOrder(order.Name)
	if err != nil {
		return err
	}
	if err := u.controllers.VehicleController(vehicle.Name).SetTransportOrder(updated); err != nil {
		u.log.Errorf("vehicle %s rejected rerouted order %s: %v", vehicle.Name, order.Name, err)
	}
	return nil
}
