package rerouting

import (
	"github.com/kilianp07/agvkernel/core/model"
	"github.com/kilianp07/agvkernel/core/services"
)

// Strategy computes replacement drive orders for the unfinished part of the
// vehicle's transport order. It returns false when no route was found.
type Strategy interface {
	Reroute(vehicle model.Vehicle) ([]model.DriveOrder, bool)
}

// PositionResolver tells where a vehicle will be when a new route can take
// effect.
type PositionResolver interface {
	FutureOrCurrentPosition(vehicle model.Vehicle) string
}

// VehiclePositionResolver resolves the vehicle's next position, or its
// current one when it is not moving. Positions unknown to the plant model
// resolve to "".
type VehiclePositionResolver struct {
	objects services.ObjectService
}

func NewVehiclePositionResolver(objects services.ObjectService) *VehiclePositionResolver {
	return &VehiclePositionResolver{objects: objects}
}

func (r *VehiclePositionResolver) FutureOrCurrentPosition(vehicle model.Vehicle) string {
	pos := vehicle.FutureOrCurrentPosition()
	if pos == "" {
		return ""
	}
	if _, err := r.objects.Point(pos); err != nil {
		return ""
	}
	return pos
}

// RegularStrategy reroutes from the point the vehicle is heading to, keeping
// the steps of the current drive order it is already committed to.
type RegularStrategy struct {
	router    services.Router
	objects   services.ObjectService
	positions PositionResolver
}

func NewRegularStrategy(router services.Router, objects services.ObjectService, positions PositionResolver) *RegularStrategy {
	return &RegularStrategy{router: router, objects: objects, positions: positions}
}

func (s *RegularStrategy) Reroute(vehicle model.Vehicle) ([]model.DriveOrder, bool) {
	order, err := s.objects.TransportOrder(vehicle.TransportOrder)
	if err != nil {
		return nil, false
	}
	source := s.positions.FutureOrCurrentPosition(vehicle)
	if source == "" {
		return nil, false
	}
	return rerouteFrom(s.router, vehicle, source, order.UnfinishedDriveOrders())
}

// ForcedStrategy reroutes from the vehicle's current position. The vehicle is
// expected to stand still.
type ForcedStrategy struct {
	router  services.Router
	objects services.ObjectService
}

func NewForcedStrategy(router services.Router, objects services.ObjectService) *ForcedStrategy {
	return &ForcedStrategy{router: router, objects: objects}
}

func (s *ForcedStrategy) Reroute(vehicle model.Vehicle) ([]model.DriveOrder, bool) {
	if vehicle.CurrentPosition == "" {
		return nil, false
	}
	order, err := s.objects.TransportOrder(vehicle.TransportOrder)
	if err != nil {
		return nil, false
	}
	return rerouteFrom(s.router, vehicle, vehicle.CurrentPosition, order.UnfinishedDriveOrders())
}

// rerouteFrom routes the drive orders one after the other starting at source.
// Each drive order keeps the destination point it was routed to before.
func rerouteFrom(router services.Router, vehicle model.Vehicle, source string, driveOrders []model.DriveOrder) ([]model.DriveOrder, bool) {
	if len(driveOrders) == 0 {
		return nil, false
	}
	from := source
	res := make([]model.DriveOrder, 0, len(driveOrders))
	for i, d := range driveOrders {
		to := targetPoint(d)
		r, ok := router.Route(vehicle, from, to)
		if !ok || len(r.Steps) == 0 {
			return nil, false
		}
		route := model.NewRoute(r.Steps)
		if i == 0 {
			route = mergeRoute(d.Route, source, r)
		}
		res = append(res, d.WithRoute(route))
		from = to
	}
	return res, true
}

func targetPoint(d model.DriveOrder) string {
	if p := d.Route.FinalDestinationPoint(); p != "" {
		return p
	}
	return d.Destination.Name
}

// mergeRoute keeps the steps of old up to the first one arriving at point and
// appends fresh behind them. Route indices and cumulative costs continue from
// the kept part.
func mergeRoute(old *model.Route, point string, fresh model.Route) *model.Route {
	var kept []model.Step
	if old != nil {
		for i, s := range old.Steps {
			if s.Path != nil && s.DestinationPoint == point {
				kept = old.Steps[:i+1]
				break
			}
		}
	}
	steps := append([]model.Step(nil), kept...)
	var offset int64
	if len(kept) > 0 {
		offset = kept[len(kept)-1].Costs
	}
	for _, s := range fresh.Steps {
		if s.Path == nil && len(kept) > 0 {
			continue
		}
		s.RouteIndex = len(steps)
		s.Costs += offset
		steps = append(steps, s)
	}
	return model.NewRoute(steps)
}
