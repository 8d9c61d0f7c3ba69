package dispatch

import (
	"fmt"

	"github.com/kilianp07/agvkernel/core/model"
)

// AssignmentCandidate binds a vehicle to a transport order together with the
// routed drive orders that assigning the order would produce.
type AssignmentCandidate struct {
	vehicle              model.Vehicle
	order                model.TransportOrder
	driveOrders          []model.DriveOrder
	initialRoutingCosts  int64
	completeRoutingCosts int64
}

// NewAssignmentCandidate validates and builds a candidate. Every drive order
// must carry a route.
func NewAssignmentCandidate(vehicle model.Vehicle, order model.TransportOrder, driveOrders []model.DriveOrder) (AssignmentCandidate, error) {
	if len(driveOrders) == 0 {
		return AssignmentCandidate{}, fmt.Errorf("driveOrders is empty: %w", model.ErrInvalidArgument)
	}
	var total int64
	for _, d := range driveOrders {
		if d.Route == nil {
			return AssignmentCandidate{}, fmt.Errorf("a drive order's route is null: %w", model.ErrInvalidArgument)
		}
		total += d.Route.Costs()
	}
	return AssignmentCandidate{
		vehicle:              vehicle,
		order:                order,
		driveOrders:          append([]model.DriveOrder(nil), driveOrders...),
		initialRoutingCosts:  driveOrders[0].Route.Costs(),
		completeRoutingCosts: total,
	}, nil
}

func (c AssignmentCandidate) Vehicle() model.Vehicle { return c.vehicle }

func (c AssignmentCandidate) TransportOrder() model.TransportOrder { return c.order }

// DriveOrders returns a copy of the routed drive orders.
func (c AssignmentCandidate) DriveOrders() []model.DriveOrder {
	return append([]model.DriveOrder(nil), c.driveOrders...)
}

// InitialRoutingCosts returns the costs of the first drive order's route.
func (c AssignmentCandidate) InitialRoutingCosts() int64 { return c.initialRoutingCosts }

// CompleteRoutingCosts returns the sum of the final costs of all routes.
func (c AssignmentCandidate) CompleteRoutingCosts() int64 { return c.completeRoutingCosts }
