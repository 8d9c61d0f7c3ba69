package dispatch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/agvkernel/core/model"
)

func routeWithCosts(costs int64) *model.Route {
	return model.NewRoute([]model.Step{
		model.NewStep(nil, "Point1", "Point2", model.OrientationForward, 1, costs),
	})
}

func driveOrderWithCosts(name string, costs int64) model.DriveOrder {
	return model.DriveOrder{
		Name:        name,
		Destination: model.Destination{Kind: model.PointDestination, Name: "Point2"},
		Route:       routeWithCosts(costs),
	}
}

func TestAssignmentCandidateRoutingCosts(t *testing.T) {
	c, err := NewAssignmentCandidate(
		model.Vehicle{Name: "V1"},
		model.TransportOrder{Name: "T1"},
		[]model.DriveOrder{driveOrderWithCosts("d1", 1234), driveOrderWithCosts("d2", 5678)},
	)
	require.NoError(t, err)
	assert.Equal(t, int64(6912), c.CompleteRoutingCosts())
	assert.Equal(t, int64(1234), c.InitialRoutingCosts())
	assert.Equal(t, "V1", c.Vehicle().Name)
	assert.Equal(t, "T1", c.TransportOrder().Name)
}

func TestAssignmentCandidateRejectsEmptyDriveOrders(t *testing.T) {
	_, err := NewAssignmentCandidate(model.Vehicle{Name: "V1"}, model.TransportOrder{Name: "T1"}, nil)
	require.ErrorIs(t, err, model.ErrInvalidArgument)
	assert.Contains(t, err.Error(), "driveOrders is empty")
}

func TestAssignmentCandidateRejectsUnroutedDriveOrder(t *testing.T) {
	unrouted := driveOrderWithCosts("d2", 0)
	unrouted.Route = nil
	_, err := NewAssignmentCandidate(
		model.Vehicle{Name: "V1"},
		model.TransportOrder{Name: "T1"},
		[]model.DriveOrder{driveOrderWithCosts("d1", 10), unrouted},
	)
	require.ErrorIs(t, err, model.ErrInvalidArgument)
	assert.Contains(t, err.Error(), "a drive order's route is null")
}

func TestAssignmentCandidateDriveOrdersAreCopied(t *testing.T) {
	in := []model.DriveOrder{driveOrderWithCosts("d1", 10)}
	c, err := NewAssignmentCandidate(model.Vehicle{Name: "V1"}, model.TransportOrder{Name: "T1"}, in)
	require.NoError(t, err)
	in[0].Name = "changed"
	out := c.DriveOrders()
	out[0].Name = "changed too"
	assert.Equal(t, "d1", c.DriveOrders()[0].Name)
}
