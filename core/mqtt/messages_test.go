package mqtt

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/agvkernel/core/model"
)

func TestSetOrderMessage_OnlyUnfinishedDriveOrders(t *testing.T) {
	route := model.NewRoute([]model.Step{
		model.NewStep(&model.Path{Name: "B--C"}, "B", "C", model.OrientationForward, 0, 10),
		model.NewStep(&model.Path{Name: "C--D"}, "C", "D", model.OrientationForward, 1, 10),
	})
	route.Steps[1].ExecutionAllowed = false
	order := model.TransportOrder{
		Name: "T1",
		Type: "Transport",
		DriveOrders: []model.DriveOrder{
			{Name: "d0", Destination: model.Destination{Name: "B"}},
			{Name: "d1", Destination: model.Destination{Name: "Station", Operation: "Load"}, Route: route},
		},
		CurrentDriveOrderIndex: 1,
	}
	now := time.Unix(100, 0)
	msg := SetOrderMessage("V1", order, now)

	assert.Equal(t, ActionSet, msg.Action)
	assert.Equal(t, "V1", msg.Vehicle)
	assert.Equal(t, now.UnixMilli(), msg.Timestamp)
	require.Len(t, msg.DriveOrders, 1)
	d := msg.DriveOrders[0]
	assert.Equal(t, "Station", d.Destination)
	assert.Equal(t, "Load", d.Operation)
	require.Len(t, d.Steps, 2)
	assert.Equal(t, "C--D", d.Steps[1].Path)
	assert.False(t, d.Steps[1].ExecutionAllowed)
}

func TestAbortOrderMessage(t *testing.T) {
	msg := AbortOrderMessage("V1", time.Unix(1, 0))
	assert.Equal(t, ActionAbort, msg.Action)
	assert.Empty(t, msg.Order)
}

func TestVehicleReport_Apply(t *testing.T) {
	energy := 42
	paused := true
	v := model.Vehicle{Name: "V1", CurrentPosition: "A", NextPosition: "B", EnergyLevel: 90}

	got, err := VehicleReport{Vehicle: "V1", State: "EXECUTING", Position: "B", EnergyLevel: &energy, Paused: &paused}.Apply(v)
	require.NoError(t, err)
	assert.Equal(t, model.VehicleStateExecuting, got.State)
	assert.Equal(t, "B", got.CurrentPosition)
	assert.Empty(t, got.NextPosition)
	assert.Equal(t, 42, got.EnergyLevel)
	assert.True(t, got.Paused)

	got, err = VehicleReport{Vehicle: "V1", NextPosition: "C"}.Apply(got)
	require.NoError(t, err)
	assert.Equal(t, "B", got.CurrentPosition)
	assert.Equal(t, "C", got.NextPosition)
}

func TestVehicleReport_ApplyRejectsInvalid(t *testing.T) {
	_, err := VehicleReport{Vehicle: "V1", State: "FLYING"}.Apply(model.Vehicle{})
	assert.True(t, errors.Is(err, model.ErrInvalidArgument))

	bad := 101
	_, err = VehicleReport{Vehicle: "V1", EnergyLevel: &bad}.Apply(model.Vehicle{})
	assert.True(t, errors.Is(err, model.ErrInvalidArgument))
}
