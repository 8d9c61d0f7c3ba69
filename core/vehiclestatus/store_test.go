package vehiclestatus

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/agvkernel/core/events"
	"github.com/kilianp07/agvkernel/core/model"
	"github.com/kilianp07/agvkernel/internal/eventbus"
)

func TestMemoryStore_Filter(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, s.Set(ctx, Status{VehicleID: "v2", State: "IDLE", ProcState: "IDLE"}))
	require.NoError(t, s.Set(ctx, Status{VehicleID: "v1", State: "EXECUTING", ProcState: "PROCESSING_ORDER"}))
	require.NoError(t, s.Set(ctx, Status{VehicleID: "v3", State: "IDLE", ProcState: "AWAITING_ORDER"}))

	out, err := s.List(ctx, Filter{State: "IDLE"})
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, "v2", out[0].VehicleID)
	assert.Equal(t, "v3", out[1].VehicleID)

	out, err = s.List(ctx, Filter{State: "IDLE", ProcState: "IDLE"})
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "v2", out[0].VehicleID)
}

func TestMemoryStore_SetKeepsDecision(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	dec := LastDecision{Kind: "assignment", Order: "T1"}
	require.NoError(t, s.RecordDecision(ctx, "v1", dec))
	require.NoError(t, s.Set(ctx, Status{VehicleID: "v1", EnergyLevel: 40}))

	st, ok, err := s.Get(ctx, "v1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 40, st.EnergyLevel)
	assert.Equal(t, dec, st.LastDecision)

	_, ok, err = s.Get(ctx, "v9")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestApply(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	now := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
	v := model.Vehicle{
		Name:             "V1",
		State:            model.VehicleStateExecuting,
		ProcState:        model.ProcStateProcessingOrder,
		IntegrationLevel: model.IntegrationToBeUtilized,
		CurrentPosition:  "B",
		EnergyLevel:      64,
		TransportOrder:   "T1",
	}
	require.NoError(t, Apply(ctx, s, events.VehicleUpdated{Vehicle: v, Time: now}))
	require.NoError(t, Apply(ctx, s, events.VehicleAssigned{Vehicle: "V1", Order: "T1", InitialCosts: 10, CompleteCosts: 30, Time: now}))
	require.NoError(t, Apply(ctx, s, events.PathLockChanged{Path: "A--B"}))

	st, ok, err := s.Get(ctx, "V1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "EXECUTING", st.State)
	assert.Equal(t, "PROCESSING_ORDER", st.ProcState)
	assert.Equal(t, "TO_BE_UTILIZED", st.IntegrationLevel)
	assert.Equal(t, "B", st.Position)
	assert.Equal(t, now, st.UpdatedAt)
	assert.Equal(t, "assignment", st.LastDecision.Kind)
	assert.Equal(t, "initial costs 10, complete costs 30", st.LastDecision.Detail)

	require.NoError(t, Apply(ctx, s, events.VehicleRerouted{Vehicle: "V1", Order: "T1", Type: model.ReroutingRegular, Restricted: 2}))
	st, _, _ = s.Get(ctx, "V1")
	assert.Equal(t, "reroute_REGULAR", st.LastDecision.Kind)
	assert.Equal(t, "route patched, 2 restricted steps", st.LastDecision.Detail)
}

func TestStartTracker(t *testing.T) {
	s := NewMemoryStore()
	bus := eventbus.New(nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := StartTracker(ctx, bus, s, nil)

	bus.Publish(events.VehicleUpdated{Vehicle: model.Vehicle{Name: "V1", EnergyLevel: 80}})
	require.Eventually(t, func() bool {
		st, ok, _ := s.Get(context.Background(), "V1")
		return ok && st.EnergyLevel == 80
	}, time.Second, 5*time.Millisecond)

	cancel()
	<-done
}
