package objectpool

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/agvkernel/core/model"
	"github.com/kilianp07/agvkernel/core/services"
)

func TestUnknownObjects(t *testing.T) {
	p := New(nil)
	_, err := p.Vehicle("V1")
	require.ErrorIs(t, err, model.ErrObjectUnknown)
	var unknown *model.ObjectUnknownError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, "vehicle", unknown.Kind)

	_, err = p.TransportOrder("T1")
	assert.ErrorIs(t, err, model.ErrObjectUnknown)
	assert.ErrorIs(t, p.SetPathLocked("A--B", true), model.ErrObjectUnknown)
	assert.ErrorIs(t, p.SetVehicleProcState("V1", model.ProcStateIdle), model.ErrObjectUnknown)
}

func TestCreateTransportOrder(t *testing.T) {
	clock := &services.FixedClock{T: time.Unix(1000, 0)}
	p := New(clock)
	created, err := p.CreateTransportOrder(model.TransportOrder{
		DriveOrders: []model.DriveOrder{{Destination: model.Destination{Name: "P1"}}},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, created.Name)
	assert.Equal(t, model.OrderStateRaw, created.State)
	assert.Equal(t, -1, created.CurrentDriveOrderIndex)
	assert.Equal(t, model.OrderTypeNone, created.Type)
	assert.Equal(t, clock.T, created.CreationTime)
	assert.Equal(t, created.Name, created.DriveOrders[0].TransportOrder)

	_, err = p.CreateTransportOrder(model.TransportOrder{Name: created.Name, DriveOrders: created.DriveOrders})
	assert.ErrorIs(t, err, model.ErrObjectExists)

	_, err = p.CreateTransportOrder(model.TransportOrder{Name: "empty"})
	assert.ErrorIs(t, err, model.ErrInvalidArgument)
}

func TestCreateTransportOrderAppendsToSequence(t *testing.T) {
	p := New(nil)
	p.AddOrderSequence(model.OrderSequence{Name: "S1", FinishedIndex: -1})
	_, err := p.CreateTransportOrder(model.TransportOrder{
		Name:             "T1",
		WrappingSequence: "S1",
		DriveOrders:      []model.DriveOrder{{Destination: model.Destination{Name: "P1"}}},
	})
	require.NoError(t, err)
	seq, err := p.OrderSequence("S1")
	require.NoError(t, err)
	assert.Equal(t, []string{"T1"}, seq.Orders)
}

func TestCreateTransportOrderRejectsCompleteSequence(t *testing.T) {
	p := New(nil)
	p.AddOrderSequence(model.OrderSequence{Name: "S1", FinishedIndex: -1})
	order := func(name string) model.TransportOrder {
		return model.TransportOrder{
			Name:             name,
			WrappingSequence: "S1",
			DriveOrders:      []model.DriveOrder{{Destination: model.Destination{Name: "P1"}}},
		}
	}
	_, err := p.CreateTransportOrder(order("T1"))
	require.NoError(t, err)
	require.NoError(t, p.MarkOrderSequenceComplete("S1"))

	_, err = p.CreateTransportOrder(order("T2"))
	assert.ErrorIs(t, err, model.ErrInvalidArgument)
	_, err = p.TransportOrder("T2")
	assert.ErrorIs(t, err, model.ErrObjectUnknown)

	seq, err := p.OrderSequence("S1")
	require.NoError(t, err)
	assert.True(t, seq.Complete)
	assert.Equal(t, []string{"T1"}, seq.Orders)

	assert.ErrorIs(t, p.MarkOrderSequenceComplete("nope"), model.ErrObjectUnknown)
}

func TestReturnedValuesAreCopies(t *testing.T) {
	p := New(nil)
	_, err := p.CreateTransportOrder(model.TransportOrder{
		Name:        "T1",
		DriveOrders: []model.DriveOrder{{Destination: model.Destination{Name: "P1"}}},
	})
	require.NoError(t, err)
	o, _ := p.TransportOrder("T1")
	o.DriveOrders[0].Destination.Name = "changed"
	again, _ := p.TransportOrder("T1")
	assert.Equal(t, "P1", again.DriveOrders[0].Destination.Name)
}

func TestVehicleUpdates(t *testing.T) {
	clock := &services.FixedClock{T: time.Unix(50, 0)}
	p := New(clock)
	p.AddVehicle(model.Vehicle{Name: "V1"})
	require.NoError(t, p.SetVehicleProcState("V1", model.ProcStateProcessingOrder))
	require.NoError(t, p.SetVehicleTransportOrder("V1", "T1"))
	v, err := p.Vehicle("V1")
	require.NoError(t, err)
	assert.Equal(t, model.ProcStateProcessingOrder, v.ProcState)
	assert.Equal(t, clock.T, v.ProcStateTimestamp)
	assert.Equal(t, "T1", v.TransportOrder)

	v.EnergyLevel = 42
	require.NoError(t, p.UpdateVehicle(v))
	v, _ = p.Vehicle("V1")
	assert.Equal(t, 42, v.EnergyLevel)
}

func TestPeripheralJobsFilter(t *testing.T) {
	p := New(nil)
	p.AddPeripheralJob(model.PeripheralJob{Name: "J1", RelatedTransportOrder: "T1"})
	p.AddPeripheralJob(model.PeripheralJob{Name: "J2", RelatedTransportOrder: "T2"})
	jobs := p.PeripheralJobs(func(j model.PeripheralJob) bool { return j.RelatedTransportOrder == "T1" })
	require.Len(t, jobs, 1)
	assert.Equal(t, "J1", jobs[0].Name)
	require.NoError(t, p.SetPeripheralJobState("J1", model.PeripheralJobFinished))
	assert.Len(t, p.PeripheralJobs(nil), 2)
}
