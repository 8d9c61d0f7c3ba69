package dispatch

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReservationPool(t *testing.T) {
	p := NewOrderReservationPool()
	p.AddReservation("T1", "V1")
	p.AddReservation("T2", "V1")
	p.AddReservation("T3", "V2")

	assert.True(t, p.IsReserved("T1"))
	assert.Equal(t, []string{"T1", "T2"}, p.FindReservations("V1"))
	assert.Equal(t, []string{"V1", "V2"}, p.Vehicles())

	p.RemoveReservation("T1")
	assert.False(t, p.IsReserved("T1"))
	assert.Equal(t, []string{"T2"}, p.FindReservations("V1"))

	p.RemoveReservations("V1")
	assert.Empty(t, p.FindReservations("V1"))
	assert.False(t, p.IsReserved("T2"))
	assert.Equal(t, []string{"V2"}, p.Vehicles())

	p.Clear()
	assert.Empty(t, p.Vehicles())
}

func TestReservationMovesBetweenVehicles(t *testing.T) {
	p := NewOrderReservationPool()
	p.AddReservation("T1", "V1")
	p.AddReservation("T1", "V1")
	assert.Equal(t, []string{"T1"}, p.FindReservations("V1"))

	p.AddReservation("T1", "V2")
	v, ok := p.ReservedFor("T1")
	assert.True(t, ok)
	assert.Equal(t, "V2", v)
	assert.Empty(t, p.FindReservations("V1"))
}
