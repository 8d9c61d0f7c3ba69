package routing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/agvkernel/core/model"
	"github.com/kilianp07/agvkernel/infra/objectpool"
)

// A -> B -> C with a long direct shortcut A -> C.
func newPlant() *objectpool.Pool {
	p := objectpool.New(nil)
	for _, n := range []string{"A", "B", "C", "D"} {
		p.AddPoint(model.Point{Name: n})
	}
	p.AddPath(model.Path{Name: "A--B", Source: "A", Destination: "B", Length: 10})
	p.AddPath(model.Path{Name: "B--C", Source: "B", Destination: "C", Length: 15})
	p.AddPath(model.Path{Name: "A--C", Source: "A", Destination: "C", Length: 100})
	return p
}

func TestRouteCumulativeCosts(t *testing.T) {
	r := New(newPlant())
	route, ok := r.Route(model.Vehicle{Name: "V1"}, "A", "C")
	require.True(t, ok)
	require.Len(t, route.Steps, 2)
	assert.Equal(t, "A--B", route.Steps[0].Path.Name)
	assert.Equal(t, int64(10), route.Steps[0].Costs)
	assert.Equal(t, int64(25), route.Steps[1].Costs)
	assert.Equal(t, int64(25), route.Costs())
	assert.True(t, route.Steps[1].ExecutionAllowed)
	assert.Equal(t, 1, route.Steps[1].RouteIndex)
}

func TestRouteSamePoint(t *testing.T) {
	r := New(newPlant())
	route, ok := r.Route(model.Vehicle{}, "B", "B")
	require.True(t, ok)
	require.Len(t, route.Steps, 1)
	assert.Nil(t, route.Steps[0].Path)
	assert.Equal(t, int64(0), route.Costs())
}

func TestRouteUnreachable(t *testing.T) {
	r := New(newPlant())
	_, ok := r.Route(model.Vehicle{}, "A", "D")
	assert.False(t, ok)
	_, ok = r.Route(model.Vehicle{}, "A", "Z")
	assert.False(t, ok)
	_, ok = r.Route(model.Vehicle{}, "C", "A")
	assert.False(t, ok)
}

func TestLockedPathsAreAvoidedAfterUpdate(t *testing.T) {
	plant := newPlant()
	r := New(plant)
	require.NoError(t, plant.SetPathLocked("B--C", true))

	route, _ := r.Route(model.Vehicle{}, "A", "C")
	assert.Equal(t, int64(25), route.Costs(), "tables are only rebuilt on update")

	r.UpdateRoutingTopology()
	route, ok := r.Route(model.Vehicle{}, "A", "C")
	require.True(t, ok)
	require.Len(t, route.Steps, 1)
	assert.Equal(t, "A--C", route.Steps[0].Path.Name)
	assert.Equal(t, int64(100), route.Costs())
}
