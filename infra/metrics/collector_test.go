package metrics

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/agvkernel/core/events"
	coremetrics "github.com/kilianp07/agvkernel/core/metrics"
	"github.com/kilianp07/agvkernel/core/model"
	"github.com/kilianp07/agvkernel/internal/eventbus"
)

type captureSink struct {
	coremetrics.NopSink
	mu          sync.Mutex
	assignments []coremetrics.AssignmentEvent
	reroutes    []coremetrics.RerouteEvent
	cycles      int
}

func (c *captureSink) RecordAssignments(evs []coremetrics.AssignmentEvent) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.assignments = append(c.assignments, evs...)
	return nil
}

func (c *captureSink) RecordReroute(ev coremetrics.RerouteEvent) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reroutes = append(c.reroutes, ev)
	return nil
}

func (c *captureSink) RecordCycle(coremetrics.CycleEvent) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cycles++
	return nil
}

func (c *captureSink) counts() (int, int, int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.assignments), len(c.reroutes), c.cycles
}

func TestStartEventCollector(t *testing.T) {
	bus := eventbus.New(nil)
	sink := &captureSink{}
	ctx, cancel := context.WithCancel(context.Background())
	done := StartEventCollector(ctx, bus, sink, 16)

	bus.Publish(events.VehicleAssigned{Vehicle: "V1", Order: "T1", InitialCosts: 5})
	bus.Publish(events.VehicleRerouted{Vehicle: "V1", Order: "T1", Type: model.ReroutingForced})
	bus.Publish(events.CycleCompleted{Assignments: 1})
	bus.Publish("ignored")

	require.Eventually(t, func() bool {
		a, r, c := sink.counts()
		return a == 1 && r == 1 && c == 1
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, int64(5), sink.assignments[0].InitialCosts)
	assert.Equal(t, model.ReroutingForced, sink.reroutes[0].Type)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("collector did not stop")
	}
}

func TestStartEventCollector_NilBus(t *testing.T) {
	done := StartEventCollector(context.Background(), nil, coremetrics.NopSink{}, 0)
	_, open := <-done
	assert.False(t, open)
}
