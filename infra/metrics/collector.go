package metrics

import (
	"context"

	"github.com/kilianp07/agvkernel/core/events"
	coremetrics "github.com/kilianp07/agvkernel/core/metrics"
	"github.com/kilianp07/agvkernel/infra/logger"
	"github.com/kilianp07/agvkernel/internal/eventbus"
)

// StartEventCollector subscribes to the event bus and records kernel events
// on the sink from a dedicated goroutine, so slow sinks never block the
// publishing kernel. Events are dropped when the buffer of size events is
// full. It stops when ctx is canceled; the returned channel is closed once
// the collector goroutine exited.
func StartEventCollector(ctx context.Context, bus eventbus.EventBus, sink coremetrics.MetricsSink, size int) <-chan struct{} {
	done := make(chan struct{})
	if bus == nil || sink == nil {
		close(done)
		return done
	}
	if size <= 0 {
		size = 256
	}
	sub, cancel := eventbus.SubscribeChan[eventbus.Event](bus, size)
	log := logger.New("metrics-collector")
	go func() {
		defer close(done)
		defer cancel()
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-sub:
				if !ok {
					return
				}
				if err := record(sink, ev); err != nil {
					log.Warnf("record %T: %v", ev, err)
				}
			}
		}
	}()
	return done
}

func record(sink coremetrics.MetricsSink, ev eventbus.Event) error {
	switch e := ev.(type) {
	case events.VehicleAssigned:
		return sink.RecordAssignments([]coremetrics.AssignmentEvent{{
			Vehicle:       e.Vehicle,
			Order:         e.Order,
			OrderType:     e.OrderType,
			InitialCosts:  e.InitialCosts,
			CompleteCosts: e.CompleteCosts,
			Time:          e.Time,
		}})
	case events.CycleCompleted:
		if r, ok := sink.(coremetrics.CycleRecorder); ok {
			return r.RecordCycle(coremetrics.CycleEvent{
				Assignments: e.Assignments,
				Reserved:    e.Reserved,
				Parked:      e.Parked,
				Requeued:    e.Requeued,
				Duration:    e.Duration,
				Time:        e.Time,
			})
		}
	case events.VehicleRerouted:
		if r, ok := sink.(coremetrics.RerouteRecorder); ok {
			return r.RecordReroute(coremetrics.RerouteEvent{
				Vehicle:    e.Vehicle,
				Order:      e.Order,
				Type:       e.Type,
				Strategy:   e.Strategy,
				Restricted: e.Restricted,
				Time:       e.Time,
			})
		}
	case events.OrderStateChanged:
		if r, ok := sink.(coremetrics.OrderStateRecorder); ok {
			return r.RecordOrderState(coremetrics.OrderStateEvent{Order: e.Order, From: e.From, To: e.To, Time: e.Time})
		}
	case events.VehicleUpdated:
		if r, ok := sink.(coremetrics.VehicleStateRecorder); ok {
			return r.RecordVehicleState(coremetrics.VehicleStateEvent{Vehicle: e.Vehicle, Time: e.Time})
		}
	}
	return nil
}
