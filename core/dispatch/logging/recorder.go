package logging

import (
	"context"

	"github.com/kilianp07/agvkernel/core/events"
	"github.com/kilianp07/agvkernel/core/logger"
	"github.com/kilianp07/agvkernel/core/model"
	"github.com/kilianp07/agvkernel/internal/eventbus"
)

// RecordOf converts a kernel event into a decision record. The boolean is
// false for events that are not decisions.
func RecordOf(ev eventbus.Event) (LogRecord, bool) {
	switch e := ev.(type) {
	case events.VehicleAssigned:
		return LogRecord{
			Timestamp: e.Time,
			Kind:      KindAssignment,
			Vehicle:   e.Vehicle,
			Order:     e.Order,
			OrderType: e.OrderType,
			Costs:     &Costs{Initial: e.InitialCosts, Complete: e.CompleteCosts},
		}, true
	case events.VehicleRerouted:
		return LogRecord{
			Timestamp: e.Time,
			Kind:      KindReroute,
			Vehicle:   e.Vehicle,
			Order:     e.Order,
			Reroute:   &Reroute{Type: e.Type.String(), Strategy: e.Strategy, Restricted: e.Restricted},
		}, true
	case events.CycleCompleted:
		return LogRecord{
			Timestamp: e.Time,
			Kind:      KindCycle,
			Cycle: &Cycle{
				Assignments: e.Assignments,
				Reserved:    e.Reserved,
				Parked:      e.Parked,
				Requeued:    e.Requeued,
				DurationMs:  e.Duration.Milliseconds(),
			},
		}, true
	case events.OrderStateChanged:
		if e.To == model.OrderStateWithdrawn {
			return LogRecord{Timestamp: e.Time, Kind: KindWithdrawal, Order: e.Order}, true
		}
	}
	return LogRecord{}, false
}

// StartRecorder appends every decision published on bus to store from a
// dedicated goroutine until ctx is canceled. The returned channel is closed
// when the goroutine exited.
func StartRecorder(ctx context.Context, bus eventbus.EventBus, store LogStore, log logger.Logger) <-chan struct{} {
	done := make(chan struct{})
	if bus == nil || store == nil {
		close(done)
		return done
	}
	sub, cancel := eventbus.SubscribeChan[eventbus.Event](bus, 512)
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
				rec, ok := RecordOf(ev)
				if !ok {
					continue
				}
				if err := store.Append(ctx, rec); err != nil && log != nil {
					log.Errorf("append %s record: %v", rec.Kind, err)
				}
			}
		}
	}()
	return done
}
