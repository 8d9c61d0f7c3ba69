package vehiclestatus

import (
	"context"
	"fmt"

	"github.com/kilianp07/agvkernel/core/events"
	"github.com/kilianp07/agvkernel/core/logger"
	"github.com/kilianp07/agvkernel/core/model"
	"github.com/kilianp07/agvkernel/internal/eventbus"
)

// StatusOf converts a vehicle into its status view.
func StatusOf(v model.Vehicle) Status {
	return Status{
		VehicleID:        v.Name,
		State:            v.State.String(),
		ProcState:        v.ProcState.String(),
		IntegrationLevel: v.IntegrationLevel.String(),
		Position:         v.CurrentPosition,
		EnergyLevel:      v.EnergyLevel,
		TransportOrder:   v.TransportOrder,
		Paused:           v.Paused,
	}
}

// Apply updates store with a kernel event. Events unrelated to vehicles are
// ignored.
func Apply(ctx context.Context, store Store, ev eventbus.Event) error {
	switch e := ev.(type) {
	case events.VehicleUpdated:
		st := StatusOf(e.Vehicle)
		st.UpdatedAt = e.Time
		return store.Set(ctx, st)
	case events.VehicleAssigned:
		return store.RecordDecision(ctx, e.Vehicle, LastDecision{
			Kind:      "assignment",
			Order:     e.Order,
			Detail:    fmt.Sprintf("initial costs %d, complete costs %d", e.InitialCosts, e.CompleteCosts),
			Timestamp: e.Time,
		})
	case events.VehicleRerouted:
		detail := "rerouted"
		if !e.Strategy {
			detail = fmt.Sprintf("route patched, %d restricted steps", e.Restricted)
		}
		return store.RecordDecision(ctx, e.Vehicle, LastDecision{
			Kind:      "reroute_" + e.Type.String(),
			Order:     e.Order,
			Detail:    detail,
			Timestamp: e.Time,
		})
	}
	return nil
}

// StartTracker keeps store in sync with the events published on bus until
// ctx is canceled.
func StartTracker(ctx context.Context, bus eventbus.EventBus, store Store, log logger.Logger) <-chan struct{} {
	done := make(chan struct{})
	if bus == nil || store == nil {
		close(done)
		return done
	}
	sub, cancel := eventbus.SubscribeChan[eventbus.Event](bus, 256)
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
				if err := Apply(ctx, store, ev); err != nil && log != nil {
					log.Warnf("vehicle status update for %T: %v", ev, err)
				}
			}
		}
	}()
	return done
}
