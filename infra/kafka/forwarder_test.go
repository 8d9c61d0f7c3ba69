package kafka

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/agvkernel/core/events"
	"github.com/kilianp07/agvkernel/core/model"
	"github.com/kilianp07/agvkernel/internal/eventbus"
)

type memWriter struct {
	mu   sync.Mutex
	msgs []kafkago.Message
}

func (m *memWriter) WriteMessages(_ context.Context, msgs ...kafkago.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.msgs = append(m.msgs, msgs...)
	return nil
}

func (m *memWriter) Close() error { return nil }

func (m *memWriter) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.msgs)
}

func TestNewForwarder_RequiresConfig(t *testing.T) {
	_, err := NewForwarder(Config{Topic: "agv"}, nil)
	assert.Error(t, err)
	f, err := NewForwarder(Config{Brokers: []string{"localhost:9092"}, Topic: "agv"}, nil)
	require.NoError(t, err)
	assert.NoError(t, f.Close())
}

func TestForward_OrderState(t *testing.T) {
	w := &memWriter{}
	f := &Forwarder{w: w}
	now := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
	require.NoError(t, f.Forward(context.Background(), events.OrderStateChanged{
		Order: "T1", From: model.OrderStateRaw, To: model.OrderStateDispatchable, Time: now,
	}))
	require.NoError(t, f.Forward(context.Background(), events.VehicleUpdated{}))

	require.Len(t, w.msgs, 1)
	assert.Equal(t, "T1", string(w.msgs[0].Key))
	var env struct {
		Type    string            `json:"type"`
		Time    time.Time         `json:"time"`
		Payload map[string]string `json:"payload"`
	}
	require.NoError(t, json.Unmarshal(w.msgs[0].Value, &env))
	assert.Equal(t, "order_state_changed", env.Type)
	assert.True(t, now.Equal(env.Time))
	assert.Equal(t, map[string]string{"order": "T1", "from": "RAW", "to": "DISPATCHABLE"}, env.Payload)
}

func TestEnvelopeOf_Reroute(t *testing.T) {
	key, env, ok := EnvelopeOf(events.VehicleRerouted{Vehicle: "V1", Order: "T1", Type: model.ReroutingForced, Restricted: 1})
	require.True(t, ok)
	assert.Equal(t, "V1", string(key))
	assert.Equal(t, "vehicle_rerouted", env.Type)
	payload := env.Payload.(map[string]any)
	assert.Equal(t, "FORCED", payload["type"])
	assert.Equal(t, 1, payload["restricted"])
}

func TestStart(t *testing.T) {
	w := &memWriter{}
	f := &Forwarder{w: w}
	bus := eventbus.New(nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := f.Start(ctx, bus)

	bus.Publish(events.PathLockChanged{Path: "A--B", Locked: true})
	bus.Publish(events.CycleCompleted{Assignments: 2})
	require.Eventually(t, func() bool { return w.count() == 2 }, time.Second, 5*time.Millisecond)

	cancel()
	<-done
}
