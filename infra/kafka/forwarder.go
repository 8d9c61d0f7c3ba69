// Package kafka forwards kernel events to a Kafka topic for external
// consumers such as MES or fleet dashboards.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/kilianp07/agvkernel/core/events"
	"github.com/kilianp07/agvkernel/core/logger"
	"github.com/kilianp07/agvkernel/internal/eventbus"
)

// Config defines the Kafka producer settings.
type Config struct {
	Brokers []string `json:"brokers" yaml:"brokers"`
	Topic   string   `json:"topic" yaml:"topic"`
	// BatchTimeoutMs bounds how long messages are buffered before sending.
	BatchTimeoutMs int `json:"batch_timeout_ms" yaml:"batch_timeout_ms"`
}

// Enabled reports whether forwarding is configured.
func (c Config) Enabled() bool { return len(c.Brokers) > 0 && c.Topic != "" }

// Envelope is the JSON document written for every event.
type Envelope struct {
	Type    string    `json:"type"`
	Time    time.Time `json:"time"`
	Payload any       `json:"payload"`
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Forwarder publishes kernel events on a Kafka topic.
type Forwarder struct {
	w   messageWriter
	log logger.Logger
}

// NewForwarder creates a producer for cfg.Topic.
func NewForwarder(cfg Config, log logger.Logger) (*Forwarder, error) {
	if !cfg.Enabled() {
		return nil, fmt.Errorf("kafka: brokers and topic are required")
	}
	batch := time.Duration(cfg.BatchTimeoutMs) * time.Millisecond
	if batch <= 0 {
		batch = 50 * time.Millisecond
	}
	w := &kafkago.Writer{
		Addr:                   kafkago.TCP(cfg.Brokers...),
		Topic:                  cfg.Topic,
		Balancer:               &kafkago.Hash{},
		BatchTimeout:           batch,
		AllowAutoTopicCreation: true,
	}
	return &Forwarder{w: w, log: log}, nil
}

// EnvelopeOf maps a kernel event to its message key and envelope. The
// boolean is false for events that are not forwarded.
func EnvelopeOf(ev eventbus.Event) ([]byte, Envelope, bool) {
	switch e := ev.(type) {
	case events.OrderStateChanged:
		return []byte(e.Order), Envelope{Type: "order_state_changed", Time: e.Time, Payload: map[string]string{
			"order": e.Order, "from": e.From.String(), "to": e.To.String(),
		}}, true
	case events.VehicleAssigned:
		return []byte(e.Vehicle), Envelope{Type: "vehicle_assigned", Time: e.Time, Payload: e}, true
	case events.VehicleRerouted:
		return []byte(e.Vehicle), Envelope{Type: "vehicle_rerouted", Time: e.Time, Payload: map[string]any{
			"vehicle": e.Vehicle, "order": e.Order, "type": e.Type.String(),
			"strategy": e.Strategy, "restricted": e.Restricted,
		}}, true
	case events.PathLockChanged:
		return []byte(e.Path), Envelope{Type: "path_lock_changed", Time: e.Time, Payload: e}, true
	case events.CycleCompleted:
		return nil, Envelope{Type: "cycle_completed", Time: e.Time, Payload: map[string]any{
			"assignments": e.Assignments, "reserved": e.Reserved, "parked": e.Parked,
			"requeued": e.Requeued, "duration_ms": e.Duration.Milliseconds(),
		}}, true
	}
	return nil, Envelope{}, false
}

// Forward writes one event. Unsupported events are ignored.
func (f *Forwarder) Forward(ctx context.Context, ev eventbus.Event) error {
	key, env, ok := EnvelopeOf(ev)
	if !ok {
		return nil
	}
	value, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("encode %s: %w", env.Type, err)
	}
	return f.w.WriteMessages(ctx, kafkago.Message{Key: key, Value: value})
}

// Start forwards events published on bus until ctx is canceled. The returned
// channel is closed when the goroutine exited.
func (f *Forwarder) Start(ctx context.Context, bus eventbus.EventBus) <-chan struct{} {
	done := make(chan struct{})
	sub, cancel := eventbus.SubscribeChan[eventbus.Event](bus, 1024)
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
				if err := f.Forward(ctx, ev); err != nil && f.log != nil {
					f.log.Warnf("forward %T: %v", ev, err)
				}
			}
		}
	}()
	return done
}

// Close flushes pending messages and closes the producer.
func (f *Forwarder) Close() error { return f.w.Close() }
