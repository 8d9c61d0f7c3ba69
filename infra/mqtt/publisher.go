package mqtt

import (
	"fmt"
	"sync"
	"time"

	coremqtt "github.com/kilianp07/agvkernel/core/mqtt"
)

// Client mirrors the core mqtt.Client interface.
type Client = coremqtt.Client

// MockPublisher records order messages instead of sending them.
type MockPublisher struct {
	Messages   map[string][]coremqtt.OrderMessage
	FailIDs    map[string]bool
	FailAcks   map[string]bool
	AckResults map[string]bool
	mu         sync.Mutex
	seq        int
}

// NewMockPublisher creates a new MockPublisher.
func NewMockPublisher() *MockPublisher {
	return &MockPublisher{
		Messages:   make(map[string][]coremqtt.OrderMessage),
		FailIDs:    make(map[string]bool),
		FailAcks:   make(map[string]bool),
		AckResults: make(map[string]bool),
	}
}

// PublishOrder records the message or returns an error if configured to fail.
func (m *MockPublisher) PublishOrder(vehicle string, msg coremqtt.OrderMessage) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailIDs[vehicle] {
		return "", fmt.Errorf("publish failed")
	}
	m.seq++
	if msg.MessageID == "" {
		msg.MessageID = fmt.Sprintf("msg-%s-%d", vehicle, m.seq)
	}
	m.Messages[vehicle] = append(m.Messages[vehicle], msg)
	m.AckResults[msg.MessageID] = !m.FailAcks[vehicle]
	return msg.MessageID, nil
}

// WaitForAck simulates an immediate acknowledgment based on the stored result.
func (m *MockPublisher) WaitForAck(messageID string, _ time.Duration) (bool, error) {
	m.mu.Lock()
	ok, exists := m.AckResults[messageID]
	m.mu.Unlock()
	if !exists {
		return false, fmt.Errorf("message %s: %w", messageID, coremqtt.ErrUnknownMessage)
	}
	if !ok {
		return false, fmt.Errorf("message %s: %w", messageID, coremqtt.ErrAckTimeout)
	}
	return true, nil
}

// Sent returns the messages recorded for the vehicle.
func (m *MockPublisher) Sent(vehicle string) []coremqtt.OrderMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]coremqtt.OrderMessage(nil), m.Messages[vehicle]...)
}
