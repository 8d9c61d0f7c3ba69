package mqtt

import "time"

// Client publishes transport orders to vehicles and tracks their
// acknowledgments.
type Client interface {
	// PublishOrder sends the message to the vehicle's order topic and returns
	// the message identifier used to track the acknowledgment.
	PublishOrder(vehicle string, msg OrderMessage) (messageID string, err error)

	// WaitForAck waits for an acknowledgment for the provided message
	// identifier or until the timeout expires.
	WaitForAck(messageID string, timeout time.Duration) (bool, error)
}
