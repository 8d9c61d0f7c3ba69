package mqtt

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/kilianp07/agvkernel/core/model"
	coremqtt "github.com/kilianp07/agvkernel/core/mqtt"
	"github.com/kilianp07/agvkernel/core/services"
	"github.com/kilianp07/agvkernel/infra/logger"
)

// ControllerPool hands out one controller per vehicle. Each controller
// publishes to the vehicle's order topic through the shared client.
type ControllerPool struct {
	client     Client
	ackTimeout time.Duration
	clock      services.TimeProvider
	log        logger.Logger

	mu          sync.Mutex
	controllers map[string]*Controller
	pending     sync.WaitGroup
	missedAcks  map[string]int
}

// NewControllerPool creates a pool. A zero ackTimeout disables ack tracking.
func NewControllerPool(client Client, ackTimeout time.Duration, clock services.TimeProvider, log logger.Logger) *ControllerPool {
	if clock == nil {
		clock = services.SystemClock{}
	}
	if log == nil {
		log = logger.NopLogger{}
	}
	return &ControllerPool{
		client:      client,
		ackTimeout:  ackTimeout,
		clock:       clock,
		log:         log,
		controllers: make(map[string]*Controller),
		missedAcks:  make(map[string]int),
	}
}

// VehicleController returns the controller of the vehicle, creating it on
// first use.
func (p *ControllerPool) VehicleController(vehicle string) services.VehicleController {
	p.mu.Lock()
	defer p.mu.Unlock()
	c, ok := p.controllers[vehicle]
	if !ok {
		c = &Controller{vehicle: vehicle, pool: p}
		p.controllers[vehicle] = c
	}
	return c
}

// MissedAcks returns how many order messages to the vehicle were not
// acknowledged in time.
func (p *ControllerPool) MissedAcks(vehicle string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.missedAcks[vehicle]
}

// Wait blocks until all outstanding ack watchers returned.
func (p *ControllerPool) Wait() { p.pending.Wait() }

func (p *ControllerPool) send(vehicle string, msg coremqtt.OrderMessage) error {
	id, err := p.client.PublishOrder(vehicle, msg)
	if err != nil {
		return fmt.Errorf("vehicle %s: publish %s: %w", vehicle, msg.Action, err)
	}
	if p.ackTimeout <= 0 {
		return nil
	}
	// Acks are awaited off the caller's goroutine; the kernel must not block
	// on the network.
	p.pending.Add(1)
	go func() {
		defer p.pending.Done()
		ok, err := p.client.WaitForAck(id, p.ackTimeout)
		if ok && err == nil {
			return
		}
		p.mu.Lock()
		p.missedAcks[vehicle]++
		p.mu.Unlock()
		if errors.Is(err, coremqtt.ErrAckTimeout) {
			p.log.Warnf("vehicle %s did not acknowledge %s", vehicle, id)
			return
		}
		p.log.Errorf("vehicle %s: ack %s: %v", vehicle, id, err)
	}()
	return nil
}

// Controller is the MQTT-backed controller of one vehicle.
type Controller struct {
	vehicle string
	pool    *ControllerPool
}

// SetTransportOrder publishes the unfinished drive orders of the order.
func (c *Controller) SetTransportOrder(order model.TransportOrder) error {
	return c.pool.send(c.vehicle, coremqtt.SetOrderMessage(c.vehicle, order, c.pool.clock.Now()))
}

// AbortTransportOrder publishes an abort message.
func (c *Controller) AbortTransportOrder() error {
	return c.pool.send(c.vehicle, coremqtt.AbortOrderMessage(c.vehicle, c.pool.clock.Now()))
}
