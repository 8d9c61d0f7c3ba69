package main

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	coremqtt "github.com/kilianp07/agvkernel/core/mqtt"
	"github.com/kilianp07/agvkernel/infra/logger"
)

const (
	stateIdle        = "IDLE"
	stateExecuting   = "EXECUTING"
	stateUnavailable = "UNAVAILABLE"
)

// SimulatedVehicle connects to MQTT, acknowledges order messages and drives
// the received routes step by step while publishing state reports.
type SimulatedVehicle struct {
	ID        string
	Broker    string
	Topics    Topics
	Strategy  AckStrategy
	StepDelay time.Duration
	Interval  time.Duration
	FailRate  float64
	Battery   *Battery
	Log       logger.Logger

	mu       sync.Mutex
	state    string
	position string
	next     string
	current  *job

	client paho.Client
	msgs   chan coremqtt.OrderMessage
	acks   sync.WaitGroup
}

type job struct {
	order      string
	driveOrder string
	cancel     context.CancelFunc
	done       chan struct{}
}

// NewSimulatedVehicle creates a vehicle standing idle on start.
func NewSimulatedVehicle(id, broker, prefix, start string, strat AckStrategy, battery *Battery) *SimulatedVehicle {
	return &SimulatedVehicle{
		ID:       id,
		Broker:   broker,
		Topics:   TopicsFor(prefix, id),
		Strategy: strat,
		Battery:  battery,
		Log:      logger.NopLogger{},
		state:    stateIdle,
		position: start,
	}
}

// Run connects to the broker and serves order messages until ctx is done.
func (v *SimulatedVehicle) Run(ctx context.Context) error {
	will, err := json.Marshal(coremqtt.VehicleReport{Vehicle: v.ID, State: stateUnavailable})
	if err != nil {
		return err
	}
	cli, err := mqttClientFactory(connectOptions{
		Broker:    v.Broker,
		ClientID:  "sim-" + v.ID,
		WillTopic: v.Topics.State,
		Will:      will,
	})
	if err != nil {
		return err
	}
	v.client = cli
	v.msgs = make(chan coremqtt.OrderMessage, 16)
	if token := cli.Subscribe(v.Topics.Order, 1, v.onOrder); token.Wait() && token.Error() != nil {
		cli.Disconnect(250)
		return token.Error()
	}
	v.publishReport("")

	var tick <-chan time.Time
	if v.Interval > 0 {
		t := time.NewTicker(v.Interval)
		defer t.Stop()
		tick = t.C
	}
	for {
		select {
		case msg := <-v.msgs:
			v.handle(ctx, msg)
		case <-tick:
			v.publishReport("")
		case <-ctx.Done():
			v.stopJob()
			v.acks.Wait()
			cli.Disconnect(250)
			return nil
		}
	}
}

func (v *SimulatedVehicle) onOrder(_ paho.Client, msg paho.Message) {
	var m coremqtt.OrderMessage
	if err := json.Unmarshal(msg.Payload(), &m); err != nil {
		v.Log.Warnf("%s: decode order message: %v", v.ID, err)
		return
	}
	select {
	case v.msgs <- m:
	default:
		v.Log.Warnf("%s: order queue full, dropping message %s", v.ID, m.MessageID)
	}
}

func (v *SimulatedVehicle) handle(ctx context.Context, msg coremqtt.OrderMessage) {
	v.acks.Add(1)
	go func() {
		defer v.acks.Done()
		if v.Strategy.Ack(ctx, msg.MessageID) {
			v.publish(v.Topics.Ack, coremqtt.Ack{MessageID: msg.MessageID, Vehicle: v.ID})
		}
	}()

	switch msg.Action {
	case coremqtt.ActionAbort:
		v.stopJob()
		v.setState(stateIdle)
		v.publishReport("")
	case coremqtt.ActionSet:
		if v.continues(msg) {
			return
		}
		v.stopJob()
		jctx, cancel := context.WithCancel(ctx)
		j := &job{order: msg.Order, cancel: cancel, done: make(chan struct{})}
		v.mu.Lock()
		v.current = j
		v.mu.Unlock()
		go v.drive(jctx, j, msg.DriveOrders)
	default:
		v.Log.Warnf("%s: unknown action %q", v.ID, msg.Action)
	}
}

// continues reports whether msg only restates the drive order already being
// driven.
func (v *SimulatedVehicle) continues(msg coremqtt.OrderMessage) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.current == nil || len(msg.DriveOrders) == 0 {
		return false
	}
	select {
	case <-v.current.done:
		return false
	default:
	}
	if v.current.order != msg.Order || v.current.driveOrder != msg.DriveOrders[0].Name {
		return false
	}
	for _, s := range msg.DriveOrders[0].Steps {
		if !s.ExecutionAllowed {
			return false
		}
	}
	return true
}

func (v *SimulatedVehicle) stopJob() {
	v.mu.Lock()
	j := v.current
	v.current = nil
	v.mu.Unlock()
	if j == nil {
		return
	}
	j.cancel()
	<-j.done
}

func (v *SimulatedVehicle) drive(ctx context.Context, j *job, drives []coremqtt.DriveOrderMessage) {
	defer close(j.done)
	for i, d := range drives {
		v.mu.Lock()
		j.driveOrder = d.Name
		v.mu.Unlock()
		v.setState(stateExecuting)
		for n, s := range d.Steps {
			if !s.ExecutionAllowed {
				v.Log.Infof("%s: waiting before %s", v.ID, s.Destination)
				v.publishReport("")
				<-ctx.Done()
				return
			}
			if !wait(ctx, v.StepDelay) {
				return
			}
			next := ""
			if n+1 < len(d.Steps) {
				next = d.Steps[n+1].Destination
			}
			v.mu.Lock()
			v.position = s.Destination
			v.next = next
			v.mu.Unlock()
			if v.Battery != nil {
				v.Battery.Step()
			}
			v.publishReport("")
		}
		if ctx.Err() != nil {
			return
		}
		if roll(v.FailRate) {
			v.setState(stateIdle)
			v.publishReport(coremqtt.EventDriveOrderFailed)
			return
		}
		if i == len(drives)-1 {
			v.setState(stateIdle)
		}
		v.publishReport(coremqtt.EventDriveOrderFinished)
	}
}

func (v *SimulatedVehicle) setState(s string) {
	v.mu.Lock()
	v.state = s
	v.mu.Unlock()
}

// Report returns the vehicle's current state report.
func (v *SimulatedVehicle) Report(event string) coremqtt.VehicleReport {
	v.mu.Lock()
	defer v.mu.Unlock()
	r := coremqtt.VehicleReport{
		Vehicle:      v.ID,
		State:        v.state,
		Position:     v.position,
		NextPosition: v.next,
		Event:        event,
		Timestamp:    time.Now().UnixMilli(),
	}
	if v.Battery != nil {
		lvl := v.Battery.Level()
		r.EnergyLevel = &lvl
	}
	return r
}

func (v *SimulatedVehicle) publishReport(event string) {
	v.publish(v.Topics.State, v.Report(event))
}

func (v *SimulatedVehicle) publish(topic string, body any) {
	payload, err := json.Marshal(body)
	if err != nil {
		v.Log.Errorf("%s: marshal: %v", v.ID, err)
		return
	}
	token := v.client.Publish(topic, 1, false, payload)
	if !token.WaitTimeout(5 * time.Second) {
		v.Log.Warnf("%s: publish timeout on %s", v.ID, topic)
		return
	}
	if err := token.Error(); err != nil {
		v.Log.Errorf("%s: publish on %s: %v", v.ID, topic, err)
	}
}
