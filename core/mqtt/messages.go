// Package mqtt defines the wire messages exchanged with vehicles over MQTT.
package mqtt

import (
	"fmt"
	"time"

	"github.com/kilianp07/agvkernel/core/model"
)

// Order actions.
const (
	ActionSet   = "set"
	ActionAbort = "abort"
)

// Report events a vehicle may attach to a state report.
const (
	EventDriveOrderFinished = "drive_order_finished"
	EventDriveOrderFailed   = "drive_order_failed"
)

// StepMessage is one step of a drive order's route.
type StepMessage struct {
	Path             string `json:"path,omitempty"`
	Source           string `json:"source,omitempty"`
	Destination      string `json:"destination"`
	ExecutionAllowed bool   `json:"execution_allowed"`
}

// DriveOrderMessage is one unfinished drive order of an order message.
type DriveOrderMessage struct {
	Name        string        `json:"name"`
	Destination string        `json:"destination"`
	Operation   string        `json:"operation,omitempty"`
	Steps       []StepMessage `json:"steps"`
}

// OrderMessage is published to a vehicle's order topic.
type OrderMessage struct {
	MessageID   string              `json:"message_id"`
	Vehicle     string              `json:"vehicle"`
	Action      string              `json:"action"`
	Order       string              `json:"order,omitempty"`
	Type        string              `json:"type,omitempty"`
	DriveOrders []DriveOrderMessage `json:"drive_orders,omitempty"`
	Timestamp   int64               `json:"timestamp"`
}

// SetOrderMessage builds the message handing the unfinished drive orders of
// the order to the vehicle.
func SetOrderMessage(vehicle string, order model.TransportOrder, now time.Time) OrderMessage {
	msg := OrderMessage{
		Vehicle:   vehicle,
		Action:    ActionSet,
		Order:     order.Name,
		Type:      order.Type,
		Timestamp: now.UnixMilli(),
	}
	for _, d := range order.UnfinishedDriveOrders() {
		dm := DriveOrderMessage{
			Name:        d.Name,
			Destination: d.Destination.Name,
			Operation:   d.Destination.Operation,
			Steps:       []StepMessage{},
		}
		if d.Route != nil {
			for _, s := range d.Route.Steps {
				sm := StepMessage{
					Source:           s.SourcePoint,
					Destination:      s.DestinationPoint,
					ExecutionAllowed: s.ExecutionAllowed,
				}
				if s.Path != nil {
					sm.Path = s.Path.Name
				}
				dm.Steps = append(dm.Steps, sm)
			}
		}
		msg.DriveOrders = append(msg.DriveOrders, dm)
	}
	return msg
}

// AbortOrderMessage builds the message telling the vehicle to drop its order.
func AbortOrderMessage(vehicle string, now time.Time) OrderMessage {
	return OrderMessage{Vehicle: vehicle, Action: ActionAbort, Timestamp: now.UnixMilli()}
}

// Ack is sent by a vehicle after receiving an order message.
type Ack struct {
	MessageID string `json:"message_id"`
	Vehicle   string `json:"vehicle,omitempty"`
}

// VehicleReport is a state report published by a vehicle. Absent optional
// fields leave the kernel's view unchanged.
type VehicleReport struct {
	Vehicle      string `json:"vehicle"`
	State        string `json:"state,omitempty"`
	Position     string `json:"position,omitempty"`
	NextPosition string `json:"next_position,omitempty"`
	EnergyLevel  *int   `json:"energy_level,omitempty"`
	Paused       *bool  `json:"paused,omitempty"`
	Event        string `json:"event,omitempty"`
	Timestamp    int64  `json:"timestamp,omitempty"`
}

// Apply merges the report into the vehicle. Position updates clear the next
// position unless the report names one.
func (r VehicleReport) Apply(v model.Vehicle) (model.Vehicle, error) {
	if r.State != "" {
		st, ok := model.ParseVehicleState(r.State)
		if !ok {
			return v, fmt.Errorf("vehicle %s: state %q: %w", r.Vehicle, r.State, model.ErrInvalidArgument)
		}
		v.State = st
	}
	if r.Position != "" {
		v.CurrentPosition = r.Position
		v.NextPosition = r.NextPosition
	} else if r.NextPosition != "" {
		v.NextPosition = r.NextPosition
	}
	if r.EnergyLevel != nil {
		if *r.EnergyLevel < 0 || *r.EnergyLevel > 100 {
			return v, fmt.Errorf("vehicle %s: energy level %d: %w", r.Vehicle, *r.EnergyLevel, model.ErrInvalidArgument)
		}
		v.EnergyLevel = *r.EnergyLevel
	}
	if r.Paused != nil {
		v.Paused = *r.Paused
	}
	return v, nil
}
