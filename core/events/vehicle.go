package events

import (
	"time"

	"github.com/kilianp07/agvkernel/core/model"
)

// VehicleRerouted is published after a reroute updated a vehicle's order.
// Strategy is false when the fallback patched the existing route; Restricted
// counts the steps no longer allowed to be executed.
type VehicleRerouted struct {
	Vehicle    string
	Order      string
	Type       model.ReroutingType
	Strategy   bool
	Restricted int
	Time       time.Time
}

// VehicleUpdated carries the vehicle state after a controller report.
type VehicleUpdated struct {
	Vehicle model.Vehicle
	Time    time.Time
}

// PathLockChanged is published when a path is locked or unlocked.
type PathLockChanged struct {
	Path   string
	Locked bool
	Time   time.Time
}
