package dispatch

import (
	"fmt"
	"sync/atomic"
	"time"
)

// ReroutingImpossibleStrategy decides how a route is patched when no new
// route could be found for a vehicle.
type ReroutingImpossibleStrategy string

const (
	IgnorePathLocks  ReroutingImpossibleStrategy = "IGNORE_PATH_LOCKS"
	PauseImmediately ReroutingImpossibleStrategy = "PAUSE_IMMEDIATELY"
	PauseAtPathLock  ReroutingImpossibleStrategy = "PAUSE_AT_PATH_LOCK"
)

// Config defines dispatch-related settings.
type Config struct {
	KeepRechargingUntilFullyCharged bool                        `json:"keep_recharging_until_fully_charged"`
	ParkIdleVehicles                bool                        `json:"park_idle_vehicles"`
	ParkIdleVehiclesDelayMs         int64                       `json:"park_idle_vehicles_delay_ms"`
	DeadlineAtRiskPeriodMs          int64                       `json:"deadline_at_risk_period_ms"`
	OrderPriorities                 []string                    `json:"order_priorities"`
	VehiclePriorities               []string                    `json:"vehicle_priorities"`
	OrderCandidatePriorities        []string                    `json:"order_candidate_priorities"`
	VehicleCandidatePriorities      []string                    `json:"vehicle_candidate_priorities"`
	ReroutingImpossibleStrategy     ReroutingImpossibleStrategy `json:"rerouting_impossible_strategy"`
	RedispatchIntervalMs            int64                       `json:"redispatch_interval_ms"`
	// RerouteOnTopologyChanges reroutes vehicles processing orders whenever
	// a path lock changes.
	RerouteOnTopologyChanges bool `json:"reroute_on_topology_changes"`
}

// DefaultConfig returns the settings used when nothing is configured.
func DefaultConfig() Config {
	return Config{
		ParkIdleVehiclesDelayMs:     60000,
		DeadlineAtRiskPeriodMs:      int64(time.Hour / time.Millisecond),
		OrderPriorities:             []string{KeyByDeadline},
		VehiclePriorities:           []string{KeyIdleFirst, KeyByEnergyLevel},
		OrderCandidatePriorities:    []string{KeyByDeadline, KeyByInitialRoutingCosts},
		VehicleCandidatePriorities:  []string{KeyIdleFirst, KeyByInitialRoutingCosts},
		ReroutingImpossibleStrategy: IgnorePathLocks,
		RedispatchIntervalMs:        10000,
	}
}

// Validate checks the settings for consistency.
func (c Config) Validate() error {
	switch c.ReroutingImpossibleStrategy {
	case IgnorePathLocks, PauseImmediately, PauseAtPathLock:
	default:
		return fmt.Errorf("dispatch: unknown rerouting_impossible_strategy %q", c.ReroutingImpossibleStrategy)
	}
	if c.ParkIdleVehiclesDelayMs < 0 {
		return fmt.Errorf("dispatch: park_idle_vehicles_delay_ms must not be negative")
	}
	if c.DeadlineAtRiskPeriodMs < 0 {
		return fmt.Errorf("dispatch: deadline_at_risk_period_ms must not be negative")
	}
	return nil
}

// ParkIdleVehiclesDelay returns the configured idle delay.
func (c Config) ParkIdleVehiclesDelay() time.Duration {
	return time.Duration(c.ParkIdleVehiclesDelayMs) * time.Millisecond
}

// DeadlineAtRiskPeriod returns the configured risk window.
func (c Config) DeadlineAtRiskPeriod() time.Duration {
	return time.Duration(c.DeadlineAtRiskPeriodMs) * time.Millisecond
}

// RedispatchInterval returns the period of the periodic dispatch trigger.
func (c Config) RedispatchInterval() time.Duration {
	return time.Duration(c.RedispatchIntervalMs) * time.Millisecond
}

// ConfigSource provides the current dispatch settings. Implementations may
// change the returned value between calls.
type ConfigSource interface {
	Config() Config
}

// ConfigHolder is a ConfigSource that can be updated at runtime.
type ConfigHolder struct {
	v atomic.Pointer[Config]
}

// NewConfigHolder returns a holder initialized with cfg.
func NewConfigHolder(cfg Config) *ConfigHolder {
	h := &ConfigHolder{}
	h.Set(cfg)
	return h
}

// Config returns the current settings.
func (h *ConfigHolder) Config() Config {
	if c := h.v.Load(); c != nil {
		return *c
	}
	return DefaultConfig()
}

// Set replaces the current settings.
func (h *ConfigHolder) Set(cfg Config) {
	h.v.Store(&cfg)
}

// StaticConfig is a ConfigSource that never changes.
type StaticConfig Config

// Config returns the wrapped settings.
func (s StaticConfig) Config() Config { return Config(s) }
