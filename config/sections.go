package config

import (
	"fmt"
	"time"

	"github.com/kilianp07/agvkernel/infra/redis"
)

// KernelConfig tunes the kernel's serialized executor.
type KernelConfig struct {
	// QueueSize bounds the number of pending kernel tasks.
	QueueSize int `json:"queue_size"`
	// DispatchOnEvents triggers a dispatch cycle after every state change in
	// addition to the periodic trigger.
	DispatchOnEvents bool `json:"dispatch_on_events"`
	// ShutdownTimeoutMs bounds how long shutdown waits for pending work.
	ShutdownTimeoutMs int `json:"shutdown_timeout_ms"`
}

// SetDefaults applies sane defaults.
func (c *KernelConfig) SetDefaults() {
	if c.QueueSize <= 0 {
		c.QueueSize = 256
	}
	if c.ShutdownTimeoutMs <= 0 {
		c.ShutdownTimeoutMs = 5000
	}
}

// Validate checks the settings.
func (c KernelConfig) Validate() error {
	if c.QueueSize <= 0 {
		return fmt.Errorf("kernel: queue_size must be positive")
	}
	return nil
}

// ShutdownTimeout returns the configured shutdown bound.
func (c KernelConfig) ShutdownTimeout() time.Duration {
	return time.Duration(c.ShutdownTimeoutMs) * time.Millisecond
}

// PlantConfig points at the plant model file.
type PlantConfig struct {
	Path string `json:"path"`
}

// StatusConfig selects where the vehicle status view is kept.
type StatusConfig struct {
	// Backend is "memory" or "redis".
	Backend string       `json:"backend"`
	Redis   redis.Config `json:"redis"`
}

// SetDefaults applies sane defaults.
func (c *StatusConfig) SetDefaults() {
	if c.Backend == "" {
		c.Backend = "memory"
	}
}

// Validate checks the settings.
func (c StatusConfig) Validate() error {
	switch c.Backend {
	case "memory":
	case "redis":
		if c.Redis.Addr == "" {
			return fmt.Errorf("status: redis backend requires redis.addr")
		}
	default:
		return fmt.Errorf("status: unknown backend %s", c.Backend)
	}
	return nil
}
