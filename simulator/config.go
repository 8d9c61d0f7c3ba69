package main

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Config holds parameters for the simulator.
type Config struct {
	Broker      string
	TopicPrefix string
	Vehicles    string
	Count       int
	Start       string
	AckLatency  time.Duration
	DropRate    float64
	FailRate    float64
	StepDelay   time.Duration
	Interval    time.Duration
	EnergyLevel int
	StepDrain   int
	Verbose     bool
}

// Validate checks the configuration for consistency.
func (c *Config) Validate() error {
	var errs []error
	if c.Broker == "" {
		errs = append(errs, errors.New("broker must be set"))
	}
	if c.Vehicles == "" && c.Count <= 0 {
		errs = append(errs, errors.New("either vehicles or count must be set"))
	}
	if c.DropRate < 0 || c.DropRate > 1 {
		errs = append(errs, fmt.Errorf("drop rate %v outside [0,1]", c.DropRate))
	}
	if c.FailRate < 0 || c.FailRate > 1 {
		errs = append(errs, fmt.Errorf("fail rate %v outside [0,1]", c.FailRate))
	}
	if c.EnergyLevel < 0 || c.EnergyLevel > 100 {
		errs = append(errs, fmt.Errorf("energy level %d outside [0,100]", c.EnergyLevel))
	}
	if c.StepDrain < 0 {
		errs = append(errs, errors.New("step drain must not be negative"))
	}
	return errors.Join(errs...)
}

// Names returns the simulated vehicle names, either the explicit list or
// generated ones.
func (c *Config) Names() []string {
	if c.Vehicles != "" {
		var out []string
		for _, n := range strings.Split(c.Vehicles, ",") {
			if n = strings.TrimSpace(n); n != "" {
				out = append(out, n)
			}
		}
		return out
	}
	return GenerateNames(c.Count)
}
