package metrics

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/kilianp07/agvkernel/core/factory"
)

// Config selects the metrics sinks and the Prometheus endpoint.
type Config struct {
	Sinks []factory.ModuleConfig `json:"sinks" yaml:"sinks"`
	// PrometheusPort enables the /metrics endpoint when not empty.
	PrometheusPort string `json:"prometheus_port" yaml:"prometheus_port"`
}

// Validate checks the port and that every sink names a type. Whether the
// type is registered is checked when the sinks are built.
func (c Config) Validate() error {
	var errs []error
	if c.PrometheusPort != "" {
		p, err := strconv.Atoi(c.PrometheusPort)
		if err != nil || p <= 0 || p > 65535 {
			errs = append(errs, fmt.Errorf("metrics: invalid prometheus port %q", c.PrometheusPort))
		}
	}
	for i, s := range c.Sinks {
		if s.Type == "" {
			errs = append(errs, fmt.Errorf("metrics: sink %d has no type", i))
		}
	}
	return errors.Join(errs...)
}
