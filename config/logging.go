package config

import (
	"fmt"
	"slices"

	"github.com/kilianp07/agvkernel/core/dispatch/logging"
	"github.com/kilianp07/agvkernel/core/factory"
)

// LoggingConfig defines the log level and the decision log storage.
type LoggingConfig struct {
	// Level is one of debug, info, warn or error.
	Level string `json:"level"`
	// DecisionLog selects the decision log backend ("jsonl", "rotating" or
	// "sqlite") and its settings.
	DecisionLog factory.ModuleConfig `json:"decision_log"`
}

// SetDefaults applies sane defaults.
func (c *LoggingConfig) SetDefaults() {
	if c.Level == "" {
		c.Level = "info"
	}
	if c.DecisionLog.Type == "" {
		c.DecisionLog.Type = "jsonl"
	}
	if c.DecisionLog.Conf == nil {
		c.DecisionLog.Conf = map[string]any{}
	}
	if _, ok := c.DecisionLog.Conf["path"]; !ok {
		c.DecisionLog.Conf["path"] = "decisions.log"
	}
}

// Validate checks mandatory fields.
func (c LoggingConfig) Validate() error {
	switch c.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging: unknown level %s", c.Level)
	}
	if !slices.Contains(logging.StoreTypes(), c.DecisionLog.Type) {
		return fmt.Errorf("logging: unknown decision_log backend %s", c.DecisionLog.Type)
	}
	return nil
}
