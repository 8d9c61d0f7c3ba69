package config

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/kilianp07/agvkernel/core/dispatch"
	"github.com/kilianp07/agvkernel/core/metrics"
	"github.com/kilianp07/agvkernel/infra/kafka"
	"github.com/kilianp07/agvkernel/infra/mqtt"
)

// EnvPrefix prefixes environment overrides. Nested keys are separated by a
// double underscore, e.g. AGV_DISPATCH__PARK_IDLE_VEHICLES=true.
const EnvPrefix = "AGV_"

type Config struct {
	Kernel   KernelConfig    `json:"kernel"`
	Dispatch dispatch.Config `json:"dispatch"`
	MQTT     mqtt.Config     `json:"mqtt"`
	Metrics  metrics.Config  `json:"metrics"`
	Logging  LoggingConfig   `json:"logging"`
	Plant    PlantConfig     `json:"plant"`
	Events   kafka.Config    `json:"events"`
	Status   StatusConfig    `json:"status"`
}

// Default returns the configuration used for keys absent from the file.
func Default() Config {
	cfg := Config{Dispatch: dispatch.DefaultConfig()}
	cfg.Kernel.SetDefaults()
	cfg.Logging.SetDefaults()
	cfg.Status.SetDefaults()
	return cfg
}

// Load reads the config file, applies environment overrides and validates the
// result. A .env file next to the config file is loaded first when present.
func Load(path string) (*Config, error) {
	if err := LoadDotEnv(filepath.Join(filepath.Dir(path), ".env")); err != nil {
		return nil, err
	}
	parser, err := parserFor(path)
	if err != nil {
		return nil, err
	}
	k := koanf.New(".")
	if err := k.Load(file.Provider(path), parser); err != nil {
		return nil, err
	}
	return fromKoanf(k)
}

// LoadDotEnv exports the variables of the given .env files. Missing files are
// ignored and already set variables win.
func LoadDotEnv(paths ...string) error {
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", p, err)
		}
	}
	return nil
}

func parserFor(path string) (koanf.Parser, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return yaml.Parser(), nil
	case ".json":
		return json.Parser(), nil
	default:
		return nil, fmt.Errorf("unsupported config format: %s", filepath.Ext(path))
	}
}

func fromKoanf(k *koanf.Koanf) (*Config, error) {
	// Optional environment overrides
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		s = strings.TrimPrefix(strings.ToLower(s), strings.ToLower(EnvPrefix))
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, err
	}
	cfg := Default()
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, err
	}
	cfg.Kernel.SetDefaults()
	cfg.Logging.SetDefaults()
	cfg.Status.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks every section and returns all problems joined.
func (c Config) Validate() error {
	var errs []error
	if err := c.Dispatch.Validate(); err != nil {
		errs = append(errs, err)
	}
	if err := c.Logging.Validate(); err != nil {
		errs = append(errs, err)
	}
	if err := c.Status.Validate(); err != nil {
		errs = append(errs, err)
	}
	if err := c.Kernel.Validate(); err != nil {
		errs = append(errs, err)
	}
	if err := c.Metrics.Validate(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
