package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/agvkernel/core/dispatch"
)

const sample = `kernel:
  queue_size: 32
  dispatch_on_events: true
mqtt:
  broker: "tcp://localhost:1883"
  client_id: "kernel"
  username: "user"
  password: "pass"
  ack_timeout_ms: 2000
  qos:
    order: 1
dispatch:
  park_idle_vehicles: true
  park_idle_vehicles_delay_ms: 500
  rerouting_impossible_strategy: "PAUSE_AT_PATH_LOCK"
metrics:
  prometheus_port: "9100"
  sinks:
    - type: "nop"
logging:
  level: "debug"
  decision_log:
    type: "sqlite"
    conf:
      path: "decisions.db"
plant:
  path: "plant.yaml"
events:
  brokers: ["localhost:9092"]
  topic: "agv-events"
status:
  backend: "redis"
  redis:
    addr: "localhost:6379"
`

func writeFile(t *testing.T, dir, name, data string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))
	return path
}

//nolint:gocyclo
func TestLoad(t *testing.T) {
	path := writeFile(t, t.TempDir(), "config.yaml", sample)

	cfg, err := Load(path)
	require.NoError(t, err)

	checks := []struct {
		name string
		got  any
		want any
	}{
		{"queue_size", cfg.Kernel.QueueSize, 32},
		{"dispatch_on_events", cfg.Kernel.DispatchOnEvents, true},
		{"broker", cfg.MQTT.Broker, "tcp://localhost:1883"},
		{"client_id", cfg.MQTT.ClientID, "kernel"},
		{"ack_timeout", cfg.MQTT.AckTimeout(), 2 * time.Second},
		{"order_qos", cfg.MQTT.QoS["order"], byte(1)},
		{"park_idle_vehicles", cfg.Dispatch.ParkIdleVehicles, true},
		{"park_delay", cfg.Dispatch.ParkIdleVehiclesDelayMs, int64(500)},
		{"rerouting_strategy", cfg.Dispatch.ReroutingImpossibleStrategy, dispatch.PauseAtPathLock},
		{"prometheus_port", cfg.Metrics.PrometheusPort, "9100"},
		{"metrics_sink", len(cfg.Metrics.Sinks) == 1 && cfg.Metrics.Sinks[0].Type == "nop", true},
		{"level", cfg.Logging.Level, "debug"},
		{"decision_log", cfg.Logging.DecisionLog.Type, "sqlite"},
		{"plant", cfg.Plant.Path, "plant.yaml"},
		{"events_topic", cfg.Events.Topic, "agv-events"},
		{"status_backend", cfg.Status.Backend, "redis"},
		{"redis_addr", cfg.Status.Redis.Addr, "localhost:6379"},
	}
	for _, c := range checks {
		assert.Equal(t, c.want, c.got, c.name)
	}
	// keys absent from the file keep their defaults
	assert.Equal(t, dispatch.DefaultConfig().OrderPriorities, cfg.Dispatch.OrderPriorities)
	assert.Equal(t, dispatch.DefaultConfig().RedispatchIntervalMs, cfg.Dispatch.RedispatchIntervalMs)
}

func TestLoad_Defaults(t *testing.T) {
	path := writeFile(t, t.TempDir(), "config.json", `{"plant": {"path": "p.yaml"}}`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "jsonl", cfg.Logging.DecisionLog.Type)
	assert.Equal(t, "decisions.log", cfg.Logging.DecisionLog.Conf["path"])
	assert.Equal(t, "memory", cfg.Status.Backend)
	assert.Equal(t, 256, cfg.Kernel.QueueSize)
	assert.Equal(t, dispatch.IgnorePathLocks, cfg.Dispatch.ReroutingImpossibleStrategy)
	assert.False(t, cfg.MQTT.Enabled())
	assert.False(t, cfg.Events.Enabled())
}

func TestLoad_EnvOverrides(t *testing.T) {
	path := writeFile(t, t.TempDir(), "config.yaml", sample)
	t.Setenv("AGV_DISPATCH__PARK_IDLE_VEHICLES_DELAY_MS", "1500")
	t.Setenv("AGV_LOGGING__LEVEL", "warn")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, int64(1500), cfg.Dispatch.ParkIdleVehiclesDelayMs)
	assert.Equal(t, "warn", cfg.Logging.Level)
}

func TestLoad_DotEnv(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "config.yaml", sample)
	writeFile(t, dir, ".env", "AGV_MQTT__PASSWORD=from-dotenv\n")
	t.Cleanup(func() { _ = os.Unsetenv("AGV_MQTT__PASSWORD") })

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "from-dotenv", cfg.MQTT.Password)
}

func TestLoad_Invalid(t *testing.T) {
	dir := t.TempDir()
	_, err := Load(writeFile(t, dir, "config.toml", ""))
	assert.Error(t, err)

	_, err = Load(writeFile(t, dir, "bad.yaml", "dispatch:\n  rerouting_impossible_strategy: NOPE\nlogging:\n  level: loud\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rerouting_impossible_strategy")
	assert.Contains(t, err.Error(), "unknown level")

	_, err = Load(writeFile(t, dir, "redis.yaml", "status:\n  backend: redis\n"))
	assert.ErrorContains(t, err, "redis.addr")

	_, err = Load(writeFile(t, dir, "metrics.yaml", "metrics:\n  prometheus_port: \"metrics\"\n"))
	assert.ErrorContains(t, err, "invalid prometheus port")
}

func TestWatch_Reloads(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "config.yaml", sample)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changes := make(chan *Config, 4)
	require.NoError(t, Watch(ctx, path, func(c *Config) { changes <- c }))

	require.NoError(t, os.WriteFile(path, []byte("dispatch:\n  park_idle_vehicles_delay_ms: 42\n"), 0o644))

	// a write may surface as several events, the last one carries the content
	deadline := time.After(5 * time.Second)
	for {
		select {
		case c := <-changes:
			if c.Dispatch.ParkIdleVehiclesDelayMs == 42 {
				return
			}
		case <-deadline:
			t.Fatal("config change not observed")
		}
	}
}
