package metrics_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/agvkernel/core/factory"
	metrics "github.com/kilianp07/agvkernel/core/metrics"
	_ "github.com/kilianp07/agvkernel/infra/metrics"
)

func TestNewMetricsSink_Defaults(t *testing.T) {
	s, err := metrics.NewMetricsSink(nil)
	require.NoError(t, err)
	assert.IsType(t, metrics.NopSink{}, s)

	s, err = metrics.NewMetricsSink([]factory.ModuleConfig{{Type: "nop"}, {Type: "nop"}})
	require.NoError(t, err)
	assert.IsType(t, metrics.NopSink{}, s)
}

func TestNewMetricsSink_Single(t *testing.T) {
	s, err := metrics.NewMetricsSink([]factory.ModuleConfig{{Type: "nop"}, {Type: "prometheus"}})
	require.NoError(t, err)
	_, ok := s.(metrics.OrderStateRecorder)
	assert.True(t, ok, "prometheus sink records order transitions")
	_, multi := s.(*metrics.MultiSink)
	assert.False(t, multi)
}

func TestNewMetricsSink_Multi(t *testing.T) {
	s, err := metrics.NewMetricsSink([]factory.ModuleConfig{{Type: "prometheus"}, {Type: "prometheus"}})
	require.NoError(t, err)
	m, ok := s.(*metrics.MultiSink)
	require.True(t, ok, "got %T", s)
	assert.Len(t, m.Sinks, 2)
}

func TestNewMetricsSink_Unknown(t *testing.T) {
	_, err := metrics.NewMetricsSink([]factory.ModuleConfig{{Type: "nop"}, {Type: "missing"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "metrics sink 1 (missing)")
}

func TestSinkTypes_Builtins(t *testing.T) {
	types := metrics.SinkTypes()
	for _, want := range []string{"influx", "nop", "prometheus"} {
		assert.Contains(t, types, want)
	}
}

func TestConfigValidate(t *testing.T) {
	require.NoError(t, metrics.Config{PrometheusPort: "9100", Sinks: []factory.ModuleConfig{{Type: "nop"}}}.Validate())
	require.NoError(t, metrics.Config{}.Validate())

	err := metrics.Config{PrometheusPort: "http", Sinks: []factory.ModuleConfig{{}}}.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid prometheus port")
	assert.Contains(t, err.Error(), "sink 0 has no type")
	assert.Error(t, metrics.Config{PrometheusPort: "70000"}.Validate())
}
