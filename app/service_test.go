package app

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/agvkernel/config"
	"github.com/kilianp07/agvkernel/core/dispatch/logging"
	"github.com/kilianp07/agvkernel/core/factory"
	"github.com/kilianp07/agvkernel/core/model"
)

const plantFile = "../infra/plantmodel/testdata/plant.yaml"

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Plant.Path = plantFile
	cfg.Dispatch.RedispatchIntervalMs = 20
	cfg.Logging.DecisionLog = factory.ModuleConfig{
		Type: "jsonl",
		Conf: map[string]any{"path": filepath.Join(t.TempDir(), "decisions.log")},
	}
	require.NoError(t, cfg.Validate())
	return &cfg
}

func TestLoadPlant(t *testing.T) {
	p, err := LoadPlant(plantFile, nil)
	require.NoError(t, err)
	assert.Len(t, p.Objects.Vehicles(), 2)
	assert.Len(t, p.Orders, 2)

	_, err = LoadPlant("", nil)
	assert.Error(t, err)
}

func TestNew_RequiresPlant(t *testing.T) {
	cfg := testConfig(t)
	cfg.Plant.Path = "missing.yaml"
	_, err := New(context.Background(), cfg, "")
	assert.Error(t, err)
}

func TestService_RunRecordsCycles(t *testing.T) {
	cfg := testConfig(t)
	svc, err := New(context.Background(), cfg, "")
	require.NoError(t, err)
	defer func() { assert.NoError(t, svc.Close()) }()

	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan error, 1)
	go func() { stopped <- svc.Run(ctx) }()

	assert.Eventually(t, func() bool {
		recs, err := svc.LogStore.Query(context.Background(), logging.LogQuery{Kinds: []logging.Kind{logging.KindCycle}})
		return err == nil && len(recs) >= 2
	}, 3*time.Second, 20*time.Millisecond)

	// T1 waits for its peripheral job, T2 for T1
	t1, err := svc.Plant.Objects.TransportOrder("T1")
	require.NoError(t, err)
	assert.Equal(t, model.OrderStateDispatchable, t1.State)
	t2, err := svc.Plant.Objects.TransportOrder("T2")
	require.NoError(t, err)
	assert.Equal(t, model.OrderStateRaw, t2.State)

	cancel()
	select {
	case err := <-stopped:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("service did not stop")
	}
}

func TestService_ApplyConfig(t *testing.T) {
	cfg := testConfig(t)
	svc, err := New(context.Background(), cfg, "")
	require.NoError(t, err)
	defer func() { assert.NoError(t, svc.Close()) }()

	updated := *cfg
	updated.Dispatch.ParkIdleVehicles = true
	svc.applyConfig(&updated)
	assert.True(t, svc.dispatch.Config().ParkIdleVehicles)
}
