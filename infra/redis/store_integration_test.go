//go:build integration

package redis

import (
	"context"
	"fmt"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/kilianp07/agvkernel/core/vehiclestatus"
)

func startRedis(t *testing.T) string {
	t.Helper()
	ctx := context.Background()
	req := tc.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForListeningPort("6379/tcp").WithStartupTimeout(30 * time.Second),
	}
	c, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{ContainerRequest: req, Started: true})
	if err != nil {
		t.Skipf("redis container unavailable: %v", err)
	}
	t.Cleanup(func() { _ = c.Terminate(ctx) })
	host, err := c.Host(ctx)
	require.NoError(t, err)
	port, err := c.MappedPort(ctx, "6379")
	require.NoError(t, err)
	return fmt.Sprintf("%s:%s", host, port.Port())
}

func TestStore_RoundTrip(t *testing.T) {
	addr := startRedis(t)
	ctx := context.Background()
	s, err := New(ctx, Config{Addr: addr, Prefix: "test"})
	require.NoError(t, err)
	defer func() { _ = s.Close() }()

	require.NoError(t, s.RecordDecision(ctx, "V1", vehiclestatus.LastDecision{Kind: "assignment", Order: "T1"}))
	require.NoError(t, s.Set(ctx, vehiclestatus.Status{VehicleID: "V1", State: "EXECUTING", EnergyLevel: 70}))
	require.NoError(t, s.Set(ctx, vehiclestatus.Status{VehicleID: "V2", State: "IDLE"}))

	out, err := s.List(ctx, vehiclestatus.Filter{State: "EXECUTING"})
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "T1", out[0].LastDecision.Order)
	assert.Equal(t, 70, out[0].EnergyLevel)

	require.NoError(t, s.Remove(ctx, "V2"))
	_, ok, err := s.Get(ctx, "V2")
	require.NoError(t, err)
	assert.False(t, ok)

	raw := goredis.NewClient(&goredis.Options{Addr: addr})
	defer func() { _ = raw.Close() }()
	members, err := raw.SMembers(ctx, "test:vehicles").Result()
	require.NoError(t, err)
	assert.Equal(t, []string{"V1"}, members)
}
