package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	coremetrics "github.com/kilianp07/agvkernel/core/metrics"
	"github.com/kilianp07/agvkernel/core/model"
)

type lineRecorder struct {
	mu     sync.Mutex
	bodies []string
}

func (l *lineRecorder) server(t *testing.T) *httptest.Server {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		l.mu.Lock()
		l.bodies = append(l.bodies, strings.TrimSpace(string(data)))
		l.mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func lineOf(p *write.Point) string {
	return strings.TrimSpace(write.PointToLineProtocol(p, time.Nanosecond))
}

func TestInfluxSink_RecordAssignments(t *testing.T) {
	rec := &lineRecorder{}
	sink := NewInfluxSink(rec.server(t).URL, "token", "org", "bucket")
	now := time.Now()
	err := sink.RecordAssignments([]coremetrics.AssignmentEvent{{
		Vehicle: "V1", Order: "T1", OrderType: "Transport", InitialCosts: 20, CompleteCosts: 45, Time: now,
	}})
	require.NoError(t, err)

	p := write.NewPointWithMeasurement("assignment").
		AddTag("vehicle", "V1").
		AddTag("order", "T1").
		AddTag("order_type", "Transport").
		AddField("initial_costs", int64(20)).
		AddField("complete_costs", int64(45)).
		SetTime(now)
	assert.Equal(t, []string{lineOf(p)}, rec.bodies)
}

func TestInfluxSink_RecordReroute(t *testing.T) {
	rec := &lineRecorder{}
	sink := NewInfluxSink(rec.server(t).URL+"/api/v2/write", "token", "org", "bucket")
	now := time.Now()
	require.NoError(t, sink.RecordReroute(coremetrics.RerouteEvent{
		Vehicle: "V1", Order: "T1", Type: model.ReroutingForced, Strategy: false, Restricted: 2, Time: now,
	}))

	p := write.NewPointWithMeasurement("vehicle_reroute").
		AddTag("vehicle", "V1").
		AddTag("order", "T1").
		AddTag("type", "FORCED").
		AddTag("strategy", "false").
		AddField("restricted_steps", 2).
		SetTime(now)
	assert.Equal(t, []string{lineOf(p)}, rec.bodies)
}

func TestInfluxSink_RecordVehicleState(t *testing.T) {
	rec := &lineRecorder{}
	sink := NewInfluxSink(rec.server(t).URL, "token", "org", "bucket")
	now := time.Now()
	v := model.Vehicle{
		Name:            "V1",
		State:           model.VehicleStateCharging,
		ProcState:       model.ProcStateIdle,
		EnergyLevel:     42,
		CurrentPosition: "P1",
	}
	require.NoError(t, sink.RecordVehicleState(coremetrics.VehicleStateEvent{Vehicle: v, Time: now}))

	p := write.NewPointWithMeasurement("vehicle_state").
		AddTag("vehicle", "V1").
		AddTag("state", "CHARGING").
		AddTag("proc_state", "IDLE").
		AddField("energy_level", 42).
		AddField("position", "P1").
		AddField("paused", false).
		SetTime(now)
	assert.Equal(t, []string{lineOf(p)}, rec.bodies)
}

func TestInfluxSink_RecordCycleAndTransition(t *testing.T) {
	rec := &lineRecorder{}
	sink := NewInfluxSink(rec.server(t).URL, "token", "org", "bucket")
	now := time.Now()
	require.NoError(t, sink.RecordCycle(coremetrics.CycleEvent{Assignments: 2, Parked: 1, Duration: 1500 * time.Microsecond, Time: now}))
	require.NoError(t, sink.RecordOrderState(coremetrics.OrderStateEvent{
		Order: "T1", From: model.OrderStateDispatchable, To: model.OrderStateBeingProcessed, Time: now,
	}))

	cycle := write.NewPointWithMeasurement("dispatch_cycle").
		AddTag("component", "dispatcher").
		AddField("assignments", 2).
		AddField("reserved", 0).
		AddField("parked", 1).
		AddField("requeued", 0).
		AddField("duration_ms", 1.5).
		SetTime(now)
	transition := write.NewPointWithMeasurement("order_transition").
		AddTag("order", "T1").
		AddTag("from", "DISPATCHABLE").
		AddTag("to", "BEING_PROCESSED").
		AddField("count", 1).
		SetTime(now)
	assert.Equal(t, []string{lineOf(cycle), lineOf(transition)}, rec.bodies)
}

func TestNewInfluxSinkWithFallback(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			called = true
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
	}))
	defer srv.Close()

	sink := NewInfluxSinkWithFallback(srv.URL+"/api/v2/write", "tok", "org", "bucket")
	_, isInflux := sink.(*InfluxSink)
	assert.False(t, isInflux, "expected NopSink on failing health check")
	assert.True(t, called, "health endpoint not called")
}

func TestInfluxFactory(t *testing.T) {
	_, err := newInfluxFromConf(map[string]any{"url": "http://localhost:8086"})
	require.Error(t, err, "bucket is required")

	sink, err := newInfluxFromConf(map[string]any{
		"url":          "http://127.0.0.1:1",
		"bucket":       "agv",
		"health_check": false,
	})
	require.NoError(t, err)
	s, ok := sink.(*InfluxSink)
	require.True(t, ok, "got %T", sink)
	s.Close()
}
