package logging

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSONLStore_SkipsInvalidLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "decisions.jsonl")
	store, err := NewJSONLStore(path)
	require.NoError(t, err)
	require.NoError(t, store.Append(context.Background(), LogRecord{Timestamp: time.Now(), Kind: KindAssignment, Order: "T1"}))

	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	require.NoError(t, err)
	_, err = f.WriteString("not json\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	require.NoError(t, store.Append(context.Background(), LogRecord{Timestamp: time.Now(), Kind: KindWithdrawal, Order: "T2"}))
	out, err := store.Query(context.Background(), LogQuery{Order: "T2"})
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, KindWithdrawal, out[0].Kind)
}

func TestLogRecord_JSON(t *testing.T) {
	rec := LogRecord{
		Timestamp: time.Unix(0, 0),
		Kind:      KindAssignment,
		Vehicle:   "V1",
		Order:     "T1",
		Costs:     &Costs{Initial: 1, Complete: 2},
	}
	data, err := json.Marshal(rec)
	require.NoError(t, err)
	var m map[string]any
	require.NoError(t, json.Unmarshal(data, &m))
	for _, k := range []string{"timestamp", "kind", "vehicle", "order", "costs"} {
		assert.Contains(t, m, k)
	}
	assert.NotContains(t, m, "reroute")
	assert.NotContains(t, m, "cycle")
}

func TestLogQuery_Matches(t *testing.T) {
	base := time.Unix(1000, 0)
	rec := LogRecord{Timestamp: base, Kind: KindReroute, Vehicle: "V1", Order: "T1"}
	cases := []struct {
		name string
		q    LogQuery
		want bool
	}{
		{"empty", LogQuery{}, true},
		{"vehicle", LogQuery{Vehicle: "V1"}, true},
		{"other vehicle", LogQuery{Vehicle: "V2"}, false},
		{"order", LogQuery{Order: "T2"}, false},
		{"before start", LogQuery{Start: base.Add(time.Second)}, false},
		{"after end", LogQuery{End: base.Add(-time.Second)}, false},
		{"kind", LogQuery{Kinds: []Kind{KindAssignment, KindReroute}}, true},
		{"other kind", LogQuery{Kinds: []Kind{KindCycle}}, false},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			assert.Equal(t, c.want, c.q.Matches(rec))
		})
	}
}

func TestJSONLStore_LimitKeepsMostRecent(t *testing.T) {
	store, err := NewJSONLStore(filepath.Join(t.TempDir(), "decisions.jsonl"))
	require.NoError(t, err)
	ctx := context.Background()
	for _, o := range []string{"T1", "T2", "T3"} {
		require.NoError(t, store.Append(ctx, LogRecord{Timestamp: time.Now(), Kind: KindAssignment, Order: o}))
	}
	out, err := store.Query(ctx, LogQuery{Limit: 2})
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, "T2", out[0].Order)
	assert.Equal(t, "T3", out[1].Order)

	require.NoError(t, store.Close())
	assert.ErrorIs(t, store.Append(ctx, LogRecord{Kind: KindCycle}), os.ErrClosed)
	out, err = store.Query(ctx, LogQuery{})
	require.NoError(t, err)
	assert.Len(t, out, 3)
}
