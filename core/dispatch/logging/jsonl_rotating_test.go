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

func TestRotatingJSONLStore_AppendQuery(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "decisions.jsonl")
	store, err := NewRotatingJSONLStore(path, 1, 2, 1)
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	now := time.Now()
	for i := 0; i < 10; i++ {
		require.NoError(t, store.Append(context.Background(), LogRecord{Timestamp: now, Kind: KindAssignment, Vehicle: "V1"}))
	}
	_, err = os.Stat(path)
	require.NoError(t, err)

	out, err := store.Query(context.Background(), LogQuery{Vehicle: "V1"})
	require.NoError(t, err)
	assert.Len(t, out, 10)
}

func TestRotatingJSONLStore_QueryIncludesBackups(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "decisions.jsonl")
	old := LogRecord{Timestamp: time.Unix(100, 0).UTC(), Kind: KindReroute, Vehicle: "V2"}
	b, err := json.Marshal(old)
	require.NoError(t, err)
	backup := filepath.Join(dir, "decisions-2024-05-01T08-00-00.000.jsonl")
	require.NoError(t, os.WriteFile(backup, append(b, '\n'), 0o644))

	store, err := NewRotatingJSONLStore(path, 1, 2, 1)
	require.NoError(t, err)
	defer func() { _ = store.Close() }()
	require.NoError(t, store.Append(context.Background(), LogRecord{Timestamp: time.Unix(200, 0).UTC(), Kind: KindCycle}))

	out, err := store.Query(context.Background(), LogQuery{})
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, "V2", out[0].Vehicle)
	assert.Equal(t, KindCycle, out[1].Kind)
}
