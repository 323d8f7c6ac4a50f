package dismissal

import (
	"context"
	"encoding/json"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-jobcard-manager/internal/storage"
)

func TestInspectReportsChunks(t *testing.T) {
	ctx := context.Background()
	s, _, remote := newTestStore(t, Options{ChunkBytes: 64})
	for i := 0; i < 12; i++ {
		s.Add(strconv.Itoa(900 + i))
	}
	s.Flush(ctx)
	require.NoError(t, remote.Set(ctx, map[string]json.RawMessage{"dismissed_99": json.RawMessage(`{`)}))

	r, err := Inspect(ctx, remote, "")
	require.NoError(t, err)
	assert.Equal(t, 12, r.IDs)
	assert.Equal(t, 1, r.Corrupt)
	assert.Greater(t, r.Chunks, 2)
	assert.LessOrEqual(t, r.MaxBytes, 64)
}

func TestInspectFileTierStaysUnderCeiling(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	local, err := storage.NewFileArea(dir, "local.json")
	require.NoError(t, err)
	remote, err := storage.NewFileArea(dir, "sync.json")
	require.NoError(t, err)

	s := NewStore(local, remote, Options{})
	defer s.Close()
	for i := 0; i < 2000; i++ {
		s.Add(strconv.Itoa(4000000000 + i*7))
	}
	s.Flush(ctx)

	reopened, err := storage.NewFileArea(dir, "sync.json")
	require.NoError(t, err)
	r, err := Inspect(ctx, reopened, DefaultChunkPrefix)
	require.NoError(t, err)
	assert.Equal(t, 2000, r.IDs)
	assert.Greater(t, r.Chunks, 1)
	assert.LessOrEqual(t, r.MaxBytes, DefaultChunkBytes)
}
