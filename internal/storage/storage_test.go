package storage

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryAreaQuota(t *testing.T) {
	ctx := context.Background()
	area := NewMemoryArea()
	area.MaxItemBytes = 16

	err := area.Set(ctx, map[string]json.RawMessage{"k": json.RawMessage(`"0123456789"`)})
	require.NoError(t, err)

	err = area.Set(ctx, map[string]json.RawMessage{"k": json.RawMessage(`"0123456789abcdef"`)})
	assert.True(t, errors.Is(err, ErrQuotaBytesPerItem))

	got, err := GetString(ctx, area, "k")
	require.NoError(t, err)
	assert.Equal(t, "0123456789", got)
}

func TestMemoryAreaFailNext(t *testing.T) {
	ctx := context.Background()
	area := NewMemoryArea()
	area.FailNext(1)

	_, err := area.GetAll(ctx)
	assert.Error(t, err)

	_, err = area.GetAll(ctx)
	assert.NoError(t, err)
}

func TestFileAreaPersists(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	area, err := NewFileArea(dir, "local.json")
	require.NoError(t, err)
	require.NoError(t, SetValue(ctx, area, "ids", []string{"a", "b"}))
	require.NoError(t, SetValue(ctx, area, "last", "b"))
	require.NoError(t, area.Remove(ctx, "last"))

	reloaded, err := NewFileArea(dir, "local.json")
	require.NoError(t, err)

	ids, err := GetStrings(ctx, reloaded, "ids")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, ids)

	last, err := GetString(ctx, reloaded, "last")
	require.NoError(t, err)
	assert.Empty(t, last)
}

func TestGetStringsMissingKey(t *testing.T) {
	ids, err := GetStrings(context.Background(), NewMemoryArea(), "nope")
	require.NoError(t, err)
	assert.Nil(t, ids)
}

func TestItemSizeIgnoresRendering(t *testing.T) {
	// postgres jsonb reads arrays back with a space after each comma
	assert.Equal(t, ItemSize("k", json.RawMessage(`["a","b"]`)), ItemSize("k", json.RawMessage(`["a", "b"]`)))
	assert.Equal(t, 10, ItemSize("k", json.RawMessage(`["a","b"]`)))
}

func TestFileAreaWritesCompactValues(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	area, err := NewFileArea(dir, "sync.json")
	require.NoError(t, err)
	require.NoError(t, area.Set(ctx, map[string]json.RawMessage{"dismissed_0": json.RawMessage(`[ "a",  "b" ]`)}))

	data, err := os.ReadFile(area.Path())
	require.NoError(t, err)
	assert.Equal(t, `{"dismissed_0":["a","b"]}`, string(data))
}
