package dismissal

import (
	"context"
	"encoding/json"
	"log"
	"sort"
	"strconv"
	"strings"

	"go-jobcard-manager/internal/codec"
	"go-jobcard-manager/internal/storage"
)

// chunkKey names the i-th chunk of the synchronized tier.
func chunkKey(prefix string, i int) string {
	return prefix + strconv.Itoa(i)
}

// ChunkCapacity is how many fixed-width codes fit in one chunk of maxBytes,
// assuming chunk indexes stay below 10000.
func ChunkCapacity(prefix string, maxBytes int) int {
	keyLen := len(prefix) + 4
	// [] plus n*(code+quotes+comma) minus the last comma
	n := (maxBytes - keyLen - 1) / codec.SerializedSize
	if n < 1 {
		return 1
	}
	return n
}

// splitChunks groups ids in order so that every chunk holds at most maxCount
// ids and its key plus JSON array stays within maxBytes.
func splitChunks(ids []string, prefix string, maxBytes, maxCount int) [][]string {
	var chunks [][]string
	var cur []string
	size := 0
	for _, id := range ids {
		key := chunkKey(prefix, len(chunks))
		if cur == nil {
			size = len(key) + 2
		}
		itemSize := jsonStringSize(id)
		if len(cur) > 0 {
			itemSize++
		}
		if len(cur) > 0 && (len(cur) >= maxCount || size+itemSize > maxBytes) {
			chunks = append(chunks, cur)
			cur = nil
			size = len(chunkKey(prefix, len(chunks))) + 2
			itemSize = jsonStringSize(id)
		}
		cur = append(cur, id)
		size += itemSize
	}
	if len(cur) > 0 {
		chunks = append(chunks, cur)
	}
	return chunks
}

func jsonStringSize(s string) int {
	data, err := json.Marshal(s)
	if err != nil {
		return len(s) + 2
	}
	return len(data)
}

// chunkSet is the synchronized tier as read from storage.
type chunkSet struct {
	chunks map[int][]string
	keys   []string
}

// ordered concatenates the chunks by index, dropping duplicates.
func (c chunkSet) ordered() []string {
	idx := make([]int, 0, len(c.chunks))
	for i := range c.chunks {
		idx = append(idx, i)
	}
	sort.Ints(idx)
	var out []string
	seen := make(map[string]struct{})
	for _, i := range idx {
		for _, id := range c.chunks[i] {
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			out = append(out, id)
		}
	}
	return out
}

// readChunks loads every chunk key under prefix. Corrupt chunks are skipped.
func readChunks(ctx context.Context, area storage.Area, prefix string) (chunkSet, error) {
	all, err := area.GetAll(ctx)
	if err != nil {
		return chunkSet{}, err
	}
	set := chunkSet{chunks: make(map[int][]string)}
	for key, raw := range all {
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		i, err := strconv.Atoi(strings.TrimPrefix(key, prefix))
		if err != nil || i < 0 {
			continue
		}
		set.keys = append(set.keys, key)
		var ids []string
		if err := json.Unmarshal(raw, &ids); err != nil {
			log.Printf("⚠️ Skipping corrupt chunk %s: %v", key, err)
			continue
		}
		set.chunks[i] = ids
	}
	return set, nil
}

// writeChunks stores ids as chunks, writing only chunks that changed and
// removing keys whose index is no longer used.
func writeChunks(ctx context.Context, area storage.Area, prefix string, old chunkSet, ids []string, maxBytes, maxCount int) error {
	chunks := splitChunks(ids, prefix, maxBytes, maxCount)

	writes := make(map[string]json.RawMessage)
	for i, chunk := range chunks {
		if prev, ok := old.chunks[i]; ok && equalStrings(prev, chunk) {
			continue
		}
		data, err := storage.Encode(chunk)
		if err != nil {
			return err
		}
		writes[chunkKey(prefix, i)] = data
	}

	current := make(map[string]struct{}, len(chunks))
	for i := range chunks {
		current[chunkKey(prefix, i)] = struct{}{}
	}
	var stale []string
	for _, key := range old.keys {
		if _, ok := current[key]; !ok {
			stale = append(stale, key)
		}
	}

	if len(writes) > 0 {
		if err := area.Set(ctx, writes); err != nil {
			return err
		}
	}
	if len(stale) > 0 {
		if err := area.Remove(ctx, stale...); err != nil {
			return err
		}
	}
	return nil
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// appendUnique appends the ids of extra not already in base, keeping order.
func appendUnique(base, extra []string) []string {
	seen := make(map[string]struct{}, len(base)+len(extra))
	out := make([]string, 0, len(base)+len(extra))
	for _, id := range base {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	for _, id := range extra {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// without drops every id for which drop returns true.
func without(ids []string, drop func(string) bool) ([]string, bool) {
	out := ids[:0:0]
	for _, id := range ids {
		if drop(id) {
			continue
		}
		out = append(out, id)
	}
	return out, len(out) != len(ids)
}
