package dismissal

import (
	"context"

	"go-jobcard-manager/internal/storage"
)

// Report summarizes the synchronized tier of one area.
type Report struct {
	Chunks   int
	IDs      int
	Corrupt  int
	MaxBytes int
}

// Inspect reads the chunk keys under prefix without loading them into a Store.
func Inspect(ctx context.Context, area storage.Area, prefix string) (Report, error) {
	if prefix == "" {
		prefix = DefaultChunkPrefix
	}
	set, err := readChunks(ctx, area, prefix)
	if err != nil {
		return Report{}, err
	}
	r := Report{
		Chunks:  len(set.keys),
		IDs:     len(set.ordered()),
		Corrupt: len(set.keys) - len(set.chunks),
	}
	raw, err := area.Get(ctx, set.keys...)
	if err != nil {
		return r, err
	}
	for key, value := range raw {
		if n := storage.ItemSize(key, value); n > r.MaxBytes {
			r.MaxBytes = n
		}
	}
	return r, nil
}
