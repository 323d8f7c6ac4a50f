// Key/value storage areas backing the two dismissal tiers.
// Values are raw JSON so every backend stores exactly the bytes that
// count against a per-item quota.

package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrQuotaBytesPerItem is returned when key+value exceed the area's per-item limit.
var ErrQuotaBytesPerItem = errors.New("storage: item exceeds per-item byte quota")

// Area is a flat key/value namespace. Missing keys are absent from Get results.
type Area interface {
	Get(ctx context.Context, keys ...string) (map[string]json.RawMessage, error)
	GetAll(ctx context.Context) (map[string]json.RawMessage, error)
	Set(ctx context.Context, items map[string]json.RawMessage) error
	Remove(ctx context.Context, keys ...string) error
}

// ItemSize is the size an item counts against a per-item quota: the key
// plus the compact JSON encoding of the value, however the backend renders it.
func ItemSize(key string, value json.RawMessage) int {
	return len(key) + len(Compact(value))
}

// Compact strips insignificant whitespace from value. Invalid JSON is
// returned unchanged.
func Compact(value json.RawMessage) json.RawMessage {
	var buf bytes.Buffer
	if err := json.Compact(&buf, value); err != nil {
		return value
	}
	return buf.Bytes()
}

// Encode marshals v for Set.
func Encode(v any) (json.RawMessage, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode storage value: %w", err)
	}
	return data, nil
}

// GetStrings reads a string array stored under key. A missing key yields nil.
func GetStrings(ctx context.Context, a Area, key string) ([]string, error) {
	items, err := a.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	raw, ok := items[key]
	if !ok {
		return nil, nil
	}
	var out []string
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode %s: %w", key, err)
	}
	return out, nil
}

// GetString reads a scalar string. A missing key yields "".
func GetString(ctx context.Context, a Area, key string) (string, error) {
	items, err := a.Get(ctx, key)
	if err != nil {
		return "", err
	}
	raw, ok := items[key]
	if !ok {
		return "", nil
	}
	var out string
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", fmt.Errorf("decode %s: %w", key, err)
	}
	return out, nil
}

// SetValue stores a single JSON-encodable value.
func SetValue(ctx context.Context, a Area, key string, v any) error {
	data, err := Encode(v)
	if err != nil {
		return err
	}
	return a.Set(ctx, map[string]json.RawMessage{key: data})
}
