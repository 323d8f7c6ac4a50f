package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
)

// MemoryArea is an in-process Area. MaxItemBytes > 0 enforces a per-item quota
// the same way the synchronized browser storage does.
type MemoryArea struct {
	mu           sync.Mutex
	items        map[string]json.RawMessage
	MaxItemBytes int

	failNext int
	writes   int
}

func NewMemoryArea() *MemoryArea {
	return &MemoryArea{items: make(map[string]json.RawMessage)}
}

// FailNext makes the next n calls return an error.
func (m *MemoryArea) FailNext(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failNext = n
}

// Writes reports how many keys were written or removed so far.
func (m *MemoryArea) Writes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writes
}

func (m *MemoryArea) fail() error {
	if m.failNext > 0 {
		m.failNext--
		return fmt.Errorf("memory area: injected failure")
	}
	return nil
}

func (m *MemoryArea) Get(ctx context.Context, keys ...string) (map[string]json.RawMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail(); err != nil {
		return nil, err
	}
	out := make(map[string]json.RawMessage, len(keys))
	for _, k := range keys {
		if v, ok := m.items[k]; ok {
			out[k] = append(json.RawMessage(nil), v...)
		}
	}
	return out, nil
}

func (m *MemoryArea) GetAll(ctx context.Context) (map[string]json.RawMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail(); err != nil {
		return nil, err
	}
	out := make(map[string]json.RawMessage, len(m.items))
	for k, v := range m.items {
		out[k] = append(json.RawMessage(nil), v...)
	}
	return out, nil
}

func (m *MemoryArea) Set(ctx context.Context, items map[string]json.RawMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail(); err != nil {
		return err
	}
	if m.MaxItemBytes > 0 {
		for k, v := range items {
			if size := ItemSize(k, v); size > m.MaxItemBytes {
				return fmt.Errorf("set %s (%d bytes): %w", k, size, ErrQuotaBytesPerItem)
			}
		}
	}
	for k, v := range items {
		m.items[k] = append(json.RawMessage(nil), v...)
		m.writes++
	}
	return nil
}

func (m *MemoryArea) Remove(ctx context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail(); err != nil {
		return err
	}
	for _, k := range keys {
		if _, ok := m.items[k]; ok {
			delete(m.items, k)
			m.writes++
		}
	}
	return nil
}
