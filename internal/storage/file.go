package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
)

// FileArea keeps the whole area as one JSON object on disk.
// Reads are served from memory; every write rewrites the file atomically.
type FileArea struct {
	mu       sync.Mutex
	filePath string
	items    map[string]json.RawMessage
}

// NewFileArea creates or loads a file-backed area.
func NewFileArea(dir, name string) (*FileArea, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create storage directory: %w", err)
	}
	area := &FileArea{
		filePath: filepath.Join(dir, name),
		items:    make(map[string]json.RawMessage),
	}
	if err := area.load(); err != nil {
		return nil, err
	}
	return area, nil
}

func (f *FileArea) Path() string {
	return f.filePath
}

func (f *FileArea) Get(ctx context.Context, keys ...string) (map[string]json.RawMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string]json.RawMessage, len(keys))
	for _, k := range keys {
		if v, ok := f.items[k]; ok {
			out[k] = v
		}
	}
	return out, nil
}

func (f *FileArea) GetAll(ctx context.Context) (map[string]json.RawMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string]json.RawMessage, len(f.items))
	for k, v := range f.items {
		out[k] = v
	}
	return out, nil
}

func (f *FileArea) Set(ctx context.Context, items map[string]json.RawMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	prev := make(map[string]json.RawMessage, len(items))
	for k, v := range items {
		if old, ok := f.items[k]; ok {
			prev[k] = old
		}
		f.items[k] = append(json.RawMessage(nil), Compact(v)...)
	}
	if err := f.save(); err != nil {
		// keep memory consistent with disk
		for k := range items {
			if old, ok := prev[k]; ok {
				f.items[k] = old
			} else {
				delete(f.items, k)
			}
		}
		return err
	}
	return nil
}

func (f *FileArea) Remove(ctx context.Context, keys ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	removed := make(map[string]json.RawMessage)
	for _, k := range keys {
		if v, ok := f.items[k]; ok {
			removed[k] = v
			delete(f.items, k)
		}
	}
	if len(removed) == 0 {
		return nil
	}
	if err := f.save(); err != nil {
		for k, v := range removed {
			f.items[k] = v
		}
		return err
	}
	return nil
}

// load reads the area from disk into memory. A missing file is an empty area.
func (f *FileArea) load() error {
	data, err := os.ReadFile(f.filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read %s: %w", f.filePath, err)
	}
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, &f.items); err != nil {
		log.Printf("⚠️ Failed to parse %s, starting empty: %v", f.filePath, err)
		f.items = make(map[string]json.RawMessage)
	}
	log.Printf("📋 Loaded %d keys from %s", len(f.items), f.filePath)
	return nil
}

// save writes the current area to disk through a temp file + rename.
// Values stay compact so a stored item is exactly the size it was checked at.
func (f *FileArea) save() error {
	data, err := json.Marshal(f.items)
	if err != nil {
		return fmt.Errorf("marshal storage area: %w", err)
	}
	tmp := f.filePath + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, f.filePath); err != nil {
		return fmt.Errorf("rename %s: %w", tmp, err)
	}
	return nil
}
