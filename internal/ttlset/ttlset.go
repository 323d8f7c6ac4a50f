// Package ttlset holds short-lived id sets: in-flight engine actions and
// ids just restored by an undo.
package ttlset

import (
	"sync"
	"time"
)

// Set is a string set whose entries expire after a fixed TTL.
type Set struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	entries map[string]time.Time
}

func New(ttl time.Duration) *Set {
	return NewWithClock(ttl, time.Now)
}

// NewWithClock lets tests drive expiry.
func NewWithClock(ttl time.Duration, now func() time.Time) *Set {
	return &Set{
		ttl:     ttl,
		now:     now,
		entries: make(map[string]time.Time),
	}
}

// Add inserts id or refreshes its deadline.
func (s *Set) Add(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[id] = s.now().Add(s.ttl)
}

// Has reports whether id is present and not expired. Expired entries are dropped.
func (s *Set) Has(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	deadline, ok := s.entries[id]
	if !ok {
		return false
	}
	if !s.now().Before(deadline) {
		delete(s.entries, id)
		return false
	}
	return true
}

func (s *Set) Remove(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, id)
}

// Retain drops every entry for which keep returns false. Returns the number removed.
func (s *Set) Retain(keep func(id string) bool) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for id := range s.entries {
		if !keep(id) {
			delete(s.entries, id)
			removed++
		}
	}
	return removed
}

// Len counts live entries.
func (s *Set) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sweep()
	return len(s.entries)
}

// IDs returns the live entries.
func (s *Set) IDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sweep()
	out := make([]string, 0, len(s.entries))
	for id := range s.entries {
		out = append(out, id)
	}
	return out
}

func (s *Set) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = make(map[string]time.Time)
}

func (s *Set) sweep() {
	now := s.now()
	for id, deadline := range s.entries {
		if !now.Before(deadline) {
			delete(s.entries, id)
		}
	}
}
