package ttlset

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time { return c.t }

func TestEntriesExpire(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1000, 0)}
	s := NewWithClock(5*time.Second, clock.now)

	s.Add("42")
	assert.True(t, s.Has("42"))
	assert.Equal(t, 1, s.Len())

	clock.t = clock.t.Add(4 * time.Second)
	assert.True(t, s.Has("42"))

	clock.t = clock.t.Add(time.Second)
	assert.False(t, s.Has("42"))
	assert.Zero(t, s.Len())
}

func TestAddRefreshesDeadline(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1000, 0)}
	s := NewWithClock(5*time.Second, clock.now)

	s.Add("42")
	clock.t = clock.t.Add(3 * time.Second)
	s.Add("42")
	clock.t = clock.t.Add(3 * time.Second)
	assert.True(t, s.Has("42"))
}

func TestRetain(t *testing.T) {
	s := New(time.Minute)
	s.Add("1")
	s.Add("2")
	s.Add("3")

	removed := s.Retain(func(id string) bool { return id != "2" })
	assert.Equal(t, 1, removed)
	assert.ElementsMatch(t, []string{"1", "3"}, s.IDs())

	s.Clear()
	assert.Zero(t, s.Len())
}
