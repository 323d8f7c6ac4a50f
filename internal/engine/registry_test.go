package engine

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRegistryEveryAndStop(t *testing.T) {
	r := NewRegistry(context.Background())
	var n atomic.Int32
	r.Every("tick", 5*time.Millisecond, func(ctx context.Context) { n.Add(1) })

	assert.Eventually(t, func() bool { return n.Load() >= 3 }, time.Second, time.Millisecond)
	assert.True(t, r.Running("tick"))

	r.Stop("tick")
	assert.False(t, r.Running("tick"))
	after := n.Load()
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, after, n.Load())
}

func TestRegistryAfterCancelledByStopAll(t *testing.T) {
	r := NewRegistry(context.Background())
	var fired atomic.Bool
	r.After("marker", 50*time.Millisecond, func(ctx context.Context) { fired.Store(true) })
	r.StopAll()
	time.Sleep(80 * time.Millisecond)
	assert.False(t, fired.Load())
}

func TestRegistryAfterFires(t *testing.T) {
	r := NewRegistry(context.Background())
	var fired atomic.Int32
	r.After("marker", time.Millisecond, func(ctx context.Context) { fired.Add(1) })
	r.After("marker", time.Millisecond, func(ctx context.Context) { fired.Add(1) })
	assert.Eventually(t, func() bool { return fired.Load() == 2 }, time.Second, time.Millisecond)
}

func TestRegistryGoReplacesTask(t *testing.T) {
	r := NewRegistry(context.Background())
	firstDone := make(chan struct{})
	r.Go("loop", func(ctx context.Context) {
		<-ctx.Done()
		close(firstDone)
	})
	r.Go("loop", func(ctx context.Context) { <-ctx.Done() })

	select {
	case <-firstDone:
	case <-time.After(time.Second):
		t.Fatal("first task was not cancelled")
	}
	assert.True(t, r.Running("loop"))
	r.StopAll()
	assert.False(t, r.Running("loop"))
}
