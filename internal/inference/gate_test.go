package inference

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docintel/internal/domain"
)

func TestGate_SerializesConcurrentCalls(t *testing.T) {
	g := NewGate()

	var current, maxSeen atomic.Int32
	var completed atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := g.Do(context.Background(), func(context.Context) error {
				n := current.Add(1)
				for {
					m := maxSeen.Load()
					if n <= m || maxSeen.CompareAndSwap(m, n) {
						break
					}
				}
				time.Sleep(5 * time.Millisecond)
				current.Add(-1)
				completed.Add(1)
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), maxSeen.Load(), "calls overlapped")
	assert.Equal(t, int32(8), completed.Load(), "queued calls must run, not be dropped")
	assert.Equal(t, 0, g.InFlight())
}

func TestGate_QueuedCallerHonoursDeadline(t *testing.T) {
	g := NewGate()
	release := make(chan struct{})
	started := make(chan struct{})

	go func() {
		_ = g.Do(context.Background(), func(context.Context) error {
			close(started)
			<-release
			return nil
		})
	}()
	<-started
	require.Equal(t, 1, g.InFlight())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	called := false
	err := g.Do(ctx, func(context.Context) error {
		called = true
		return nil
	})
	close(release)

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrTimeout))
	assert.False(t, called)
}

func TestGate_PropagatesError(t *testing.T) {
	g := NewGate()
	boom := errors.New("boom")

	err := g.Do(context.Background(), func(context.Context) error { return boom })

	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, g.InFlight())
}
