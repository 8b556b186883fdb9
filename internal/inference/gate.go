// Package inference serializes access to the inference server, which accepts
// one in-flight request at a time. Every embedding and completion call
// passes through the same Gate.
package inference

import (
	"context"
	"fmt"
	"sync/atomic"

	"golang.org/x/sync/semaphore"

	"docintel/internal/domain"
)

// Gate is a size-1 work queue in front of the inference server. Callers
// queue in Acquire until the slot is free or their context ends.
type Gate struct {
	sem      *semaphore.Weighted
	inFlight atomic.Int32
	waiting  atomic.Int32
}

// NewGate creates a gate admitting exactly one caller at a time.
func NewGate() *Gate {
	return &Gate{sem: semaphore.NewWeighted(1)}
}

// Do runs fn while holding the slot.
func (g *Gate) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	g.waiting.Add(1)
	err := g.sem.Acquire(ctx, 1)
	g.waiting.Add(-1)
	if err != nil {
		if domain.IsTimeout(err) {
			return fmt.Errorf("waiting for inference slot: %w: %w", domain.ErrTimeout, err)
		}
		return fmt.Errorf("waiting for inference slot: %w", err)
	}
	g.inFlight.Add(1)
	defer func() {
		g.inFlight.Add(-1)
		g.sem.Release(1)
	}()
	return fn(ctx)
}

// InFlight returns how many calls currently hold the slot (0 or 1).
func (g *Gate) InFlight() int { return int(g.inFlight.Load()) }

// Waiting returns how many callers are queued for the slot.
func (g *Gate) Waiting() int { return int(g.waiting.Load()) }
