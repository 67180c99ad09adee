package ratelimit

import (
	"context"
	"math/rand"
	"sync"
	"time"
)

// Pacer inserts the inter-request delay the upstream portal's bot defense
// tolerates. Wait is called after every navigation.
type Pacer interface {
	Wait(ctx context.Context) error
}

// RandomPacer samples a delay uniformly from [minDelay, maxDelay] and makes
// sure at least that much time passed since the previous action.
type RandomPacer struct {
	minDelay   time.Duration
	maxDelay   time.Duration
	lastAction time.Time
	mu         sync.Mutex
}

func NewRandomPacer(minDelay, maxDelay time.Duration) *RandomPacer {
	if maxDelay < minDelay {
		maxDelay = minDelay
	}
	return &RandomPacer{
		minDelay: minDelay,
		maxDelay: maxDelay,
	}
}

func (p *RandomPacer) Wait(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	elapsed := time.Since(p.lastAction)
	delay := p.sampleDelay()

	if elapsed < delay {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay - elapsed):
		}
	}

	p.lastAction = time.Now()
	return nil
}

func (p *RandomPacer) sampleDelay() time.Duration {
	if p.maxDelay == p.minDelay {
		return p.minDelay
	}
	return p.minDelay + time.Duration(rand.Int63n(int64(p.maxDelay-p.minDelay)))
}

// None returns a pacer that never waits. Used by tests and dry runs.
func None() Pacer { return nopPacer{} }

type nopPacer struct{}

func (nopPacer) Wait(ctx context.Context) error { return ctx.Err() }
