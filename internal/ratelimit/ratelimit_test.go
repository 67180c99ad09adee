package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRandomPacerWaitsAtLeastMin(t *testing.T) {
	p := NewRandomPacer(30*time.Millisecond, 60*time.Millisecond)

	require.NoError(t, p.Wait(context.Background())) // first call primes lastAction

	start := time.Now()
	require.NoError(t, p.Wait(context.Background()))
	assert.GreaterOrEqual(t, time.Since(start), 25*time.Millisecond)
}

func TestRandomPacerZeroDelayDoesNotBlock(t *testing.T) {
	p := NewRandomPacer(0, 0)

	start := time.Now()
	for i := 0; i < 10; i++ {
		require.NoError(t, p.Wait(context.Background()))
	}
	assert.Less(t, time.Since(start), 100*time.Millisecond)
}

func TestRandomPacerSwappedBoundsClamped(t *testing.T) {
	p := NewRandomPacer(20*time.Millisecond, 5*time.Millisecond)
	assert.Equal(t, 20*time.Millisecond, p.sampleDelay())
}

func TestRandomPacerCancelled(t *testing.T) {
	p := NewRandomPacer(5*time.Second, 5*time.Second)
	require.NoError(t, p.Wait(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := p.Wait(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestNonePacer(t *testing.T) {
	assert.NoError(t, None().Wait(context.Background()))
}
