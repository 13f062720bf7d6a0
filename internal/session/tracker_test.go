package session

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveCountsConsecutiveFallbacks(t *testing.T) {
	tr := NewMemoryTracker()
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		count, escalate, err := tr.Observe(ctx, "s1", true, 10)
		require.NoError(t, err)
		assert.Equal(t, i, count)
		assert.False(t, escalate)
	}
}

func TestObserveResetsOnRecognizedIntent(t *testing.T) {
	tr := NewMemoryTracker()
	ctx := context.Background()

	_, _, err := tr.Observe(ctx, "s1", true, 10)
	require.NoError(t, err)
	_, _, err = tr.Observe(ctx, "s1", true, 10)
	require.NoError(t, err)

	count, escalate, err := tr.Observe(ctx, "s1", false, 10)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
	assert.False(t, escalate)

	// The prior run is forgotten entirely.
	count, _, err = tr.Observe(ctx, "s1", true, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestObserveEscalatesAtThresholdAndResets(t *testing.T) {
	tr := NewMemoryTracker()
	ctx := context.Background()

	var escalations int
	for i := 1; i <= 4; i++ {
		count, escalate, err := tr.Observe(ctx, "s1", true, 4)
		require.NoError(t, err)
		assert.Equal(t, i, count)
		if escalate {
			escalations++
			assert.Equal(t, 4, i, "only the 4th observation may escalate")
		}
	}
	assert.Equal(t, 1, escalations)

	// A 5th consecutive fallback starts a fresh run.
	count, escalate, err := tr.Observe(ctx, "s1", true, 4)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	assert.False(t, escalate)
}

func TestObserveSessionsAreIndependent(t *testing.T) {
	tr := NewMemoryTracker()
	ctx := context.Background()

	_, _, err := tr.Observe(ctx, "a", true, 4)
	require.NoError(t, err)
	count, _, err := tr.Observe(ctx, "b", true, 4)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	assert.Equal(t, 2, tr.Len())
}

func TestObserveConcurrentSingleSession(t *testing.T) {
	tr := NewMemoryTracker()
	ctx := context.Background()

	const n = 100
	const threshold = 4

	var wg sync.WaitGroup
	escalations := make(chan struct{}, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, escalate, err := tr.Observe(ctx, "s1", true, threshold)
			assert.NoError(t, err)
			if escalate {
				escalations <- struct{}{}
			}
		}()
	}
	wg.Wait()
	close(escalations)

	var fired int
	for range escalations {
		fired++
	}
	// No lost updates: every threshold-th observation fires exactly once.
	assert.Equal(t, n/threshold, fired)
}
