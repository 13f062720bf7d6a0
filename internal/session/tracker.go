package session

import (
	"context"
	"sync"
)

// Tracker counts consecutive low-confidence replies per conversation.
//
// Observe applies one NLU outcome for the session: a fallback increments the
// count, a recognized intent resets it to zero. When the incremented count
// reaches exactly threshold, the count is reset and escalate is reported; the
// threshold check and the reset are a single atomic step per session, so two
// in-flight observations of the same conversation can never both trigger.
type Tracker interface {
	Observe(ctx context.Context, sessionID string, fallback bool, threshold int) (count int, escalate bool, err error)
}

// MemoryTracker keeps the per-session counters in process memory. State is
// lost on restart and never evicted; deployments that need bounded state use
// the redis tracker instead.
type MemoryTracker struct {
	mu     sync.Mutex
	counts map[string]int
}

// NewMemoryTracker returns an empty registry.
func NewMemoryTracker() *MemoryTracker {
	return &MemoryTracker{counts: make(map[string]int)}
}

// Observe implements Tracker.
func (t *MemoryTracker) Observe(_ context.Context, sessionID string, fallback bool, threshold int) (int, bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !fallback {
		t.counts[sessionID] = 0
		return 0, false, nil
	}

	count := t.counts[sessionID] + 1
	if threshold > 0 && count >= threshold {
		t.counts[sessionID] = 0
		return count, true, nil
	}
	t.counts[sessionID] = count
	return count, false, nil
}

// Len reports how many sessions currently hold state.
func (t *MemoryTracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.counts)
}
