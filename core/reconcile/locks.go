package reconcile

import "sync"

// targetLocks serializes runs per target. Cross-target runs share nothing
// mutable besides the store, so only same-target runs are serialized.
type targetLocks struct {
	mu    sync.Mutex
	locks map[uint]*sync.Mutex
}

func newTargetLocks() *targetLocks {
	return &targetLocks{locks: make(map[uint]*sync.Mutex)}
}

// acquire locks the given target and returns the matching unlock func.
func (t *targetLocks) acquire(targetID uint) func() {
	t.mu.Lock()
	l, ok := t.locks[targetID]
	if !ok {
		l = &sync.Mutex{}
		t.locks[targetID] = l
	}
	t.mu.Unlock()

	l.Lock()
	return l.Unlock
}
