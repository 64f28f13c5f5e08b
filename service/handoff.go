package service

import "sync"

// handoff releases writers to the sink in version order. Versions are issued
// under the write lock, but writers leave the lock in any order; each one
// waits here for its turn before enqueueing its change event.
type handoff struct {
	mu   sync.Mutex
	cond *sync.Cond
	next uint64
}

func newHandoff(first uint64) *handoff {
	h := &handoff{next: first}
	h.cond = sync.NewCond(&h.mu)
	return h
}

// wait blocks until every version below v has called done.
func (h *handoff) wait(v uint64) {
	h.mu.Lock()
	for h.next != v {
		h.cond.Wait()
	}
	h.mu.Unlock()
}

// done passes the turn to v+1.
func (h *handoff) done(v uint64) {
	h.mu.Lock()
	h.next = v + 1
	h.mu.Unlock()
	h.cond.Broadcast()
}
