package backend

import (
	"sync/atomic"
	"time"
)

// refreshInterval is how often an event thread reloads its private
// Tunables snapshot from the shared source, mirroring the source's 3s
// periodic clock event. Grounded on this tree's coarsetime package: a
// ticker goroutine stores into an atomic.Value so the hot dequeue path
// never calls time.Now() to decide whether a refresh is due.
const refreshInterval = 3 * time.Second

// tunablesSource is anything a Thread can poll for the latest shared
// configuration; any plain func returning Tunables will do.
type tunablesSource func() Tunables

// tunablesSnapshot holds the most recently refreshed Tunables for lock-free
// reads from the event thread's own goroutine.
type tunablesSnapshot struct {
	v atomic.Value // Tunables
}

func newTunablesSnapshot(initial Tunables) *tunablesSnapshot {
	s := &tunablesSnapshot{}
	s.v.Store(initial)
	return s
}

func (s *tunablesSnapshot) load() Tunables {
	return s.v.Load().(Tunables)
}

func (s *tunablesSnapshot) store(t Tunables) {
	s.v.Store(t)
}
