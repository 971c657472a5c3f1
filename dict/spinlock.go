package dict

import (
	"runtime"
	"sync/atomic"
)

// spinlock is a single short-critical-section lock (spec §4.B
// "thread-safe under a single spinlock held for the duration of the
// call"; §5 "Blocking on a spinlock (dictionary) is the only form of
// waiting"). Go's runtime parks goroutines on contention anyway, so a
// true busy-spin has no real advantage over sync.Mutex at OS-thread
// granularity — but the spec names a spinlock explicitly and every
// dictionary critical section here is short and bounded (insert,
// locate, remove over a slice and a map), matching the "nested
// acquisition is forbidden" / "short, bounded-time" contract a spin
// lock is meant for, so the implementation follows the name literally
// with a CAS loop over sync.Mutex.
type spinlock struct {
	state atomic.Bool
}

func (s *spinlock) Lock() {
	for !s.state.CompareAndSwap(false, true) {
		runtime.Gosched()
	}
}

func (s *spinlock) Unlock() {
	s.state.Store(false)
}
