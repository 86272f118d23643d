// Package guard implements AccessGuard, the reconfiguration barrier shared
// by the Sync Core's producer and consumer entry points: a single-writer,
// many-readers lock specialized for a writer that is very rare and readers
// that must never block.
package guard

import (
	"runtime"
	"sync/atomic"
)

// AccessGuard is a reconfiguring flag plus a user counter, matching the
// protocol spec'd for the Sync Core: readers bail out rather than block
// when a reconfiguration is in flight; the writer spins until readers have
// drained.
type AccessGuard struct {
	reconfiguring int32
	users         int32
}

// Enter implements the reader-side protocol for one ring-accessing section
// (a push_audio or fill_buffer call). It returns a Ticket and ok=true if the
// section may proceed, or ok=false if the caller must bail out as a no-op
// (return 0 bytes, or emit silence) without touching the ring.
func (g *AccessGuard) Enter() (Ticket, bool) {
	if atomic.LoadInt32(&g.reconfiguring) != 0 {
		return Ticket{}, false
	}
	atomic.AddInt32(&g.users, 1)
	if atomic.LoadInt32(&g.reconfiguring) != 0 {
		// The section never touched the ring; relaxed is sufficient.
		atomic.AddInt32(&g.users, -1)
		return Ticket{}, false
	}
	return Ticket{g: g}, true
}

// Ticket represents one successfully entered ring-accessing section. Exit
// must be called exactly once per successful Enter.
type Ticket struct {
	g *AccessGuard
}

// Exit releases the section, publishing any ring writes it performed so a
// subsequent reconfiguration observes them.
func (t Ticket) Exit() {
	if t.g == nil {
		return
	}
	atomic.AddInt32(&t.g.users, -1)
}

// Reconfigure runs fn under the writer-side protocol: it sets reconfiguring,
// spins until all entered readers have exited, runs fn, then clears
// reconfiguring. fn is expected to mutate format state, resize the ring,
// and bump generation counters.
func (g *AccessGuard) Reconfigure(fn func()) {
	atomic.StoreInt32(&g.reconfiguring, 1)
	for atomic.LoadInt32(&g.users) != 0 {
		runtime.Gosched()
	}
	fn()
	atomic.StoreInt32(&g.reconfiguring, 0)
}

// Reconfiguring reports whether a reconfiguration is currently in flight.
func (g *AccessGuard) Reconfiguring() bool {
	return atomic.LoadInt32(&g.reconfiguring) != 0
}

// Users reports the current count of entered, not-yet-exited sections. It
// is intended for tests and diagnostics, not for hot-path decisions.
func (g *AccessGuard) Users() int32 {
	return atomic.LoadInt32(&g.users)
}
