package timers

import (
	"sync"
	"time"
)

// Registry holds one cancellable expiry countdown per booking. It is
// process-local and non-durable: timers do not survive a restart and are
// not shared across instances. The status guard at fire time in the
// callback, not cancellation, is what keeps a stale timer from corrupting
// a booking that already moved on.
type Registry struct {
	mu     sync.Mutex
	timers map[string]*time.Timer
}

func NewRegistry() *Registry {
	return &Registry{timers: make(map[string]*time.Timer)}
}

// Arm schedules fn to run after d, keyed by bookingID. An existing timer
// for the same booking is stopped and replaced so re-arming never leaks.
func (r *Registry) Arm(bookingID string, d time.Duration, fn func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if t, ok := r.timers[bookingID]; ok {
		t.Stop()
	}
	r.timers[bookingID] = time.AfterFunc(d, func() {
		r.forget(bookingID)
		fn()
	})
}

// Cancel stops and forgets the booking's timer. Must be called whenever a
// booking leaves pending through any path other than expiry. A timer that
// already fired is a no-op here.
func (r *Registry) Cancel(bookingID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if t, ok := r.timers[bookingID]; ok {
		t.Stop()
		delete(r.timers, bookingID)
	}
}

// Len reports how many timers are armed.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.timers)
}

func (r *Registry) forget(bookingID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.timers, bookingID)
}
