package presence

import "time"

// focusDebouncer collapses focus churn into a single trailing-edge update.
// Each new focus or blur overwrites the pending value and restarts the
// settle window.
type focusDebouncer struct {
	slot
	throttle time.Duration
	pending  bool
}

// request records the target value. The caller re-arms the slot.
func (f *focusDebouncer) request(value bool) {
	f.pending = value
}

// take returns the pending value and disarms the debouncer.
func (f *focusDebouncer) take() bool {
	v := f.pending
	f.cancel()
	f.pending = false
	return v
}

// Pending returns the value waiting to settle, if any.
func (f *focusDebouncer) Pending() (value bool, ok bool) {
	return f.pending, f.armed
}
