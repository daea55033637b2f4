package testutil

import (
	"sync"
	"time"
)

// Recorder is a thread-safe presence subscriber that records every
// transition it is handed.
type Recorder struct {
	mu          sync.Mutex
	transitions []bool
	notify      chan struct{}
	panicOn     *bool
}

// NewRecorder creates a new recorder
func NewRecorder() *Recorder {
	return &Recorder{
		transitions: []bool{},
		notify:      make(chan struct{}, 1),
	}
}

// Record has the signature of a presence subscriber callback
func (r *Recorder) Record(active bool) {
	r.mu.Lock()
	r.transitions = append(r.transitions, active)
	shouldPanic := r.panicOn != nil && *r.panicOn == active
	r.mu.Unlock()

	select {
	case r.notify <- struct{}{}:
	default:
	}

	if shouldPanic {
		panic("recorder: configured panic")
	}
}

// GetTransitions returns a copy of the recorded transitions
func (r *Recorder) GetTransitions() []bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	result := make([]bool, len(r.transitions))
	copy(result, r.transitions)
	return result
}

// Last returns the most recent transition, if any
func (r *Recorder) Last() (active bool, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.transitions) == 0 {
		return false, false
	}
	return r.transitions[len(r.transitions)-1], true
}

// PanicOn makes Record panic after recording the given value
func (r *Recorder) PanicOn(active bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.panicOn = &active
}

// WaitFor blocks until at least n transitions were recorded or the timeout
// passes. It reports whether the count was reached.
func (r *Recorder) WaitFor(n int, timeout time.Duration) bool {
	deadline := time.After(timeout)
	for {
		r.mu.Lock()
		got := len(r.transitions)
		r.mu.Unlock()
		if got >= n {
			return true
		}
		select {
		case <-r.notify:
		case <-deadline:
			return false
		}
	}
}

// Clear resets the mock state
func (r *Recorder) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.transitions = []bool{}
	r.panicOn = nil
}

// MockFocusSource is a settable HasFocus implementation
type MockFocusSource struct {
	mu      sync.Mutex
	focused bool
	calls   int
}

// NewMockFocusSource creates a new mock focus source
func NewMockFocusSource(focused bool) *MockFocusSource {
	return &MockFocusSource{focused: focused}
}

// HasFocus returns the configured focus state
func (m *MockFocusSource) HasFocus() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	return m.focused
}

// SetFocus sets the focus state
func (m *MockFocusSource) SetFocus(focused bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.focused = focused
}

// GetCallCount returns how many times HasFocus was called
func (m *MockFocusSource) GetCallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}
