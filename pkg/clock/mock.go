package clock

import (
	"sort"
	"sync"
	"time"
)

// Mock is a manually advanced Clock. Scheduled functions run synchronously
// on the goroutine that calls Add or Set, in deadline order. Timers sharing
// a deadline run in the order they were scheduled.
type Mock struct {
	mu     sync.Mutex
	now    time.Time
	seq    uint64
	timers []*mockTimer
}

type mockTimer struct {
	mock *Mock
	when time.Time
	seq  uint64
	fn   func()
}

// NewMock returns a Mock positioned at start. A zero start uses the Unix epoch.
func NewMock(start time.Time) *Mock {
	if start.IsZero() {
		start = time.Unix(0, 0).UTC()
	}
	return &Mock{now: start}
}

// Now returns the mock's current time.
func (m *Mock) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// AfterFunc schedules f to run once the mock has advanced by d.
func (m *Mock) AfterFunc(d time.Duration, f func()) Timer {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.seq++
	t := &mockTimer{
		mock: m,
		when: m.now.Add(d),
		seq:  m.seq,
		fn:   f,
	}
	m.timers = append(m.timers, t)
	return t
}

// Add advances the clock by d, running every timer that comes due.
// Timers scheduled by a running timer are honoured if they fall inside the window.
func (m *Mock) Add(d time.Duration) {
	m.Set(m.Now().Add(d))
}

// Set moves the clock to t, running every timer due at or before t.
func (m *Mock) Set(t time.Time) {
	for {
		next := m.popDue(t)
		if next == nil {
			break
		}
		next.fn()
	}

	m.mu.Lock()
	if t.After(m.now) {
		m.now = t
	}
	m.mu.Unlock()
}

// Pending returns the number of scheduled timers that have not fired.
func (m *Mock) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.timers)
}

// popDue removes and returns the earliest timer due at or before limit,
// advancing the clock to its deadline.
func (m *Mock) popDue(limit time.Time) *mockTimer {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.timers) == 0 {
		return nil
	}
	sort.SliceStable(m.timers, func(i, j int) bool {
		a, b := m.timers[i], m.timers[j]
		if a.when.Equal(b.when) {
			return a.seq < b.seq
		}
		return a.when.Before(b.when)
	})

	next := m.timers[0]
	if next.when.After(limit) {
		return nil
	}
	m.timers = m.timers[1:]
	if next.when.After(m.now) {
		m.now = next.when
	}
	return next
}

func (m *Mock) remove(t *mockTimer) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, candidate := range m.timers {
		if candidate == t {
			m.timers = append(m.timers[:i], m.timers[i+1:]...)
			return true
		}
	}
	return false
}

// Stop unschedules the timer.
func (t *mockTimer) Stop() bool {
	return t.mock.remove(t)
}
