package presence

import (
	"time"

	"github.com/Veraticus/presenced/pkg/clock"
)

// slot is a single-slot timer with cancel-and-rearm semantics. Every arm
// bumps the generation, so an expiry scheduled by an earlier arm can tell
// that it is stale. A slot is guarded by the owning Detector's mutex.
type slot struct {
	timer    clock.Timer
	deadline time.Time
	gen      uint64
	armed    bool
}

// arm cancels any outstanding deadline and schedules fire(gen) after d.
func (s *slot) arm(c clock.Clock, d time.Duration, fire func(gen uint64)) {
	s.cancel()
	s.gen++
	gen := s.gen
	s.deadline = c.Now().Add(d)
	s.armed = true
	s.timer = c.AfterFunc(d, func() { fire(gen) })
}

func (s *slot) cancel() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.armed = false
	s.deadline = time.Time{}
}

// due reports whether the slot must be applied at now. The expiry that
// belongs to the current arm is always due; any other slot is due once its
// deadline has passed.
func (s *slot) due(gen uint64, own bool, now time.Time) bool {
	if !s.armed {
		return false
	}
	if own && gen == s.gen {
		return true
	}
	return !now.Before(s.deadline)
}

// idleTimer drives the presence flag to false after a period without
// qualifying activity.
type idleTimer struct {
	slot
	timeout time.Duration
}

// Deadline returns the pending idle deadline, if any.
func (t *idleTimer) Deadline() (time.Time, bool) {
	return t.deadline, t.armed
}
