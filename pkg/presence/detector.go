// Package presence fuses raw input activity and focus transitions from a
// surface into a single debounced presence flag and notifies subscribers
// whenever the flag changes.
package presence

import (
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/Veraticus/presenced/pkg/surface"
)

type timerKind int

const (
	idleKind timerKind = iota
	focusKind
)

// notification is one confirmed transition waiting to be dispatched to the
// subscribers registered when it happened.
type notification struct {
	active bool
	subs   []subscriber
}

// Detector tracks whether a human is present at a surface.
//
// All state changes go through one transition gate. Notifications are
// queued in transition order and dispatched synchronously by the caller that
// produced them; a transition raised from inside a subscriber is delivered
// after the current pass finishes.
type Detector struct {
	opts       options
	logger     *slog.Logger
	source     surface.Surface
	stopSource func()

	mu        sync.Mutex
	active    bool
	destroyed bool
	idle      idleTimer
	focus     focusDebouncer
	subs      registry
	queue     []notification
	draining  bool
}

// New creates a detector for src. The initial presence value is the
// surface's current focus state; no notification is sent for it.
func New(src surface.Surface, opts ...Option) (*Detector, error) {
	if src == nil {
		return nil, fmt.Errorf("surface is required")
	}

	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.activityTimeout <= 0 {
		return nil, fmt.Errorf("activity timeout must be positive, got %v", o.activityTimeout)
	}
	if o.focusThrottle <= 0 {
		return nil, fmt.Errorf("blur/focus throttling must be positive, got %v", o.focusThrottle)
	}
	if o.clock == nil {
		o.clock = defaultOptions().clock
	}
	if o.logger == nil {
		o.logger = defaultOptions().logger
	}

	d := &Detector{
		opts:   o,
		logger: o.logger.With("surface", src.Name()),
		source: src,
	}
	d.idle.timeout = o.activityTimeout
	d.focus.throttle = o.focusThrottle

	d.mu.Lock()
	d.active = src.HasFocus()
	d.armIdleLocked()
	initial := d.active
	d.mu.Unlock()

	stop, err := src.Listen(d.HandleEvent)
	if err != nil {
		d.Destroy()
		return nil, fmt.Errorf("failed to listen on surface %s: %w", src.Name(), err)
	}

	d.mu.Lock()
	if d.destroyed {
		d.mu.Unlock()
		stop()
		return d, nil
	}
	d.stopSource = stop
	d.mu.Unlock()

	d.logger.Debug("presence detector started",
		"active", initial,
		"activity_timeout", o.activityTimeout,
		"blur_focus_throttling", o.focusThrottle)
	return d, nil
}

// IsActive returns the current presence flag.
func (d *Detector) IsActive() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.active
}

// AddSubscriber registers cb under id, replacing any callback already
// registered with that id. The callback only sees future transitions.
func (d *Detector) AddSubscriber(id string, cb Callback) {
	if cb == nil {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.subs.add(id, cb)
}

// RemoveSubscriber unregisters id. Removing an unknown id is a no-op.
func (d *Detector) RemoveSubscriber(id string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.subs.remove(id)
}

// HasSubscriber reports whether id is registered.
func (d *Detector) HasSubscriber(id string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.subs.has(id)
}

// SubscriberCount returns the number of registered subscribers.
func (d *Detector) SubscriberCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.subs.len()
}

// IdleDeadline returns when the idle timer will fire, if it is armed.
func (d *Detector) IdleDeadline() (time.Time, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.idle.Deadline()
}

// PendingFocus returns the focus value waiting for its settle window, if any.
func (d *Detector) PendingFocus() (bool, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.focus.Pending()
}

// HandleEvent routes a raw surface event to the idle timer or the focus
// debouncer.
func (d *Detector) HandleEvent(ev surface.Event) {
	switch ev.Kind {
	case surface.Activity:
		d.Activity()
	case surface.FocusGained:
		d.FocusGained()
	case surface.FocusLost:
		d.FocusLost()
	default:
		d.logger.Debug("ignoring unknown surface event", "kind", int(ev.Kind))
	}
}

// Activity records qualifying input. It re-arms the idle timer and, if the
// surface was considered absent, flips presence back on immediately.
func (d *Detector) Activity() {
	d.mu.Lock()
	if d.destroyed {
		d.mu.Unlock()
		return
	}
	d.armIdleLocked()
	if !d.active {
		d.requestLocked(true, "activity")
	}
	d.mu.Unlock()

	d.drain()
}

// FocusGained schedules presence to become true once focus has settled.
func (d *Detector) FocusGained() {
	d.setFocus(true)
}

// FocusLost schedules presence to become false once focus has settled.
func (d *Detector) FocusLost() {
	d.setFocus(false)
}

// Destroy cancels both timers and detaches from the surface. No
// notification starts after Destroy returns. A callback another goroutine
// had already entered when Destroy was called still runs to completion.
// Calling it again is a no-op.
func (d *Detector) Destroy() {
	d.mu.Lock()
	if d.destroyed {
		d.mu.Unlock()
		return
	}
	d.destroyed = true
	d.idle.cancel()
	d.focus.take()
	d.queue = nil
	stop := d.stopSource
	d.stopSource = nil
	d.mu.Unlock()

	if stop != nil {
		stop()
	}
	d.logger.Debug("presence detector destroyed")
}

// Close implements io.Closer.
func (d *Detector) Close() error {
	d.Destroy()
	return nil
}

func (d *Detector) setFocus(value bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.destroyed {
		return
	}
	d.focus.request(value)
	d.focus.arm(d.opts.clock, d.focus.throttle, d.onFocusSettled)
}

func (d *Detector) armIdleLocked() {
	d.idle.arm(d.opts.clock, d.idle.timeout, d.onIdleExpired)
}

func (d *Detector) onIdleExpired(gen uint64) {
	d.expire(idleKind, gen)
}

func (d *Detector) onFocusSettled(gen uint64) {
	d.expire(focusKind, gen)
}

// expire applies whichever timers are due. The idle expiry is always
// applied before the focus settle, regardless of which timer fired first.
func (d *Detector) expire(which timerKind, gen uint64) {
	d.mu.Lock()
	if d.destroyed {
		d.mu.Unlock()
		return
	}
	now := d.opts.clock.Now()
	if d.idle.due(gen, which == idleKind, now) {
		d.idle.cancel()
		d.requestLocked(false, "idle")
	}
	if d.focus.due(gen, which == focusKind, now) {
		focused := d.focus.take()
		if focused && !d.idle.armed {
			// An idle expiry while already absent leaves no timer behind.
			d.armIdleLocked()
		}
		d.requestLocked(focused, "focus")
	}
	d.mu.Unlock()

	d.drain()
}

// requestLocked is the only place the presence flag changes.
func (d *Detector) requestLocked(candidate bool, cause string) {
	if candidate == d.active {
		return
	}
	d.active = candidate
	d.queue = append(d.queue, notification{active: candidate, subs: d.subs.snapshot()})
	d.logger.Info("presence changed", "active", candidate, "cause", cause)
}

// drain dispatches queued notifications in order. Only one caller drains at
// a time; anyone else who enqueues while a pass is running returns at once
// and leaves delivery to the active drainer.
func (d *Detector) drain() {
	d.mu.Lock()
	if d.draining {
		d.mu.Unlock()
		return
	}
	d.draining = true
	d.mu.Unlock()

	finished := false
	defer func() {
		if !finished {
			d.mu.Lock()
			d.draining = false
			d.mu.Unlock()
		}
	}()

	for {
		d.mu.Lock()
		if d.destroyed || len(d.queue) == 0 {
			d.queue = nil
			d.draining = false
			finished = true
			d.mu.Unlock()
			return
		}
		n := d.queue[0]
		d.queue = d.queue[1:]
		d.mu.Unlock()

		d.dispatch(n)
	}
}

// dispatch delivers n to each subscriber in order. The destroyed check
// under d.mu is the commit point for each callback.
func (d *Detector) dispatch(n notification) {
	for _, sub := range n.subs {
		if !d.commit() {
			return
		}

		if d.opts.isolate {
			d.safeCall(sub, n.active)
		} else {
			sub.callback(n.active)
		}
	}
}

func (d *Detector) commit() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return !d.destroyed
}

// safeCall invokes a subscriber and recovers from any panic.
func (d *Detector) safeCall(sub subscriber, active bool) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("presence subscriber panicked",
				"subscriber", sub.id,
				"active", active,
				"panic", r,
				"stack", string(debug.Stack()))
		}
	}()
	sub.callback(active)
}
