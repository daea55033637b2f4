// Package surface delivers raw presence signals (input activity and focus
// transitions) from a host environment such as a terminal, a tcell screen
// or an X11 window.
package surface

import "time"

// Kind classifies a raw event.
type Kind int

const (
	// Activity is any raw input treated as evidence of a human: pointer
	// motion, key presses, mouse buttons.
	Activity Kind = iota
	// FocusGained reports that the surface received input focus.
	FocusGained
	// FocusLost reports that the surface lost input focus.
	FocusLost
)

// String returns the kind's name.
func (k Kind) String() string {
	switch k {
	case Activity:
		return "activity"
	case FocusGained:
		return "focus-gained"
	case FocusLost:
		return "focus-lost"
	default:
		return "unknown"
	}
}

// Event is a single raw notification from a surface.
type Event struct {
	Kind   Kind
	Time   time.Time
	Source string
}

// Surface is a monitored client surface.
type Surface interface {
	// HasFocus samples whether the surface currently holds input focus.
	HasFocus() bool

	// Listen starts delivering events to emit, each exactly once and in
	// arrival order. The returned stop function detaches the listener. It
	// must not wait for a delivery in progress, since emit may be the caller.
	Listen(emit func(Event)) (stop func(), err error)

	// Name identifies the surface in logs.
	Name() string
}
