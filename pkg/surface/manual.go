package surface

import (
	"sync"
	"time"
)

// Manual is a Surface whose events are pushed by the program itself. It is
// useful when the embedding application already owns an event loop.
type Manual struct {
	name string

	mu       sync.Mutex
	focused  bool
	emit     func(Event)
	attached bool
}

// Ensure Manual implements Surface
var _ Surface = (*Manual)(nil)

// NewManual creates a manual surface with the given initial focus state.
func NewManual(name string, focused bool) *Manual {
	if name == "" {
		name = "manual"
	}
	return &Manual{name: name, focused: focused}
}

// Name implements Surface.
func (m *Manual) Name() string {
	return m.name
}

// HasFocus implements Surface.
func (m *Manual) HasFocus() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.focused
}

// SetFocus changes the sampled focus state without emitting an event.
func (m *Manual) SetFocus(focused bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.focused = focused
}

// Listen implements Surface. Only one listener may be attached at a time.
func (m *Manual) Listen(emit func(Event)) (func(), error) {
	m.mu.Lock()
	if m.attached {
		m.mu.Unlock()
		return nil, errAlreadyListening(m.name)
	}
	m.emit = emit
	m.attached = true
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		m.emit = nil
		m.attached = false
		m.mu.Unlock()
	}, nil
}

// Attached reports whether a listener is currently attached.
func (m *Manual) Attached() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.attached
}

// Emit delivers an event of the given kind. Focus events also update the
// sampled focus state. Emit is a no-op when nothing is listening.
func (m *Manual) Emit(kind Kind) {
	m.mu.Lock()
	switch kind {
	case FocusGained:
		m.focused = true
	case FocusLost:
		m.focused = false
	}
	emit := m.emit
	m.mu.Unlock()

	if emit != nil {
		emit(Event{Kind: kind, Time: time.Now(), Source: m.name})
	}
}

// Activity emits an Activity event.
func (m *Manual) Activity() { m.Emit(Activity) }

// Focus emits FocusGained.
func (m *Manual) Focus() { m.Emit(FocusGained) }

// Blur emits FocusLost.
func (m *Manual) Blur() { m.Emit(FocusLost) }
