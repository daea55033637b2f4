package surface

import (
	"sync"

	"github.com/gdamore/tcell/v2"
)

// stopToken marks the interrupt used to wake PollEvent on shutdown.
type stopToken struct{ s *Tcell }

// Tcell is a Surface backed by a tcell screen. Mouse and key events are
// activity; tcell focus events map to focus transitions.
type Tcell struct {
	screen tcell.Screen
	name   string

	mu      sync.Mutex
	focused bool
	emit    func(Event)
	hook    func(tcell.Event)
	running bool
}

// Ensure Tcell implements Surface
var _ Surface = (*Tcell)(nil)

// NewTcell wraps an initialised screen. Terminals do not report their
// initial focus, so focused seeds the state until the first focus event.
func NewTcell(screen tcell.Screen, focused bool) *Tcell {
	return &Tcell{screen: screen, name: "tcell", focused: focused}
}

// Name implements Surface.
func (s *Tcell) Name() string {
	return s.name
}

// HasFocus implements Surface.
func (s *Tcell) HasFocus() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.focused
}

// OnEvent installs a hook that sees every polled event after it has been
// translated. The hook runs on the polling goroutine.
func (s *Tcell) OnEvent(hook func(tcell.Event)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hook = hook
}

// Listen enables focus and mouse reporting and starts polling the screen.
func (s *Tcell) Listen(emit func(Event)) (func(), error) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil, errAlreadyListening(s.name)
	}
	s.emit = emit
	s.running = true
	s.mu.Unlock()

	s.screen.EnableFocus()
	s.screen.EnableMouse(tcell.MouseMotionEvents)

	token := &stopToken{s: s}
	go s.poll(token)

	return func() {
		s.mu.Lock()
		s.emit = nil
		s.mu.Unlock()
		_ = s.screen.PostEvent(tcell.NewEventInterrupt(token))
	}, nil
}

func (s *Tcell) poll(token *stopToken) {
	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	for {
		ev := s.screen.PollEvent()
		if ev == nil {
			// Screen finalised.
			return
		}
		if in, ok := ev.(*tcell.EventInterrupt); ok && in.Data() == token {
			return
		}

		kind, ok := translateTcell(ev)

		s.mu.Lock()
		if ok && kind != Activity {
			s.focused = kind == FocusGained
		}
		emit := s.emit
		hook := s.hook
		s.mu.Unlock()

		if ok && emit != nil {
			emit(Event{Kind: kind, Time: ev.When(), Source: s.name})
		}
		if hook != nil {
			hook(ev)
		}
	}
}

func translateTcell(ev tcell.Event) (Kind, bool) {
	switch tev := ev.(type) {
	case *tcell.EventFocus:
		if tev.Focused {
			return FocusGained, true
		}
		return FocusLost, true
	case *tcell.EventMouse, *tcell.EventKey:
		return Activity, true
	default:
		return 0, false
	}
}
