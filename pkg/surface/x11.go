package surface

import (
	"encoding/binary"
	"sync"
	"time"

	"github.com/jezek/xgb"
	"github.com/jezek/xgb/xproto"
	"github.com/pkg/errors"
)

// x11EventMask selects the events treated as presence signals. ButtonPress
// is left out because only one client may select it on a window.
const x11EventMask = xproto.EventMaskFocusChange |
	xproto.EventMaskPointerMotion |
	xproto.EventMaskKeyPress

// X11 is a Surface bound to a single top-level X11 window.
type X11 struct {
	conn   *xgb.Conn
	root   xproto.Window
	window xproto.Window

	mu     sync.Mutex
	emit   func(Event)
	closed bool
}

// Ensure X11 implements Surface
var _ Surface = (*X11)(nil)

// DialX11 connects to display (empty for $DISPLAY) and binds to window. A
// zero window selects the currently active window.
func DialX11(display string, window uint32) (*X11, error) {
	conn, err := xgb.NewConnDisplay(display)
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect to X server")
	}

	s := &X11{
		conn: conn,
		root: xproto.Setup(conn).DefaultScreen(conn).Root,
	}

	if window != 0 {
		s.window = xproto.Window(window)
		return s, nil
	}

	active, err := s.activeWindow()
	if err != nil {
		conn.Close()
		return nil, err
	}
	s.window = active
	return s, nil
}

// Name implements Surface.
func (s *X11) Name() string {
	return "x11"
}

// Window returns the monitored window id.
func (s *X11) Window() uint32 {
	return uint32(s.window)
}

// HasFocus reports whether the input focus is the monitored window or one
// of its descendants.
func (s *X11) HasFocus() bool {
	reply, err := xproto.GetInputFocus(s.conn).Reply()
	if err != nil {
		return false
	}
	return s.contains(reply.Focus)
}

// Listen selects focus, motion and key events on the window and starts the
// event loop. Stopping closes the X connection.
func (s *X11) Listen(emit func(Event)) (func(), error) {
	s.mu.Lock()
	if s.emit != nil {
		s.mu.Unlock()
		return nil, errAlreadyListening(s.Name())
	}
	if s.closed {
		s.mu.Unlock()
		return nil, errors.New("x11 connection is closed")
	}
	s.emit = emit
	s.mu.Unlock()

	err := xproto.ChangeWindowAttributesChecked(s.conn, s.window,
		xproto.CwEventMask, []uint32{x11EventMask}).Check()
	if err != nil {
		s.mu.Lock()
		s.emit = nil
		s.mu.Unlock()
		return nil, errors.Wrapf(err, "failed to select events on window 0x%x", uint32(s.window))
	}

	go s.loop()

	return s.close, nil
}

// Close releases the X connection. It is safe to call after the listener
// has been stopped, and on a surface that never listened.
func (s *X11) Close() error {
	s.close()
	return nil
}

func (s *X11) close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.emit = nil
	s.mu.Unlock()

	s.conn.Close()
}

func (s *X11) loop() {
	for {
		ev, xerr := s.conn.WaitForEvent()
		if ev == nil && xerr == nil {
			return
		}
		if xerr != nil {
			continue
		}

		kind, ok := translateX11(ev)
		if !ok {
			continue
		}

		s.mu.Lock()
		emit := s.emit
		s.mu.Unlock()
		if emit == nil {
			return
		}
		emit(Event{Kind: kind, Time: time.Now(), Source: s.Name()})
	}
}

// translateX11 classifies an X event. Focus changes caused by keyboard
// grabs or by focus moving between the window's own children are ignored.
func translateX11(ev xgb.Event) (Kind, bool) {
	switch e := ev.(type) {
	case xproto.FocusInEvent:
		if ignoredFocusChange(e.Mode, e.Detail) {
			return 0, false
		}
		return FocusGained, true
	case xproto.FocusOutEvent:
		if ignoredFocusChange(e.Mode, e.Detail) {
			return 0, false
		}
		return FocusLost, true
	case xproto.MotionNotifyEvent, xproto.KeyPressEvent:
		return Activity, true
	default:
		return 0, false
	}
}

func ignoredFocusChange(mode, detail byte) bool {
	switch mode {
	case xproto.NotifyModeGrab, xproto.NotifyModeUngrab:
		return true
	}
	switch detail {
	case xproto.NotifyDetailInferior, xproto.NotifyDetailPointer:
		return true
	}
	return false
}

// contains walks up from w and reports whether it reaches the monitored
// window before the root.
func (s *X11) contains(w xproto.Window) bool {
	for w != 0 && w != s.root {
		if w == s.window {
			return true
		}
		reply, err := xproto.QueryTree(s.conn, w).Reply()
		if err != nil {
			return false
		}
		w = reply.Parent
	}
	return false
}

func (s *X11) activeWindow() (xproto.Window, error) {
	atom, err := xproto.InternAtom(s.conn, true, uint16(len("_NET_ACTIVE_WINDOW")), "_NET_ACTIVE_WINDOW").Reply()
	if err == nil && atom.Atom != 0 {
		prop, err := xproto.GetProperty(s.conn, false, s.root, atom.Atom, xproto.AtomWindow, 0, 1).Reply()
		if err == nil && len(prop.Value) >= 4 {
			if w := xproto.Window(binary.LittleEndian.Uint32(prop.Value)); w != 0 {
				return w, nil
			}
		}
	}

	focus, err := xproto.GetInputFocus(s.conn).Reply()
	if err != nil {
		return 0, errors.Wrap(err, "failed to query input focus")
	}
	if focus.Focus == 0 || focus.Focus == s.root {
		return 0, errors.New("no active window found")
	}
	return s.topLevel(focus.Focus), nil
}

func (s *X11) topLevel(w xproto.Window) xproto.Window {
	for {
		reply, err := xproto.QueryTree(s.conn, w).Reply()
		if err != nil || reply.Parent == s.root || reply.Parent == 0 {
			return w
		}
		w = reply.Parent
	}
}
