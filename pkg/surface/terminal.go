package surface

import (
	"io"
	"sync"
	"time"
)

const esc = 0x1b

// maxPending bounds how many bytes of an unterminated escape sequence are
// held back waiting for the next read.
const maxPending = 64

// Terminal is a Surface fed with the raw bytes a user types into a terminal
// running with focus reporting (DECSET 1004) enabled. Focus reports
// (CSI I and CSI O) become focus events; keystrokes and mouse reports are
// activity.
type Terminal struct {
	name string

	mu          sync.Mutex
	focused     bool
	passthrough bool
	pending     []byte
	forwarded   []byte
	emit        func(Event)
	reports     int
}

// Ensure Terminal implements Surface
var _ Surface = (*Terminal)(nil)

// NewTerminal creates a terminal surface. A terminal cannot be asked whether
// it has focus, so assumeFocused seeds the state until the first report.
func NewTerminal(name string, assumeFocused bool) *Terminal {
	if name == "" {
		name = "terminal"
	}
	return &Terminal{name: name, focused: assumeFocused}
}

// Name implements Surface.
func (t *Terminal) Name() string {
	return t.name
}

// HasFocus implements Surface.
func (t *Terminal) HasFocus() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.focused
}

// Listen implements Surface.
func (t *Terminal) Listen(emit func(Event)) (func(), error) {
	t.mu.Lock()
	if t.emit != nil {
		t.mu.Unlock()
		return nil, errAlreadyListening(t.name)
	}
	t.emit = emit
	t.mu.Unlock()

	return func() {
		t.mu.Lock()
		t.emit = nil
		t.mu.Unlock()
	}, nil
}

// SetFocusPassthrough controls whether focus reports are forwarded by Feed.
// They are stripped by default, since a program that never asked for them
// would read them as stray input.
func (t *Terminal) SetFocusPassthrough(on bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.passthrough = on
}

// FocusReports returns how many focus reports have been parsed so far.
func (t *Terminal) FocusReports() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.reports
}

// Feed parses input bytes, emits the resulting events in arrival order and
// returns the bytes that should be forwarded to the program reading the
// terminal. An escape sequence split across calls is held back until it is
// complete. A lone ESC ending a read is forwarded at once as the Escape key;
// if the next read continues it into a sequence, only the rest of that
// sequence is forwarded.
func (t *Terminal) Feed(data []byte) []byte {
	t.mu.Lock()

	skip := len(t.forwarded)
	buf := make([]byte, 0, skip+len(t.pending)+len(data))
	buf = append(buf, t.forwarded...)
	buf = append(buf, t.pending...)
	buf = append(buf, data...)
	t.forwarded = nil
	t.pending = nil

	out := make([]byte, 0, len(buf))
	var kinds []Kind
	activity := false
	flush := func() {
		if activity {
			kinds = append(kinds, Activity)
			activity = false
		}
	}

	for i := 0; i < len(buf); {
		if buf[i] != esc {
			activity = true
			out = append(out, buf[i])
			i++
			continue
		}

		continued := i == 0 && skip > 0
		n, kind, complete := scanEscape(buf[i:])
		lone := complete && n == 1 && i+n == len(buf)
		if continued && (!complete || lone) {
			t.forwarded = append([]byte(nil), buf[:skip]...)
			t.pending = append([]byte(nil), buf[skip:]...)
			break
		}
		if !complete {
			t.pending = append([]byte(nil), buf[i:]...)
			break
		}
		if lone {
			t.forwarded = []byte{esc}
		}
		seq := buf[i : i+n]
		if continued {
			seq = seq[skip:]
		}
		i += n

		switch kind {
		case FocusGained, FocusLost:
			flush()
			kinds = append(kinds, kind)
			t.focused = kind == FocusGained
			t.reports++
			if t.passthrough {
				out = append(out, seq...)
			}
		default:
			activity = true
			out = append(out, seq...)
		}
	}
	flush()

	emit := t.emit
	t.mu.Unlock()

	if emit != nil {
		now := time.Now()
		for _, k := range kinds {
			emit(Event{Kind: k, Time: now, Source: t.name})
		}
	}
	return out
}

// Reader wraps r so that everything read through it is passed to Feed.
func (t *Terminal) Reader(r io.Reader) io.Reader {
	return &terminalReader{term: t, src: r, buf: make([]byte, 4096)}
}

type terminalReader struct {
	term *Terminal
	src  io.Reader
	buf  []byte
	rest []byte
}

func (r *terminalReader) Read(p []byte) (int, error) {
	for len(r.rest) == 0 {
		n, err := r.src.Read(r.buf)
		if n > 0 {
			r.rest = r.term.Feed(r.buf[:n])
		}
		if err != nil {
			if len(r.rest) == 0 {
				return 0, err
			}
			break
		}
	}

	n := copy(p, r.rest)
	r.rest = r.rest[n:]
	return n, nil
}

// scanEscape measures the escape sequence at the start of b. It reports
// complete=false when b ends inside a CSI sequence.
func scanEscape(b []byte) (n int, kind Kind, complete bool) {
	if len(b) < 2 {
		// A lone ESC is the Escape key.
		return 1, Activity, true
	}
	if b[1] != '[' {
		return 2, Activity, true
	}
	if len(b) < 3 {
		return 0, Activity, false
	}

	switch b[2] {
	case 'I':
		return 3, FocusGained, true
	case 'O':
		return 3, FocusLost, true
	case 'M':
		// X10 mouse report: CSI M Cb Cx Cy
		if len(b) < 6 {
			return 0, Activity, false
		}
		return 6, Activity, true
	}

	// Generic CSI, including SGR mouse reports (CSI < b ; x ; y M/m).
	for j := 2; j < len(b); j++ {
		c := b[j]
		switch {
		case c >= 0x40 && c <= 0x7e:
			return j + 1, Activity, true
		case c >= 0x20 && c <= 0x3f:
			continue
		default:
			return j, Activity, true
		}
	}
	if len(b) >= maxPending {
		return len(b), Activity, true
	}
	return 0, Activity, false
}
