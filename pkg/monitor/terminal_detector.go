package monitor

import (
	"bytes"

	"github.com/Veraticus/presenced/pkg/interfaces"
)

// Common ANSI escape sequences for screen clearing
var screenClearSequences = [][]byte{
	[]byte("\033[2J"), // Clear entire screen
	[]byte("\033[3J"), // Clear entire screen and scrollback
	[]byte("\033[H"),  // Move cursor to home position (often follows clear)
	[]byte("\033[0J"), // Clear from cursor to end of screen
	[]byte("\033[1J"), // Clear from cursor to beginning of screen
	[]byte("\033c"),   // Reset terminal
}

var (
	focusModeOn  = []byte("\033[?1004h")
	focusModeOff = []byte("\033[?1004l")
)

// EnableFocusReporting returns the sequence that asks a terminal to report
// focus changes.
func EnableFocusReporting() []byte {
	return append([]byte(nil), focusModeOn...)
}

// DisableFocusReporting returns the sequence that turns focus reports off.
func DisableFocusReporting() []byte {
	return append([]byte(nil), focusModeOff...)
}

// TerminalSequenceDetector detects terminal escape sequences in output
type TerminalSequenceDetector struct {
	// Holds a trailing partial sequence between chunks
	buffer []byte
}

// NewTerminalSequenceDetector creates a new terminal sequence detector
func NewTerminalSequenceDetector() interfaces.TerminalSequenceDetector {
	return &TerminalSequenceDetector{
		buffer: make([]byte, 0, 16),
	}
}

// DetectSequences analyzes data for terminal sequences and calls appropriate handlers
func (t *TerminalSequenceDetector) DetectSequences(data []byte, handler interfaces.ScreenEventHandler) {
	if handler == nil {
		return
	}

	t.buffer = append(t.buffer, data...)

	// We only trigger once per detection batch to avoid redundant redraws
	foundClear := false
	for _, seq := range screenClearSequences {
		if bytes.Contains(t.buffer, seq) {
			foundClear = true
			break
		}
	}

	on := bytes.LastIndex(t.buffer, focusModeOn)
	off := bytes.LastIndex(t.buffer, focusModeOff)

	t.buffer = partialTail(t.buffer)

	if foundClear {
		handler.HandleScreenClear()
	}
	if on >= 0 || off >= 0 {
		handler.HandleFocusMode(on > off)
	}
}

// partialTail returns the longest suffix of buf that could still grow into
// one of the tracked sequences.
func partialTail(buf []byte) []byte {
	longest := len(focusModeOn) - 1
	if longest > len(buf) {
		longest = len(buf)
	}

	for k := longest; k > 0; k-- {
		tail := buf[len(buf)-k:]
		if isSequencePrefix(tail) {
			return append(make([]byte, 0, 16), tail...)
		}
	}
	return buf[:0]
}

func isSequencePrefix(b []byte) bool {
	if bytes.HasPrefix(focusModeOn, b) || bytes.HasPrefix(focusModeOff, b) {
		return len(b) < len(focusModeOn)
	}
	for _, seq := range screenClearSequences {
		if len(b) < len(seq) && bytes.HasPrefix(seq, b) {
			return true
		}
	}
	return false
}
