package monitor

import (
	"log/slog"
	"sync"
	"time"

	"github.com/Veraticus/presenced/pkg/interfaces"
	"github.com/Veraticus/presenced/pkg/logging"
)

// OutputMonitor watches the wrapped program's output for screen events and
// fans them out to registered handlers.
type OutputMonitor struct {
	logger *slog.Logger

	mu             sync.Mutex
	lastOutputTime time.Time
	focusRequested bool
	handlers       []interfaces.ScreenEventHandler

	sequenceDetector interfaces.TerminalSequenceDetector
}

// Ensure OutputMonitor implements DataHandler and ScreenEventHandler
var (
	_ interfaces.DataHandler        = (*OutputMonitor)(nil)
	_ interfaces.ScreenEventHandler = (*OutputMonitor)(nil)
)

// NewOutputMonitor creates a new output monitor
func NewOutputMonitor(logger *slog.Logger) *OutputMonitor {
	if logger == nil {
		logger = logging.Discard()
	}
	return &OutputMonitor{
		logger:           logger,
		lastOutputTime:   time.Now(),
		sequenceDetector: NewTerminalSequenceDetector(),
	}
}

// AddScreenEventHandler registers a handler for screen events
func (om *OutputMonitor) AddScreenEventHandler(handler interfaces.ScreenEventHandler) {
	om.mu.Lock()
	defer om.mu.Unlock()
	om.handlers = append(om.handlers, handler)
}

// HandleData processes raw output data
func (om *OutputMonitor) HandleData(data []byte) {
	om.mu.Lock()
	om.lastOutputTime = time.Now()
	om.mu.Unlock()

	om.sequenceDetector.DetectSequences(data, om)
}

// GetLastOutputTime returns the last time output was received
func (om *OutputMonitor) GetLastOutputTime() time.Time {
	om.mu.Lock()
	defer om.mu.Unlock()
	return om.lastOutputTime
}

// FocusRequested reports whether the wrapped program last asked for focus
// reports.
func (om *OutputMonitor) FocusRequested() bool {
	om.mu.Lock()
	defer om.mu.Unlock()
	return om.focusRequested
}

// HandleScreenClear implements ScreenEventHandler
func (om *OutputMonitor) HandleScreenClear() {
	for _, h := range om.snapshot() {
		h.HandleScreenClear()
	}
}

// HandleFocusMode implements ScreenEventHandler
func (om *OutputMonitor) HandleFocusMode(enabled bool) {
	om.mu.Lock()
	changed := om.focusRequested != enabled
	om.focusRequested = enabled
	om.mu.Unlock()

	if !changed {
		return
	}
	om.logger.Debug("wrapped program changed focus reporting", "enabled", enabled)
	for _, h := range om.snapshot() {
		h.HandleFocusMode(enabled)
	}
}

func (om *OutputMonitor) snapshot() []interfaces.ScreenEventHandler {
	om.mu.Lock()
	defer om.mu.Unlock()
	return append([]interfaces.ScreenEventHandler(nil), om.handlers...)
}
