package status

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/Veraticus/presenced/pkg/clock"
	"github.com/Veraticus/presenced/pkg/interfaces"
)

// FocusSource reports whether the observed surface currently holds focus.
type FocusSource interface {
	HasFocus() bool
}

// Indicator draws the presence state on the last line of the terminal
type Indicator struct {
	mu      sync.Mutex
	enabled bool
	writer  io.Writer
	clock   clock.Clock
	focus   FocusSource

	present      bool
	changedAt    time.Time
	passthrough  bool
	lastActivity time.Time
	refreshChan  chan struct{}
}

// NewIndicator creates a new status indicator. focus may be nil, in which
// case no focus marker is drawn.
func NewIndicator(writer io.Writer, enabled bool, focus FocusSource, clk clock.Clock) *Indicator {
	if clk == nil {
		clk = clock.New()
	}
	return &Indicator{
		enabled:     enabled,
		writer:      writer,
		clock:       clk,
		focus:       focus,
		present:     true,
		changedAt:   clk.Now(),
		refreshChan: make(chan struct{}, 1),
	}
}

// SetPresent records a presence transition and redraws. Its signature
// matches a presence subscriber callback.
func (i *Indicator) SetPresent(present bool) {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.present != present {
		i.present = present
		i.changedAt = i.clock.Now()
	}

	// Best effort - don't fail if we can't update the display
	_ = i.draw()
}

// Present returns the last state passed to SetPresent.
func (i *Indicator) Present() bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.present
}

// draw renders the status line. Caller holds i.mu.
func (i *Indicator) draw() error {
	if !i.enabled || i.writer == nil {
		return nil
	}

	// \0337 saves the cursor (DECSC), \033[r resets the scroll region so the
	// jump to line 999 does not scroll, \0338 restores (DECRC).
	sequence := fmt.Sprintf("\0337\033[r\033[999;1H\033[2K%s\0338", i.statusText())

	if _, err := fmt.Fprint(i.writer, sequence); err != nil {
		return err
	}

	return nil
}

// statusText returns the colored status line
func (i *Indicator) statusText() string {
	var parts []string

	if i.focus != nil {
		if i.focus.HasFocus() {
			parts = append(parts, "\033[36m◉\033[0m") // cyan: focused
		} else {
			parts = append(parts, "\033[90m○\033[0m") // gray: unfocused
		}
	}

	if i.present {
		parts = append(parts, "\033[32m▶ present\033[0m")
	} else {
		away := i.clock.Now().Sub(i.changedAt).Truncate(time.Second)
		parts = append(parts, fmt.Sprintf("\033[33mⓏ away %s\033[0m", away))
	}

	if i.passthrough {
		parts = append(parts, "\033[90m⇄\033[0m")
	}

	return strings.Join(parts, " ")
}

// Clear removes the status indicator
func (i *Indicator) Clear() error {
	i.mu.Lock()
	defer i.mu.Unlock()

	if !i.enabled || i.writer == nil {
		return nil
	}

	if _, err := fmt.Fprint(i.writer, "\0337\033[999;1H\033[2K\0338"); err != nil {
		return err
	}

	return nil
}

// StartAutoRefresh redraws periodically until stopChan is closed, then
// clears the line.
func (i *Indicator) StartAutoRefresh(stopChan <-chan struct{}) {
	go func() {
		normalInterval := time.Second
		activeInterval := 100 * time.Millisecond

		ticker := time.NewTicker(normalInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				i.mu.Lock()
				busy := i.clock.Now().Sub(i.lastActivity) < 500*time.Millisecond
				_ = i.draw()
				i.mu.Unlock()

				if busy {
					ticker.Reset(activeInterval)
				} else {
					ticker.Reset(normalInterval)
				}
			case <-i.refreshChan:
				i.mu.Lock()
				_ = i.draw()
				i.mu.Unlock()
			case <-stopChan:
				_ = i.Clear()
				return
			}
		}
	}()
}

// HandleScreenClear implements interfaces.ScreenEventHandler. The wrapped
// program wiped our line, so schedule a redraw.
func (i *Indicator) HandleScreenClear() {
	i.mu.Lock()
	i.lastActivity = i.clock.Now()
	enabled := i.enabled
	i.mu.Unlock()

	if enabled {
		select {
		case i.refreshChan <- struct{}{}:
		default:
			// refresh already pending
		}
	}
}

// HandleFocusMode implements interfaces.ScreenEventHandler. It marks
// whether focus reports are being passed through to the wrapped program.
func (i *Indicator) HandleFocusMode(enabled bool) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.passthrough = enabled
	_ = i.draw()
}

// Ensure Indicator implements ScreenEventHandler
var _ interfaces.ScreenEventHandler = (*Indicator)(nil)
