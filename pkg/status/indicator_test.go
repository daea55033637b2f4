package status

import (
	"bytes"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Veraticus/presenced/pkg/clock"
	"github.com/Veraticus/presenced/pkg/testutil"
)

func TestNewIndicator(t *testing.T) {
	buf := &bytes.Buffer{}
	indicator := NewIndicator(buf, true, nil, nil)

	if !indicator.Present() {
		t.Errorf("expected indicator to start present")
	}
	if indicator.writer != buf {
		t.Errorf("expected writer to be set")
	}
	if indicator.clock == nil {
		t.Errorf("expected wall clock fallback")
	}
	if buf.Len() != 0 {
		t.Errorf("expected no output before first update, got %q", buf.String())
	}
}

func TestIndicatorSetPresent(t *testing.T) {
	start := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name       string
		enabled    bool
		focus      FocusSource
		present    bool
		elapsed    time.Duration
		wantText   []string
		rejectText []string
	}{
		{
			name:       "present",
			enabled:    true,
			present:    true,
			wantText:   []string{"▶ present"},
			rejectText: []string{"away", "◉", "○"},
		},
		{
			name:     "away shows how long",
			enabled:  true,
			present:  false,
			elapsed:  42*time.Second + 300*time.Millisecond,
			wantText: []string{"Ⓩ away 42s"},
		},
		{
			name:     "focused marker",
			enabled:  true,
			focus:    testutil.NewMockFocusSource(true),
			present:  true,
			wantText: []string{"◉"},
		},
		{
			name:     "unfocused marker",
			enabled:  true,
			focus:    testutil.NewMockFocusSource(false),
			present:  false,
			wantText: []string{"○", "away 0s"},
		},
		{
			name:    "disabled indicator shows nothing",
			enabled: false,
			present: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clk := clock.NewMock(start)
			buf := &bytes.Buffer{}
			indicator := NewIndicator(buf, tt.enabled, tt.focus, clk)

			indicator.SetPresent(tt.present)
			if tt.elapsed > 0 {
				clk.Add(tt.elapsed)
				buf.Reset()
				indicator.mu.Lock()
				_ = indicator.draw()
				indicator.mu.Unlock()
			}

			output := buf.String()
			if !tt.enabled {
				if output != "" {
					t.Errorf("expected no output for disabled indicator, got %q", output)
				}
				return
			}
			if !strings.HasPrefix(output, "\0337") || !strings.HasSuffix(output, "\0338") {
				t.Errorf("expected DECSC/DECRC framing, got %q", output)
			}
			for _, want := range tt.wantText {
				if !strings.Contains(output, want) {
					t.Errorf("expected output to contain %q, got %q", want, output)
				}
			}
			for _, reject := range tt.rejectText {
				if strings.Contains(output, reject) {
					t.Errorf("expected output not to contain %q, got %q", reject, output)
				}
			}
			if indicator.Present() != tt.present {
				t.Errorf("expected Present() %v", tt.present)
			}
		})
	}
}

func TestIndicatorAwayTimerResetsOnlyOnChange(t *testing.T) {
	clk := clock.NewMock(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	buf := &bytes.Buffer{}
	indicator := NewIndicator(buf, true, nil, clk)

	indicator.SetPresent(false)
	clk.Add(10 * time.Second)
	buf.Reset()
	indicator.SetPresent(false)

	if !strings.Contains(buf.String(), "away 10s") {
		t.Errorf("repeated away should keep the original start, got %q", buf.String())
	}
}

func TestIndicatorHandleFocusMode(t *testing.T) {
	buf := &bytes.Buffer{}
	indicator := NewIndicator(buf, true, nil, nil)

	indicator.HandleFocusMode(true)
	if !strings.Contains(buf.String(), "⇄") {
		t.Errorf("expected passthrough marker, got %q", buf.String())
	}

	buf.Reset()
	indicator.HandleFocusMode(false)
	if strings.Contains(buf.String(), "⇄") {
		t.Errorf("expected passthrough marker to disappear, got %q", buf.String())
	}
}

func TestIndicatorClear(t *testing.T) {
	buf := &bytes.Buffer{}
	indicator := NewIndicator(buf, true, nil, nil)

	indicator.SetPresent(false)

	buf.Reset()
	if err := indicator.Clear(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	output := buf.String()
	if strings.Contains(output, "away") {
		t.Errorf("expected cleared output to not contain status text, got %q", output)
	}
	if !strings.Contains(output, "\033[2K") {
		t.Errorf("expected line clear in output, got %q", output)
	}
}

func TestIndicatorAutoRefresh(t *testing.T) {
	type safeBuffer struct {
		mu  sync.Mutex
		buf bytes.Buffer
	}

	sb := &safeBuffer{}
	writer := writerFunc(func(p []byte) (n int, err error) {
		sb.mu.Lock()
		defer sb.mu.Unlock()
		return sb.buf.Write(p)
	})

	indicator := NewIndicator(writer, true, nil, nil)
	indicator.SetPresent(true)

	stopChan := make(chan struct{})
	indicator.StartAutoRefresh(stopChan)

	// A screen clear triggers an immediate redraw
	indicator.HandleScreenClear()
	time.Sleep(1100 * time.Millisecond)

	close(stopChan)
	time.Sleep(100 * time.Millisecond)

	sb.mu.Lock()
	output := sb.buf.String()
	sb.mu.Unlock()

	// initial draw, the screen clear redraw, and at least one tick
	if draws := strings.Count(output, "▶ present"); draws < 3 {
		t.Errorf("expected at least 3 draws, got %d", draws)
	}
}

// writerFunc is an adapter to allow functions to implement io.Writer
type writerFunc func([]byte) (int, error)

func (f writerFunc) Write(p []byte) (int, error) {
	return f(p)
}
