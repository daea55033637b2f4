package status

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/Veraticus/presenced/pkg/clock"
)

func TestReporter(t *testing.T) {
	clk := clock.NewMock(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	logs := &bytes.Buffer{}
	logger := slog.New(slog.NewTextHandler(logs, nil))
	indicator := NewIndicator(&bytes.Buffer{}, true, nil, clk)
	reporter := NewReporter(indicator, logger, clk)

	clk.Add(30 * time.Second)
	reporter.Report(false)
	if indicator.Present() {
		t.Errorf("expected indicator to show away")
	}
	if !strings.Contains(logs.String(), "user away") || !strings.Contains(logs.String(), "present_for=30s") {
		t.Errorf("unexpected log output %q", logs.String())
	}

	logs.Reset()
	clk.Add(5 * time.Second)
	reporter.Report(true)
	if !indicator.Present() {
		t.Errorf("expected indicator to show present")
	}
	if !strings.Contains(logs.String(), "user present") || !strings.Contains(logs.String(), "away_for=5s") {
		t.Errorf("unexpected log output %q", logs.String())
	}

	if reporter.Transitions() != 2 {
		t.Errorf("expected 2 transitions but got %d", reporter.Transitions())
	}
}

func TestReporterWithNilIndicator(t *testing.T) {
	reporter := NewReporter(nil, nil, nil)

	// Should not panic
	reporter.Report(false)
	reporter.Report(true)

	if reporter.Transitions() != 2 {
		t.Errorf("expected 2 transitions but got %d", reporter.Transitions())
	}
}
