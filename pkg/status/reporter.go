package status

import (
	"log/slog"
	"sync"
	"time"

	"github.com/Veraticus/presenced/pkg/clock"
	"github.com/Veraticus/presenced/pkg/logging"
)

// Reporter is a presence subscriber that logs each transition with the
// length of the state it ends, and forwards it to an Indicator.
type Reporter struct {
	indicator *Indicator
	logger    *slog.Logger
	clock     clock.Clock

	mu          sync.Mutex
	since       time.Time
	transitions int
}

// NewReporter creates a new status reporter. indicator may be nil.
func NewReporter(indicator *Indicator, logger *slog.Logger, clk clock.Clock) *Reporter {
	if logger == nil {
		logger = logging.Discard()
	}
	if clk == nil {
		clk = clock.New()
	}
	return &Reporter{
		indicator: indicator,
		logger:    logger,
		clock:     clk,
		since:     clk.Now(),
	}
}

// Report handles a presence transition.
func (r *Reporter) Report(active bool) {
	r.mu.Lock()
	now := r.clock.Now()
	lasted := now.Sub(r.since)
	r.since = now
	r.transitions++
	r.mu.Unlock()

	if active {
		r.logger.Info("user present", "away_for", lasted)
	} else {
		r.logger.Info("user away", "present_for", lasted)
	}

	if r.indicator != nil {
		r.indicator.SetPresent(active)
	}
}

// Transitions returns how many transitions have been reported.
func (r *Reporter) Transitions() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.transitions
}
