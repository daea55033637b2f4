package presence

import (
	"log/slog"
	"time"

	"github.com/Veraticus/presenced/pkg/clock"
	"github.com/Veraticus/presenced/pkg/logging"
)

const (
	// DefaultActivityTimeout is how long the surface may stay silent before
	// presence flips to absent.
	DefaultActivityTimeout = 30 * time.Second

	// DefaultBlurFocusThrottling is the settle window for focus and blur.
	DefaultBlurFocusThrottling = 250 * time.Millisecond
)

type options struct {
	clock           clock.Clock
	logger          *slog.Logger
	activityTimeout time.Duration
	focusThrottle   time.Duration
	isolate         bool
}

// Option configures a Detector.
type Option func(*options)

// WithClock replaces the wall clock, typically with a clock.Mock in tests.
func WithClock(c clock.Clock) Option {
	return func(o *options) {
		o.clock = c
	}
}

// WithLogger sets the logger used for transition and dispatch logs.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithActivityTimeout overrides DefaultActivityTimeout.
func WithActivityTimeout(d time.Duration) Option {
	return func(o *options) {
		o.activityTimeout = d
	}
}

// WithBlurFocusThrottling overrides DefaultBlurFocusThrottling.
func WithBlurFocusThrottling(d time.Duration) Option {
	return func(o *options) {
		o.focusThrottle = d
	}
}

// WithPanicIsolation makes the dispatcher recover from a panicking
// subscriber, log it, and carry on with the remaining subscribers. Without
// it a panic propagates to whoever triggered the transition.
func WithPanicIsolation() Option {
	return func(o *options) {
		o.isolate = true
	}
}

func defaultOptions() options {
	return options{
		clock:           clock.New(),
		logger:          logging.Discard(),
		activityTimeout: DefaultActivityTimeout,
		focusThrottle:   DefaultBlurFocusThrottling,
	}
}
