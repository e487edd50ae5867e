package refresh

import (
	"log"
	"time"

	"ticket-queue-monitor/internal/clock"
)

type options struct {
	Logger      *log.Logger
	Clock       clock.Clock
	Interval    time.Duration
	MaxParallel int
	OnTick      func(Round)
}

// Option applies configuration to the coordinator.
type Option func(*options)

func defaultOptions() options {
	return options{Logger: log.Default(), Clock: clock.Real(), Interval: DefaultInterval}
}

// WithLogger injects a custom logger implementation.
func WithLogger(l *log.Logger) Option {
	return func(o *options) {
		o.Logger = l
	}
}

// WithClock replaces the time source that drives the ticker.
func WithClock(c clock.Clock) Option {
	return func(o *options) {
		o.Clock = c
	}
}

// WithInterval sets the initial tick interval. Out-of-range values are
// ignored in favour of DefaultInterval; use SetInterval to get an error.
func WithInterval(d time.Duration) Option {
	return func(o *options) {
		if validate(d) == nil {
			o.Interval = d
		}
	}
}

// WithMaxParallel caps how many channels fetch at once. 0 means no cap.
func WithMaxParallel(n int) Option {
	return func(o *options) {
		o.MaxParallel = n
	}
}

// WithTickObserver is called after every timer-driven round completes.
func WithTickObserver(fn func(Round)) Option {
	return func(o *options) {
		o.OnTick = fn
	}
}
