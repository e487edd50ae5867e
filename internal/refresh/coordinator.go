// Package refresh drives channel fetches on a timer and on demand.
package refresh

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"ticket-queue-monitor/internal/channel"
	"ticket-queue-monitor/internal/clock"
)

const (
	MinInterval     = 5 * time.Second
	MaxInterval     = 60 * time.Second
	DefaultInterval = 10 * time.Second
)

// ValidationError reports an interval outside [MinInterval, MaxInterval].
type ValidationError struct {
	Interval time.Duration
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("refresh interval %dms outside %d-%dms",
		e.Interval.Milliseconds(), MinInterval.Milliseconds(), MaxInterval.Milliseconds())
}

func validate(d time.Duration) error {
	if d < MinInterval || d > MaxInterval {
		return &ValidationError{Interval: d}
	}
	return nil
}

// Config is the refresh configuration as seen from outside.
type Config struct {
	Enabled  bool
	Interval time.Duration
}

// Result is one channel's part of a round.
type Result struct {
	Channel string
	Outcome channel.Outcome
}

// Round describes one fan-out.
type Round struct {
	Mode     channel.Mode
	At       time.Time
	Took     time.Duration
	Results  []Result
	Failures int
}

// Coordinator owns the auto-refresh configuration and fans fetches out to
// its registered channels.
type Coordinator struct {
	logger      *log.Logger
	clock       clock.Clock
	maxParallel int
	onTick      func(Round)

	// ticking is held for the length of a timer round. A loop started by a
	// quick re-enable skips ticks while the previous loop's round runs.
	ticking sync.Mutex

	mu       sync.Mutex
	fetchers []channel.Fetcher
	enabled  bool
	interval time.Duration
	ticker   *clock.Ticker
	stop     chan struct{}
}

// New creates an idle coordinator.
func New(opts ...Option) *Coordinator {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &Coordinator{
		logger:      o.Logger,
		clock:       o.Clock,
		maxParallel: o.MaxParallel,
		onTick:      o.OnTick,
		interval:    o.Interval,
	}
}

// Register adds channels to every future round.
func (c *Coordinator) Register(fetchers ...channel.Fetcher) {
	c.mu.Lock()
	c.fetchers = append(c.fetchers, fetchers...)
	c.mu.Unlock()
}

// Config returns the current configuration.
func (c *Coordinator) Config() Config {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Config{Enabled: c.enabled, Interval: c.interval}
}

// Enable arms the ticker. Every tick runs a silent round. Enabling an
// enabled coordinator is a no-op. Cancelling ctx disables it.
func (c *Coordinator) Enable(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.enabled {
		return
	}
	c.enabled = true
	c.ticker = c.clock.NewTicker(c.interval)
	c.stop = make(chan struct{})
	go c.loop(ctx, c.ticker, c.stop)
	c.logger.Printf("auto-refresh enabled every %s", c.interval)
}

// Disable stops the ticker. Fetches already running are left to finish.
func (c *Coordinator) Disable() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.enabled {
		return
	}
	c.disableLocked()
	c.logger.Printf("auto-refresh disabled")
}

func (c *Coordinator) disableLocked() {
	c.enabled = false
	c.ticker.Stop()
	close(c.stop)
	c.ticker = nil
	c.stop = nil
}

// Toggle flips the enabled state and returns the new one.
func (c *Coordinator) Toggle(ctx context.Context) bool {
	if c.Config().Enabled {
		c.Disable()
		return false
	}
	c.Enable(ctx)
	return true
}

// SetInterval changes the cadence. A running ticker is reset in place, so
// the next tick comes one new interval after the call.
func (c *Coordinator) SetInterval(d time.Duration) error {
	if err := validate(d); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.interval = d
	if c.enabled {
		c.ticker.Reset(d)
	}
	return nil
}

// RefreshAll runs a visible round now, regardless of whether auto-refresh
// is enabled, and waits for it.
func (c *Coordinator) RefreshAll(ctx context.Context) Round {
	return c.fanOut(ctx, channel.Visible)
}

func (c *Coordinator) loop(ctx context.Context, ticker *clock.Ticker, stop chan struct{}) {
	for {
		select {
		case <-stop:
			return
		case <-ctx.Done():
			c.mu.Lock()
			if c.stop == stop {
				c.disableLocked()
			}
			c.mu.Unlock()
			return
		case <-ticker.C:
			select {
			case <-stop:
				return
			default:
			}
			if !c.ticking.TryLock() {
				c.logger.Printf("auto-refresh: previous round still running, skipping tick")
				continue
			}
			round := c.fanOut(ctx, channel.Silent)
			c.ticking.Unlock()
			if round.Failures > 0 {
				c.logger.Printf("auto-refresh: %d of %d channels failed", round.Failures, len(round.Results))
			}
			if c.onTick != nil {
				c.onTick(round)
			}
		}
	}
}

func (c *Coordinator) fanOut(ctx context.Context, mode channel.Mode) Round {
	c.mu.Lock()
	fetchers := append([]channel.Fetcher(nil), c.fetchers...)
	c.mu.Unlock()

	round := Round{Mode: mode, At: c.clock.Now(), Results: make([]Result, len(fetchers))}
	start := time.Now()

	var g errgroup.Group
	if c.maxParallel > 0 {
		g.SetLimit(c.maxParallel)
	}
	for i, f := range fetchers {
		g.Go(func() error {
			defer func() {
				if r := recover(); r != nil {
					c.logger.Printf("refresh: channel %s panicked: %v", f.Name(), r)
					round.Results[i] = Result{Channel: f.Name(), Outcome: channel.Failed}
				}
			}()
			round.Results[i] = Result{Channel: f.Name(), Outcome: f.Fetch(ctx, mode)}
			return nil
		})
	}
	_ = g.Wait()

	round.Took = time.Since(start)
	for _, r := range round.Results {
		if r.Outcome == channel.Failed {
			round.Failures++
		}
	}
	return round
}
