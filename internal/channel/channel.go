// Package channel keeps a de-duplicated, last-issued-wins view of one
// remote read operation.
package channel

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"ticket-queue-monitor/internal/fingerprint"
)

// Mode selects how a fetch surfaces to observers.
type Mode int

const (
	// Visible fetches show loading until the first data arrives.
	Visible Mode = iota
	// Silent fetches never toggle loading once data exists.
	Silent
)

func (m Mode) String() string {
	if m == Silent {
		return "silent"
	}
	return "visible"
}

// Outcome is what a single fetch did to the channel state.
type Outcome int

const (
	// Changed means new data replaced the old.
	Changed Outcome = iota
	// Unchanged means the payload matched the stored fingerprint.
	Unchanged
	// Failed means the read failed and the error was recorded.
	Failed
	// Stale means a newer fetch had already committed; the result was dropped.
	Stale
)

func (o Outcome) String() string {
	switch o {
	case Changed:
		return "changed"
	case Unchanged:
		return "unchanged"
	case Failed:
		return "failed"
	case Stale:
		return "stale"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// Fetcher is the entry point schedulers hold on to.
type Fetcher interface {
	Name() string
	Fetch(ctx context.Context, mode Mode) Outcome
}

// ReadFunc performs the underlying read.
type ReadFunc[T any] func(ctx context.Context) (T, error)

// ObserveFunc receives every completed fetch.
type ObserveFunc func(name string, mode Mode, outcome Outcome, took time.Duration)

// Snapshot is a copy of the channel state at one point in time.
type Snapshot[T any] struct {
	Data      T
	HasData   bool
	Loading   bool
	Err       error
	Version   uint64
	UpdatedAt time.Time
}

// Channel wraps one read operation.
type Channel[T any] struct {
	name    string
	read    ReadFunc[T]
	logger  *log.Logger
	observe ObserveFunc
	now     func() time.Time

	mu        sync.Mutex
	issued    uint64
	committed uint64
	pending   int
	loading   bool
	hasData   bool
	data      T
	err       error
	sum       fingerprint.Sum
	version   uint64
	updatedAt time.Time
	listeners []func(Snapshot[T])
}

// Option configures a Channel.
type Option func(*options)

type options struct {
	logger  *log.Logger
	observe ObserveFunc
	now     func() time.Time
}

// WithLogger sets the logger used for fingerprint failures.
func WithLogger(logger *log.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithObserver reports every completed fetch to fn.
func WithObserver(fn ObserveFunc) Option {
	return func(o *options) { o.observe = fn }
}

// WithNow overrides the time source for UpdatedAt.
func WithNow(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// New creates a channel named name around read.
func New[T any](name string, read ReadFunc[T], opts ...Option) *Channel[T] {
	o := options{logger: log.Default(), now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return &Channel[T]{
		name:    name,
		read:    read,
		logger:  o.logger,
		observe: o.observe,
		now:     o.now,
	}
}

func (c *Channel[T]) Name() string { return c.name }

// OnChange registers fn to run after every data replacement. Listeners run
// on the fetching goroutine, outside the channel lock.
func (c *Channel[T]) OnChange(fn func(Snapshot[T])) {
	c.mu.Lock()
	c.listeners = append(c.listeners, fn)
	c.mu.Unlock()
}

// Snapshot returns the current state.
func (c *Channel[T]) Snapshot() Snapshot[T] {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Channel[T]) snapshotLocked() Snapshot[T] {
	return Snapshot[T]{
		Data:      c.data,
		HasData:   c.hasData,
		Loading:   c.loading,
		Err:       c.err,
		Version:   c.version,
		UpdatedAt: c.updatedAt,
	}
}

// Fetch runs the read and commits the result unless a fetch issued later
// has already committed. It never returns the read error; that is stored
// on the channel.
func (c *Channel[T]) Fetch(ctx context.Context, mode Mode) Outcome {
	start := c.now()

	c.mu.Lock()
	c.issued++
	seq := c.issued
	firstEver := !c.hasData
	counted := mode == Visible && firstEver
	if counted {
		c.pending++
		c.loading = true
	}
	c.mu.Unlock()

	data, err := c.read(ctx)

	var (
		sum   fingerprint.Sum
		sumOK bool
	)
	if err == nil {
		var ferr error
		sum, ferr = fingerprint.Of(data)
		if ferr != nil {
			c.logger.Printf("channel %s: fingerprint: %v", c.name, ferr)
		} else {
			sumOK = true
		}
	}

	c.mu.Lock()
	if counted {
		c.pending--
	}
	if mode == Visible || firstEver {
		c.loading = c.pending > 0
	}

	var outcome Outcome
	switch {
	case seq <= c.committed:
		outcome = Stale
	case err != nil:
		c.committed = seq
		c.err = err
		outcome = Failed
	case sumOK && c.hasData && sum == c.sum:
		c.committed = seq
		outcome = Unchanged
	default:
		c.committed = seq
		c.data = data
		c.hasData = true
		c.sum = sum
		c.err = nil
		c.version++
		c.updatedAt = c.now()
		outcome = Changed
	}

	var (
		snap      Snapshot[T]
		listeners []func(Snapshot[T])
	)
	if outcome == Changed {
		snap = c.snapshotLocked()
		listeners = append(listeners, c.listeners...)
	}
	c.mu.Unlock()

	for _, fn := range listeners {
		fn(snap)
	}
	if c.observe != nil {
		c.observe(c.name, mode, outcome, c.now().Sub(start))
	}
	return outcome
}
