// Package action runs mutating queue operations and tracks their state.
package action

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"ticket-queue-monitor/internal/model"
)

// Name identifies an action slot.
type Name string

const (
	None    Name = ""
	Create  Name = "create"
	Call    Name = "call"
	Serve   Name = "serve"
	Enqueue Name = "enqueue"
	Dequeue Name = "dequeue"
	Peek    Name = "peek"
)

// Names lists every action in display order.
var Names = []Name{Create, Call, Serve, Enqueue, Dequeue, Peek}

// Parse maps a lowercase action name to its Name.
func Parse(s string) (Name, error) {
	for _, n := range Names {
		if string(n) == s {
			return n, nil
		}
	}
	return None, fmt.Errorf("unknown action %q", s)
}

// ErrActionInFlight is recorded when an action is started while the same
// action is still running.
var ErrActionInFlight = errors.New("action already in flight")

// Queue is the subset of the remote client the dispatcher drives.
type Queue interface {
	CreateTicket(ctx context.Context) (model.Ticket, error)
	CallTicket(ctx context.Context, ticketNumber *int) (model.Receipt, error)
	ServeTicket(ctx context.Context, ticketNumber *int) (model.Receipt, error)
	Enqueue(ctx context.Context) (model.Ticket, error)
	Dequeue(ctx context.Context) (model.Ticket, error)
	Peek(ctx context.Context) (*model.Ticket, error)
}

// ObserveFunc receives every finished action. err is nil on success.
type ObserveFunc func(name Name, err error, took time.Duration)

// Dispatcher executes one call per action slot at a time. Failures are
// recorded, logged and turned into nil results; they never escape.
type Dispatcher struct {
	queue   Queue
	logger  *log.Logger
	observe ObserveFunc

	mu       sync.Mutex
	inFlight []Name
	lastErr  error
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

func WithLogger(logger *log.Logger) Option {
	return func(d *Dispatcher) { d.logger = logger }
}

// WithObserver reports every finished action to fn.
func WithObserver(fn ObserveFunc) Option {
	return func(d *Dispatcher) { d.observe = fn }
}

// NewDispatcher creates a dispatcher over queue.
func NewDispatcher(queue Queue, opts ...Option) *Dispatcher {
	d := &Dispatcher{queue: queue, logger: log.Default()}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// ActionLoading returns the most recently started action that is still
// running, or None.
func (d *Dispatcher) ActionLoading() Name {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.inFlight) == 0 {
		return None
	}
	return d.inFlight[len(d.inFlight)-1]
}

// ActionError returns the last failure, cleared when the next action starts.
func (d *Dispatcher) ActionError() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.lastErr
}

func (d *Dispatcher) CreateTicket(ctx context.Context) *model.Ticket {
	t, _ := run(d, ctx, Create, func(ctx context.Context) (*model.Ticket, error) {
		return ticketPtr(d.queue.CreateTicket(ctx))
	})
	return t
}

// CallTicket calls the next waiting ticket, or ticketNumber when non-nil.
func (d *Dispatcher) CallTicket(ctx context.Context, ticketNumber *int) *model.Receipt {
	r, _ := run(d, ctx, Call, func(ctx context.Context) (*model.Receipt, error) {
		return receiptPtr(d.queue.CallTicket(ctx, ticketNumber))
	})
	return r
}

// ServeTicket serves the next called ticket, or ticketNumber when non-nil.
func (d *Dispatcher) ServeTicket(ctx context.Context, ticketNumber *int) *model.Receipt {
	r, _ := run(d, ctx, Serve, func(ctx context.Context) (*model.Receipt, error) {
		return receiptPtr(d.queue.ServeTicket(ctx, ticketNumber))
	})
	return r
}

func (d *Dispatcher) Enqueue(ctx context.Context) *model.Ticket {
	t, _ := run(d, ctx, Enqueue, func(ctx context.Context) (*model.Ticket, error) {
		return ticketPtr(d.queue.Enqueue(ctx))
	})
	return t
}

func (d *Dispatcher) Dequeue(ctx context.Context) *model.Ticket {
	t, _ := run(d, ctx, Dequeue, func(ctx context.Context) (*model.Ticket, error) {
		return ticketPtr(d.queue.Dequeue(ctx))
	})
	return t
}

// Peek returns the head of the queue. An empty queue yields (nil, true);
// a failure yields (nil, false).
func (d *Dispatcher) Peek(ctx context.Context) (*model.Ticket, bool) {
	return run(d, ctx, Peek, d.queue.Peek)
}

func run[T any](d *Dispatcher, ctx context.Context, name Name, fn func(context.Context) (*T, error)) (*T, bool) {
	d.mu.Lock()
	for _, n := range d.inFlight {
		if n == name {
			d.lastErr = fmt.Errorf("%s: %w", name, ErrActionInFlight)
			d.mu.Unlock()
			d.logger.Printf("action %s rejected: already in flight", name)
			return nil, false
		}
	}
	d.inFlight = append(d.inFlight, name)
	d.lastErr = nil
	d.mu.Unlock()

	start := time.Now()
	v, err := fn(ctx)
	took := time.Since(start)

	d.mu.Lock()
	for i, n := range d.inFlight {
		if n == name {
			d.inFlight = append(d.inFlight[:i], d.inFlight[i+1:]...)
			break
		}
	}
	if err != nil {
		d.lastErr = fmt.Errorf("%s: %w", name, err)
	}
	d.mu.Unlock()

	if d.observe != nil {
		d.observe(name, err, took)
	}
	if err != nil {
		d.logger.Printf("action %s failed: %v", name, err)
		return nil, false
	}
	return v, true
}

func ticketPtr(t model.Ticket, err error) (*model.Ticket, error) {
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func receiptPtr(r model.Receipt, err error) (*model.Receipt, error) {
	if err != nil {
		return nil, err
	}
	return &r, nil
}
