// Package board wires the queue channels, the refresh coordinator and the
// action dispatcher into one view of the remote queue.
package board

import (
	"context"
	"log"
	"sync"
	"time"

	"ticket-queue-monitor/internal/action"
	"ticket-queue-monitor/internal/channel"
	"ticket-queue-monitor/internal/metrics"
	"ticket-queue-monitor/internal/model"
	"ticket-queue-monitor/internal/refresh"
	"ticket-queue-monitor/internal/stats"
)

// Channel names, also used in the HTTP API.
const (
	Waiting   = "waiting"
	Called    = "called"
	Served    = "served"
	QueueSize = "queueSize"
	IsEmpty   = "isEmpty"
)

// ChannelNames lists every channel in display order.
var ChannelNames = []string{Waiting, Called, Served, QueueSize, IsEmpty}

// Queue is everything the board needs from the remote client.
type Queue interface {
	action.Queue
	ListWaiting(ctx context.Context) ([]model.Ticket, error)
	ListCalled(ctx context.Context) ([]model.Ticket, error)
	ListServed(ctx context.Context) ([]model.Ticket, error)
	QueueSize(ctx context.Context) (int, error)
	IsQueueEmpty(ctx context.Context) (bool, error)
	BaseAddress() string
	SetBaseAddress(url string)
}

// Recorder persists observed tickets and returns the numbers seen as
// CALLED for the first time.
type Recorder interface {
	RecordObservations(ctx context.Context, observedAt time.Time, tickets []model.Ticket) ([]int, error)
}

// Notifier is told about every newly called ticket.
type Notifier interface {
	Dispatch(ticketNumber int)
}

// Board is the composition root of the data-sync core.
type Board struct {
	queue       Queue
	logger      *log.Logger
	metrics     *metrics.Metrics
	recorder    Recorder
	notifier    Notifier
	recordLimit time.Duration
	// recording serializes RecordObservations so a first CALLED sighting is
	// decided by one call at a time.
	recording sync.Mutex

	waiting *channel.Channel[[]model.Ticket]
	called  *channel.Channel[[]model.Ticket]
	served  *channel.Channel[[]model.Ticket]
	size    *channel.Channel[int]
	empty   *channel.Channel[bool]

	coordinator *refresh.Coordinator
	dispatcher  *action.Dispatcher
}

type options struct {
	logger      *log.Logger
	metrics     *metrics.Metrics
	recorder    Recorder
	notifier    Notifier
	refreshOpts []refresh.Option
}

// Option configures a Board.
type Option func(*options)

func WithLogger(l *log.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithMetrics records fetches, actions and rounds.
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *options) { o.metrics = m }
}

// WithRecorder persists every data change of the ticket lists.
func WithRecorder(r Recorder) Option {
	return func(o *options) { o.recorder = r }
}

// WithNotifier receives newly called ticket numbers. It needs a Recorder.
func WithNotifier(n Notifier) Option {
	return func(o *options) { o.notifier = n }
}

// WithRefreshOptions passes options through to the coordinator.
func WithRefreshOptions(opts ...refresh.Option) Option {
	return func(o *options) { o.refreshOpts = append(o.refreshOpts, opts...) }
}

// New builds the five channels over queue and registers them for refresh.
func New(queue Queue, opts ...Option) *Board {
	o := options{logger: log.Default()}
	for _, opt := range opts {
		opt(&o)
	}

	b := &Board{
		queue:       queue,
		logger:      o.logger,
		metrics:     o.metrics,
		recorder:    o.recorder,
		notifier:    o.notifier,
		recordLimit: 10 * time.Second,
	}

	chOpts := []channel.Option{channel.WithLogger(o.logger)}
	if o.metrics != nil {
		chOpts = append(chOpts, channel.WithObserver(o.metrics.ObserveFetch))
	}
	b.waiting = channel.New(Waiting, queue.ListWaiting, chOpts...)
	b.called = channel.New(Called, queue.ListCalled, chOpts...)
	b.served = channel.New(Served, queue.ListServed, chOpts...)
	b.size = channel.New(QueueSize, queue.QueueSize, chOpts...)
	b.empty = channel.New(IsEmpty, queue.IsQueueEmpty, chOpts...)

	if b.recorder != nil {
		for _, ch := range []*channel.Channel[[]model.Ticket]{b.waiting, b.called, b.served} {
			ch.OnChange(b.record)
		}
	}

	refreshOpts := []refresh.Option{refresh.WithLogger(o.logger)}
	if o.metrics != nil {
		refreshOpts = append(refreshOpts, refresh.WithTickObserver(o.metrics.ObserveRound))
	}
	b.coordinator = refresh.New(append(refreshOpts, o.refreshOpts...)...)
	b.coordinator.Register(b.waiting, b.called, b.served, b.size, b.empty)

	actOpts := []action.Option{action.WithLogger(o.logger)}
	if o.metrics != nil {
		actOpts = append(actOpts, action.WithObserver(o.metrics.ObserveAction))
	}
	b.dispatcher = action.NewDispatcher(queue, actOpts...)
	return b
}

// Start runs the first visible refresh and, when autoRefresh is set, arms
// the coordinator for the lifetime of ctx.
func (b *Board) Start(ctx context.Context, autoRefresh bool) {
	b.RefreshAll(ctx)
	if autoRefresh {
		b.coordinator.Enable(ctx)
	}
}

// Coordinator exposes the refresh configuration.
func (b *Board) Coordinator() *refresh.Coordinator { return b.coordinator }

// Dispatcher exposes the action state.
func (b *Board) Dispatcher() *action.Dispatcher { return b.dispatcher }

// RefreshAll re-fetches every channel in visible mode.
func (b *Board) RefreshAll(ctx context.Context) refresh.Round {
	r := b.coordinator.RefreshAll(ctx)
	if b.metrics != nil {
		b.metrics.ObserveRound(r)
	}
	return r
}

// OnBaseAddressChanged points the client at url and re-fetches everything.
func (b *Board) OnBaseAddressChanged(url string) {
	if url == b.queue.BaseAddress() {
		return
	}
	b.queue.SetBaseAddress(url)
	b.logger.Printf("queue service moved to %s, refreshing", url)
	b.RefreshAll(context.Background())
}

// Stats recomputes the aggregate from the current snapshots.
func (b *Board) Stats() stats.Stats {
	return stats.Compute(stats.Inputs{
		Waiting: b.waiting.Snapshot(),
		Called:  b.called.Snapshot(),
		Served:  b.served.Snapshot(),
		Size:    b.size.Snapshot(),
		Empty:   b.empty.Snapshot(),
	})
}

func (b *Board) record(s channel.Snapshot[[]model.Ticket]) {
	b.recording.Lock()
	defer b.recording.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), b.recordLimit)
	defer cancel()

	newlyCalled, err := b.recorder.RecordObservations(ctx, time.Now(), s.Data)
	if err != nil {
		b.logger.Printf("record observations: %v", err)
		return
	}
	if b.notifier == nil {
		return
	}
	for _, n := range newlyCalled {
		b.notifier.Dispatch(n)
	}
}
