package board

import (
	"time"

	"ticket-queue-monitor/internal/channel"
	"ticket-queue-monitor/internal/model"
	"ticket-queue-monitor/internal/stats"
)

// ChannelView is the JSON form of a channel snapshot.
type ChannelView[T any] struct {
	Name      string     `json:"name"`
	Data      *T         `json:"data"`
	Loading   bool       `json:"loading"`
	Error     string     `json:"error,omitempty"`
	Version   uint64     `json:"version"`
	UpdatedAt *time.Time `json:"updatedAt,omitempty"`
}

func viewOf[T any](name string, s channel.Snapshot[T]) ChannelView[T] {
	v := ChannelView[T]{Name: name, Loading: s.Loading, Version: s.Version}
	if s.HasData {
		data := s.Data
		v.Data = &data
		at := s.UpdatedAt
		v.UpdatedAt = &at
	}
	if s.Err != nil {
		v.Error = s.Err.Error()
	}
	return v
}

// RefreshView is the refresh configuration in API units.
type RefreshView struct {
	Enabled    bool  `json:"enabled"`
	IntervalMs int64 `json:"intervalMs"`
}

// View is everything a client needs to render the board.
type View struct {
	BaseAddress   string                      `json:"baseAddress"`
	Waiting       ChannelView[[]model.Ticket] `json:"waiting"`
	Called        ChannelView[[]model.Ticket] `json:"called"`
	Served        ChannelView[[]model.Ticket] `json:"served"`
	QueueSize     ChannelView[int]            `json:"queueSize"`
	IsEmpty       ChannelView[bool]           `json:"isEmpty"`
	Stats         stats.Stats                 `json:"stats"`
	ActionLoading string                      `json:"actionLoading,omitempty"`
	ActionError   string                      `json:"actionError,omitempty"`
	Refresh       RefreshView                 `json:"refresh"`
}

// View snapshots every channel and recomputes the stats.
func (b *Board) View() View {
	waiting, called, served := b.waiting.Snapshot(), b.called.Snapshot(), b.served.Snapshot()
	size, empty := b.size.Snapshot(), b.empty.Snapshot()

	v := View{
		BaseAddress:   b.queue.BaseAddress(),
		Waiting:       viewOf(Waiting, waiting),
		Called:        viewOf(Called, called),
		Served:        viewOf(Served, served),
		QueueSize:     viewOf(QueueSize, size),
		IsEmpty:       viewOf(IsEmpty, empty),
		Stats:         stats.Compute(stats.Inputs{Waiting: waiting, Called: called, Served: served, Size: size, Empty: empty}),
		ActionLoading: string(b.dispatcher.ActionLoading()),
		Refresh:       b.RefreshConfig(),
	}
	if err := b.dispatcher.ActionError(); err != nil {
		v.ActionError = err.Error()
	}
	return v
}

// RefreshConfig returns the coordinator configuration in API units.
func (b *Board) RefreshConfig() RefreshView {
	cfg := b.coordinator.Config()
	return RefreshView{Enabled: cfg.Enabled, IntervalMs: cfg.Interval.Milliseconds()}
}

// Channel returns the view of one channel by name.
func (b *Board) Channel(name string) (any, bool) {
	switch name {
	case Waiting:
		return viewOf(name, b.waiting.Snapshot()), true
	case Called:
		return viewOf(name, b.called.Snapshot()), true
	case Served:
		return viewOf(name, b.served.Snapshot()), true
	case QueueSize:
		return viewOf(name, b.size.Snapshot()), true
	case IsEmpty:
		return viewOf(name, b.empty.Snapshot()), true
	default:
		return nil, false
	}
}
