// Package stats derives queue aggregates from channel snapshots.
package stats

import (
	"ticket-queue-monitor/internal/channel"
	"ticket-queue-monitor/internal/model"
)

// Stats is recomputed on every read; nothing here is cached.
type Stats struct {
	TotalTickets   int     `json:"totalTickets"`
	WaitingTickets int     `json:"waitingTickets"`
	CalledTickets  int     `json:"calledTickets"`
	ServedTickets  int     `json:"servedTickets"`
	QueueSize      int     `json:"queueSize"`
	IsEmpty        bool    `json:"isEmpty"`
	PercentServed  float64 `json:"percentServed"`
	// HasQueueSize and HasIsEmpty are false until the scalar channels have
	// fetched once; the zero values above are placeholders until then.
	HasQueueSize bool `json:"hasQueueSize"`
	HasIsEmpty   bool `json:"hasIsEmpty"`
}

// Inputs are the channel snapshots Compute reads.
type Inputs struct {
	Waiting channel.Snapshot[[]model.Ticket]
	Called  channel.Snapshot[[]model.Ticket]
	Served  channel.Snapshot[[]model.Ticket]
	Size    channel.Snapshot[int]
	Empty   channel.Snapshot[bool]
}

// Compute derives the aggregate. A list that never fetched counts as zero.
// QueueSize and IsEmpty come from their own remote reads and are not
// reconciled with the list lengths.
func Compute(in Inputs) Stats {
	s := Stats{
		WaitingTickets: len(in.Waiting.Data),
		CalledTickets:  len(in.Called.Data),
		ServedTickets:  len(in.Served.Data),
		QueueSize:      in.Size.Data,
		IsEmpty:        in.Empty.Data,
		HasQueueSize:   in.Size.HasData,
		HasIsEmpty:     in.Empty.HasData,
	}
	s.TotalTickets = s.WaitingTickets + s.CalledTickets + s.ServedTickets
	if s.TotalTickets > 0 {
		s.PercentServed = float64(s.ServedTickets) * 100 / float64(s.TotalTickets)
	}
	return s
}
