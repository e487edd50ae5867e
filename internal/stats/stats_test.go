package stats

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"ticket-queue-monitor/internal/channel"
	"ticket-queue-monitor/internal/model"
)

func tickets(nums ...int) channel.Snapshot[[]model.Ticket] {
	list := make([]model.Ticket, 0, len(nums))
	for _, n := range nums {
		list = append(list, model.Ticket{TicketNumber: n})
	}
	return channel.Snapshot[[]model.Ticket]{Data: list, HasData: true}
}

func TestCompute(t *testing.T) {
	testCases := []struct {
		name string
		in   Inputs
		want Stats
	}{
		{
			name: "Nothing fetched yet",
			in:   Inputs{},
			want: Stats{},
		},
		{
			name: "Only waiting fetched",
			in:   Inputs{Waiting: tickets(1, 2, 3)},
			want: Stats{TotalTickets: 3, WaitingTickets: 3},
		},
		{
			name: "All partitions",
			in: Inputs{
				Waiting: tickets(5),
				Called:  tickets(3, 4),
				Served:  tickets(1),
				Size:    channel.Snapshot[int]{Data: 1, HasData: true},
				Empty:   channel.Snapshot[bool]{Data: false, HasData: true},
			},
			want: Stats{
				TotalTickets: 4, WaitingTickets: 1, CalledTickets: 2, ServedTickets: 1,
				QueueSize: 1, PercentServed: 25, HasQueueSize: true, HasIsEmpty: true,
			},
		},
		{
			name: "Scalars disagreeing with lists are kept verbatim",
			in: Inputs{
				Waiting: tickets(1, 2),
				Size:    channel.Snapshot[int]{Data: 9, HasData: true},
				Empty:   channel.Snapshot[bool]{Data: true, HasData: true},
			},
			want: Stats{
				TotalTickets: 2, WaitingTickets: 2, QueueSize: 9, IsEmpty: true,
				HasQueueSize: true, HasIsEmpty: true,
			},
		},
		{
			name: "Failed channel keeps its stale list",
			in: Inputs{
				Served: channel.Snapshot[[]model.Ticket]{Data: []model.Ticket{{TicketNumber: 1}}, HasData: true, Err: assert.AnError},
				Called: channel.Snapshot[[]model.Ticket]{Err: assert.AnError},
			},
			want: Stats{TotalTickets: 1, ServedTickets: 1, PercentServed: 100},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := Compute(tc.in)
			assert.Equal(t, tc.want, got)
			assert.Equal(t, got.WaitingTickets+got.CalledTickets+got.ServedTickets, got.TotalTickets)
		})
	}
}
