package board

import (
	"context"
	"fmt"

	"ticket-queue-monitor/internal/action"
	"ticket-queue-monitor/internal/model"
)

// Result is what a board action produced.
type Result struct {
	Action  action.Name   `json:"action"`
	Ticket  *model.Ticket `json:"ticket,omitempty"`
	Message string        `json:"message,omitempty"`
	// Empty is set for a peek on an empty queue.
	Empty bool `json:"empty,omitempty"`
}

// Every action below refreshes all channels before returning when it
// succeeds. That refresh is the only way a mutation reaches the view.

func (b *Board) CreateTicket(ctx context.Context) *model.Ticket {
	return cascade(b, ctx, b.dispatcher.CreateTicket(ctx))
}

func (b *Board) CallTicket(ctx context.Context, ticketNumber *int) *model.Receipt {
	return cascade(b, ctx, b.dispatcher.CallTicket(ctx, ticketNumber))
}

func (b *Board) ServeTicket(ctx context.Context, ticketNumber *int) *model.Receipt {
	return cascade(b, ctx, b.dispatcher.ServeTicket(ctx, ticketNumber))
}

func (b *Board) Enqueue(ctx context.Context) *model.Ticket {
	return cascade(b, ctx, b.dispatcher.Enqueue(ctx))
}

func (b *Board) Dequeue(ctx context.Context) *model.Ticket {
	return cascade(b, ctx, b.dispatcher.Dequeue(ctx))
}

// Peek reports the head of the queue; ok is false when the call failed.
func (b *Board) Peek(ctx context.Context) (*model.Ticket, bool) {
	t, ok := b.dispatcher.Peek(ctx)
	if ok {
		b.RefreshAll(ctx)
	}
	return t, ok
}

// Run executes the named action. ticketNumber is only used by call and
// serve. ok is false when the action failed; the cause is the
// dispatcher's ActionError.
func (b *Board) Run(ctx context.Context, name action.Name, ticketNumber *int) (Result, bool) {
	res := Result{Action: name}
	switch name {
	case action.Create:
		res.Ticket = b.CreateTicket(ctx)
		return res, res.Ticket != nil
	case action.Enqueue:
		res.Ticket = b.Enqueue(ctx)
		return res, res.Ticket != nil
	case action.Dequeue:
		res.Ticket = b.Dequeue(ctx)
		return res, res.Ticket != nil
	case action.Call, action.Serve:
		var r *model.Receipt
		if name == action.Call {
			r = b.CallTicket(ctx, ticketNumber)
		} else {
			r = b.ServeTicket(ctx, ticketNumber)
		}
		if r == nil {
			return res, false
		}
		res.Ticket, res.Message = r.Ticket, r.Message
		return res, true
	case action.Peek:
		t, ok := b.Peek(ctx)
		res.Ticket, res.Empty = t, ok && t == nil
		return res, ok
	default:
		panic(fmt.Sprintf("board: unhandled action %q", name))
	}
}

func cascade[T any](b *Board, ctx context.Context, v *T) *T {
	if v != nil {
		b.RefreshAll(ctx)
	}
	return v
}
