package action

import (
	"context"
	"errors"
	"io"
	"log"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ticket-queue-monitor/internal/model"
)

type mockQueue struct {
	CreateTicketFunc func(ctx context.Context) (model.Ticket, error)
	CallTicketFunc   func(ctx context.Context, n *int) (model.Receipt, error)
	ServeTicketFunc  func(ctx context.Context, n *int) (model.Receipt, error)
	EnqueueFunc      func(ctx context.Context) (model.Ticket, error)
	DequeueFunc      func(ctx context.Context) (model.Ticket, error)
	PeekFunc         func(ctx context.Context) (*model.Ticket, error)
}

func (m *mockQueue) CreateTicket(ctx context.Context) (model.Ticket, error) {
	return m.CreateTicketFunc(ctx)
}

func (m *mockQueue) CallTicket(ctx context.Context, n *int) (model.Receipt, error) {
	return m.CallTicketFunc(ctx, n)
}

func (m *mockQueue) ServeTicket(ctx context.Context, n *int) (model.Receipt, error) {
	return m.ServeTicketFunc(ctx, n)
}

func (m *mockQueue) Enqueue(ctx context.Context) (model.Ticket, error) {
	return m.EnqueueFunc(ctx)
}

func (m *mockQueue) Dequeue(ctx context.Context) (model.Ticket, error) {
	return m.DequeueFunc(ctx)
}

func (m *mockQueue) Peek(ctx context.Context) (*model.Ticket, error) {
	return m.PeekFunc(ctx)
}

func quietLogger() *log.Logger { return log.New(io.Discard, "", 0) }

func TestDispatcher_TicketActions(t *testing.T) {
	errDown := errors.New("service down")

	testCases := []struct {
		name    string
		queue   *mockQueue
		run     func(d *Dispatcher) *model.Ticket
		wantNum int
		wantErr bool
	}{
		{
			name: "Create succeeds",
			queue: &mockQueue{CreateTicketFunc: func(ctx context.Context) (model.Ticket, error) {
				return model.Ticket{TicketNumber: 7, Status: model.StatusWaiting}, nil
			}},
			run:     func(d *Dispatcher) *model.Ticket { return d.CreateTicket(context.Background()) },
			wantNum: 7,
		},
		{
			name: "Enqueue fails",
			queue: &mockQueue{EnqueueFunc: func(ctx context.Context) (model.Ticket, error) {
				return model.Ticket{}, errDown
			}},
			run:     func(d *Dispatcher) *model.Ticket { return d.Enqueue(context.Background()) },
			wantErr: true,
		},
		{
			name: "Dequeue succeeds",
			queue: &mockQueue{DequeueFunc: func(ctx context.Context) (model.Ticket, error) {
				return model.Ticket{TicketNumber: 3}, nil
			}},
			run:     func(d *Dispatcher) *model.Ticket { return d.Dequeue(context.Background()) },
			wantNum: 3,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			d := NewDispatcher(tc.queue, WithLogger(quietLogger()))
			got := tc.run(d)

			if tc.wantErr {
				assert.Nil(t, got)
				require.Error(t, d.ActionError())
				assert.ErrorIs(t, d.ActionError(), errDown)
				return
			}
			require.NotNil(t, got)
			assert.Equal(t, tc.wantNum, got.TicketNumber)
			assert.NoError(t, d.ActionError())
			assert.Equal(t, None, d.ActionLoading())
		})
	}
}

func TestDispatcher_CallPassesTicketNumber(t *testing.T) {
	var seen *int
	q := &mockQueue{CallTicketFunc: func(ctx context.Context, n *int) (model.Receipt, error) {
		seen = n
		return model.Receipt{Ticket: &model.Ticket{TicketNumber: *n, Status: model.StatusCalled}}, nil
	}}
	d := NewDispatcher(q, WithLogger(quietLogger()))

	n := 101
	r := d.CallTicket(context.Background(), &n)
	require.NotNil(t, r)
	assert.Equal(t, &n, seen)
	assert.Equal(t, model.StatusCalled, r.Ticket.Status)
}

func TestDispatcher_ErrorClearedOnNextAttempt(t *testing.T) {
	fail := true
	q := &mockQueue{ServeTicketFunc: func(ctx context.Context, n *int) (model.Receipt, error) {
		if fail {
			return model.Receipt{}, errors.New("no called ticket")
		}
		return model.Receipt{Message: "served"}, nil
	}}
	d := NewDispatcher(q, WithLogger(quietLogger()))

	assert.Nil(t, d.ServeTicket(context.Background(), nil))
	assert.EqualError(t, d.ActionError(), "serve: no called ticket")

	fail = false
	r := d.ServeTicket(context.Background(), nil)
	require.NotNil(t, r)
	assert.Equal(t, "served", r.Message)
	assert.NoError(t, d.ActionError())
}

func TestDispatcher_Peek(t *testing.T) {
	testCases := []struct {
		name   string
		peek   func(ctx context.Context) (*model.Ticket, error)
		wantOK bool
		wantT  bool
	}{
		{name: "Head present", peek: func(ctx context.Context) (*model.Ticket, error) {
			return &model.Ticket{TicketNumber: 1}, nil
		}, wantOK: true, wantT: true},
		{name: "Empty queue", peek: func(ctx context.Context) (*model.Ticket, error) {
			return nil, nil
		}, wantOK: true},
		{name: "Failure", peek: func(ctx context.Context) (*model.Ticket, error) {
			return nil, errors.New("boom")
		}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			d := NewDispatcher(&mockQueue{PeekFunc: tc.peek}, WithLogger(quietLogger()))
			got, ok := d.Peek(context.Background())
			assert.Equal(t, tc.wantOK, ok)
			assert.Equal(t, tc.wantT, got != nil)
		})
	}
}

func TestDispatcher_RejectsSameActionInFlight(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	q := &mockQueue{
		CreateTicketFunc: func(ctx context.Context) (model.Ticket, error) {
			close(started)
			<-release
			return model.Ticket{TicketNumber: 1}, nil
		},
		EnqueueFunc: func(ctx context.Context) (model.Ticket, error) {
			return model.Ticket{TicketNumber: 2}, nil
		},
	}
	d := NewDispatcher(q, WithLogger(quietLogger()))

	done := make(chan *model.Ticket)
	go func() { done <- d.CreateTicket(context.Background()) }()
	<-started
	assert.Equal(t, Create, d.ActionLoading())

	assert.Nil(t, d.CreateTicket(context.Background()))
	assert.ErrorIs(t, d.ActionError(), ErrActionInFlight)

	other := d.Enqueue(context.Background())
	require.NotNil(t, other, "a different action slot is free")

	close(release)
	select {
	case got := <-done:
		require.NotNil(t, got)
		assert.Equal(t, 1, got.TicketNumber)
	case <-time.After(2 * time.Second):
		t.Fatal("create did not finish")
	}
	assert.Equal(t, None, d.ActionLoading())
}

func TestDispatcher_Observer(t *testing.T) {
	var names []Name
	var errs []error
	q := &mockQueue{PeekFunc: func(ctx context.Context) (*model.Ticket, error) { return nil, nil }}
	d := NewDispatcher(q, WithLogger(quietLogger()), WithObserver(func(name Name, err error, took time.Duration) {
		names = append(names, name)
		errs = append(errs, err)
	}))

	d.Peek(context.Background())
	assert.Equal(t, []Name{Peek}, names)
	assert.Equal(t, []error{nil}, errs)
}

func TestParse(t *testing.T) {
	n, err := Parse("serve")
	require.NoError(t, err)
	assert.Equal(t, Serve, n)

	_, err = Parse("delete")
	assert.Error(t, err)
}
