package model

import (
	"bytes"
	"encoding/json"
	"time"

	"ticket-queue-monitor/internal/parse"
)

// TicketStatus is the lifecycle stage of a ticket as reported by the queue service.
type TicketStatus string

const (
	StatusWaiting TicketStatus = "WAITING"
	StatusCalled  TicketStatus = "CALLED"
	StatusServed  TicketStatus = "SERVED"
)

// Ticket is a snapshot of one ticket. The client never mutates tickets; every
// fetch replaces the previous snapshot wholesale.
type Ticket struct {
	TicketNumber int          `json:"ticketNumber"`
	Status       TicketStatus `json:"status"`
	CreationDate Timestamp    `json:"creationDate"`
	CalledDate   *Timestamp   `json:"calledDate"`
	ServedDate   *Timestamp   `json:"servedDate"`
}

// Receipt is the result of a call or serve action. The service answers with
// the advanced ticket; older deployments answer with a plain-text message.
type Receipt struct {
	Ticket  *Ticket `json:"ticket,omitempty"`
	Message string  `json:"message,omitempty"`
}

// Health is the body of the service health endpoint.
type Health struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Version   string `json:"version,omitempty"`
	Uptime    string `json:"uptime,omitempty"`
}

// Timestamp accepts both RFC 3339 and zone-less local date-times on decode
// and always encodes as RFC 3339.
type Timestamp struct {
	time.Time
}

// NewTimestamp wraps t.
func NewTimestamp(t time.Time) Timestamp {
	return Timestamp{Time: t}
}

func (ts *Timestamp) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		return nil
	}
	var raw string
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	t, err := parse.Timestamp(raw)
	if err != nil {
		return err
	}
	ts.Time = t
	return nil
}

func (ts Timestamp) MarshalJSON() ([]byte, error) {
	return json.Marshal(ts.Time.UTC().Format(time.RFC3339Nano))
}

// TimePtr returns nil for a nil timestamp, otherwise the wrapped time.
func (ts *Timestamp) TimePtr() *time.Time {
	if ts == nil {
		return nil
	}
	t := ts.Time
	return &t
}
