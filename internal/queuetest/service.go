// Package queuetest runs an in-memory ticket queue service over HTTP for
// tests.
package queuetest

import (
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	jsoniter "github.com/json-iterator/go"

	"ticket-queue-monitor/internal/model"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Service is an in-memory ticket queue speaking the remote service's HTTP
// dialect. Call, serve and dequeue move tickets WAITING→CALLED→SERVED in
// creation order.
type Service struct {
	URL string

	mu      sync.Mutex
	next    int
	tickets map[int]*model.Ticket
	order   []int
	reads   map[string]int
	clock   time.Time
}

// NewServer starts a service holding the given waiting tickets. The server
// is closed when the test ends.
func NewServer(t testing.TB, waiting ...int) (*Service, *httptest.Server) {
	t.Helper()
	f := &Service{
		tickets: map[int]*model.Ticket{},
		reads:   map[string]int{},
		clock:   time.Date(2025, 3, 4, 9, 0, 0, 0, time.UTC),
		next:    1,
	}
	for _, n := range waiting {
		f.add(n)
	}
	srv := httptest.NewServer(f)
	f.URL = srv.URL
	t.Cleanup(srv.Close)
	return f, srv
}

func (f *Service) add(n int) *model.Ticket {
	f.clock = f.clock.Add(time.Minute)
	t := &model.Ticket{TicketNumber: n, Status: model.StatusWaiting, CreationDate: model.NewTimestamp(f.clock)}
	f.tickets[n] = t
	f.order = append(f.order, n)
	if n >= f.next {
		f.next = n + 1
	}
	return t
}

func (f *Service) list(status model.TicketStatus) []model.Ticket {
	out := []model.Ticket{}
	for _, n := range f.order {
		if t := f.tickets[n]; t.Status == status {
			out = append(out, *t)
		}
	}
	return out
}

func (f *Service) first(status model.TicketStatus) *model.Ticket {
	for _, n := range f.order {
		if t := f.tickets[n]; t.Status == status {
			return t
		}
	}
	return nil
}

// ReadCount reports how many GET requests hit path (without the /api prefix).
func (f *Service) ReadCount(path string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.reads[path]
}

func (f *Service) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	path := strings.TrimPrefix(r.URL.Path, "/api")
	if r.Method == http.MethodGet {
		f.reads[path]++
	}

	switch {
	case r.Method == http.MethodGet && path == "/tickets":
		writeJSON(w, f.list(model.StatusWaiting))
	case r.Method == http.MethodGet && path == "/tickets/called":
		writeJSON(w, f.list(model.StatusCalled))
	case r.Method == http.MethodGet && path == "/tickets/served":
		writeJSON(w, f.list(model.StatusServed))
	case r.Method == http.MethodPost && (path == "/tickets" || path == "/queue/enqueue"):
		writeJSON(w, f.add(f.next))
	case r.Method == http.MethodPost && path == "/tickets/call":
		f.advance(w, r, model.StatusWaiting, model.StatusCalled)
	case r.Method == http.MethodPost && path == "/tickets/serve":
		f.advance(w, r, model.StatusCalled, model.StatusServed)
	case r.Method == http.MethodPost && path == "/queue/dequeue":
		f.advance(w, r, model.StatusWaiting, model.StatusCalled)
	case r.Method == http.MethodGet && path == "/queue/peek":
		head := f.first(model.StatusWaiting)
		if head == nil {
			http.Error(w, "La file est vide", http.StatusBadRequest)
			return
		}
		writeJSON(w, head)
	case r.Method == http.MethodGet && path == "/queue/size":
		fmt.Fprint(w, len(f.list(model.StatusWaiting)))
	case r.Method == http.MethodGet && path == "/queue/isEmpty":
		fmt.Fprint(w, len(f.list(model.StatusWaiting)) == 0)
	case r.Method == http.MethodGet && path == "/health":
		writeJSON(w, model.Health{Status: "UP", Timestamp: f.clock.Format(time.RFC3339)})
	default:
		http.NotFound(w, r)
	}
}

func (f *Service) advance(w http.ResponseWriter, r *http.Request, from, to model.TicketStatus) {
	body, _ := io.ReadAll(r.Body)
	var t *model.Ticket
	if s := strings.TrimSpace(string(body)); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			http.Error(w, "Numéro invalide", http.StatusBadRequest)
			return
		}
		if cand, ok := f.tickets[n]; ok && cand.Status == from {
			t = cand
		}
	} else {
		t = f.first(from)
	}
	if t == nil {
		http.Error(w, "Aucun ticket disponible", http.StatusNotFound)
		return
	}

	f.clock = f.clock.Add(time.Minute)
	ts := model.NewTimestamp(f.clock)
	t.Status = to
	if to == model.StatusCalled {
		t.CalledDate = &ts
	} else {
		t.ServedDate = &ts
	}
	writeJSON(w, t)
}

// Status returns the current status of ticket n, or "" if it does not exist.
func (f *Service) Status(n int) model.TicketStatus {
	f.mu.Lock()
	defer f.mu.Unlock()
	if t, ok := f.tickets[n]; ok {
		return t.Status
	}
	return ""
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
