// Package remote is the typed client for the ticket queue service.
package remote

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"
	"golang.org/x/time/rate"

	"ticket-queue-monitor/internal/model"
	"ticket-queue-monitor/internal/parse"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const (
	// DefaultTimeout bounds every call; the hosted service can be slow to wake up.
	DefaultTimeout = 15 * time.Second
	// DefaultPathPrefix is where the queue service mounts its routes.
	DefaultPathPrefix = "/api"
)

// Client performs one HTTP call per queue operation. It never retries; retry
// policy belongs to the caller. The base address is the only mutable state.
type Client struct {
	http    *resty.Client
	limiter *rate.Limiter
	prefix  string

	mu      sync.RWMutex
	baseURL string
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout overrides the per-call timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.SetTimeout(d)
		}
	}
}

// WithPathPrefix overrides the route prefix ("/api" by default).
func WithPathPrefix(prefix string) Option {
	return func(c *Client) {
		c.prefix = "/" + strings.Trim(prefix, "/")
		if c.prefix == "/" {
			c.prefix = ""
		}
	}
}

// WithRateLimit paces outgoing requests. A non-positive rate disables pacing.
func WithRateLimit(perSec float64, burst int) Option {
	return func(c *Client) {
		if perSec <= 0 {
			c.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(perSec), burst)
	}
}

// WithProxy routes requests through an HTTP proxy.
func WithProxy(proxyURL string) Option {
	return func(c *Client) {
		if proxyURL != "" {
			c.http.SetProxy(proxyURL)
		}
	}
}

// WithTransport replaces the underlying round tripper.
func WithTransport(rt http.RoundTripper) Option {
	return func(c *Client) {
		c.http.SetTransport(rt)
	}
}

// NewClient creates a client for the service at baseURL.
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		http:    resty.New().SetTimeout(DefaultTimeout).SetHeader("Accept", "application/json, text/plain"),
		prefix:  DefaultPathPrefix,
		baseURL: normalizeBase(baseURL),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseAddress returns the currently configured service address.
func (c *Client) BaseAddress() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.baseURL
}

// SetBaseAddress replaces the service address. Calls already in flight keep
// the address they started with.
func (c *Client) SetBaseAddress(baseURL string) {
	c.mu.Lock()
	c.baseURL = normalizeBase(baseURL)
	c.mu.Unlock()
}

// CreateTicket asks the service to issue a new ticket.
func (c *Client) CreateTicket(ctx context.Context) (model.Ticket, error) {
	return decodeTicket(c.send(ctx, http.MethodPost, "/tickets", nil))
}

// ListWaiting returns the tickets still waiting to be called.
func (c *Client) ListWaiting(ctx context.Context) ([]model.Ticket, error) {
	return decodeList(c.send(ctx, http.MethodGet, "/tickets", nil))
}

// ListCalled returns the tickets called but not yet served.
func (c *Client) ListCalled(ctx context.Context) ([]model.Ticket, error) {
	return decodeList(c.send(ctx, http.MethodGet, "/tickets/called", nil))
}

// ListServed returns the tickets already served.
func (c *Client) ListServed(ctx context.Context) ([]model.Ticket, error) {
	return decodeList(c.send(ctx, http.MethodGet, "/tickets/served", nil))
}

// CallTicket advances the next waiting ticket, or ticketNumber when given.
func (c *Client) CallTicket(ctx context.Context, ticketNumber *int) (model.Receipt, error) {
	return decodeReceipt(c.send(ctx, http.MethodPost, "/tickets/call", numberBody(ticketNumber)))
}

// ServeTicket advances the next called ticket, or ticketNumber when given.
func (c *Client) ServeTicket(ctx context.Context, ticketNumber *int) (model.Receipt, error) {
	return decodeReceipt(c.send(ctx, http.MethodPost, "/tickets/serve", numberBody(ticketNumber)))
}

// Enqueue adds a new ticket to the tail of the queue.
func (c *Client) Enqueue(ctx context.Context) (model.Ticket, error) {
	return decodeTicket(c.send(ctx, http.MethodPost, "/queue/enqueue", nil))
}

// Dequeue removes the ticket at the head of the queue.
func (c *Client) Dequeue(ctx context.Context) (model.Ticket, error) {
	return decodeTicket(c.send(ctx, http.MethodPost, "/queue/dequeue", nil))
}

// Peek returns the ticket at the head of the queue, or nil when the queue is
// empty. The service signals emptiness with 400/404 or an empty body.
func (c *Client) Peek(ctx context.Context) (*model.Ticket, error) {
	r, err := c.send(ctx, http.MethodGet, "/queue/peek", nil)
	if err != nil {
		var re *RemoteError
		if errors.As(err, &re) && (re.StatusCode == http.StatusNotFound || re.StatusCode == http.StatusBadRequest) {
			return nil, nil
		}
		return nil, err
	}
	if r.status == http.StatusNoContent || len(bytes.TrimSpace(r.body)) == 0 || string(bytes.TrimSpace(r.body)) == "null" {
		return nil, nil
	}
	t, err := decodeTicket(r, nil)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// QueueSize returns the service's own count of queued tickets.
func (c *Client) QueueSize(ctx context.Context) (int, error) {
	r, err := c.send(ctx, http.MethodGet, "/queue/size", nil)
	if err != nil {
		return 0, err
	}
	n, err := parse.Int(string(r.body))
	if err != nil {
		return 0, &ParseError{Op: r.op, Body: string(r.body), Err: err}
	}
	return n, nil
}

// IsQueueEmpty reports the service's own emptiness flag.
func (c *Client) IsQueueEmpty(ctx context.Context) (bool, error) {
	r, err := c.send(ctx, http.MethodGet, "/queue/isEmpty", nil)
	if err != nil {
		return false, err
	}
	v, err := parse.Bool(string(r.body))
	if err != nil {
		return false, &ParseError{Op: r.op, Body: string(r.body), Err: err}
	}
	return v, nil
}

// Health probes the service. A plain-text 2xx body is reported as the status.
func (c *Client) Health(ctx context.Context) (model.Health, error) {
	r, err := c.send(ctx, http.MethodGet, "/health", nil)
	if err != nil {
		return model.Health{}, err
	}
	var h model.Health
	if err := json.Unmarshal(r.body, &h); err != nil || h.Status == "" {
		return model.Health{Status: strings.TrimSpace(string(r.body))}, nil
	}
	return h, nil
}

type response struct {
	op     string
	status int
	body   []byte
}

func (c *Client) send(ctx context.Context, method, path string, body *string) (response, error) {
	op := method + " " + c.prefix + path
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return response{}, &RemoteError{Op: op, Message: err.Error(), Err: err}
		}
	}

	req := c.http.R().
		SetContext(ctx).
		SetHeader("X-Request-ID", uuid.NewString())
	if body != nil {
		req.SetHeader("Content-Type", "text/plain").SetBody(*body)
	}

	resp, err := req.Execute(method, c.BaseAddress()+c.prefix+path)
	if err != nil {
		return response{}, &RemoteError{Op: op, Message: err.Error(), Err: err}
	}
	if !resp.IsSuccess() {
		return response{}, &RemoteError{Op: op, StatusCode: resp.StatusCode(), Message: errorMessage(resp)}
	}
	return response{op: op, status: resp.StatusCode(), body: resp.Body()}, nil
}

func errorMessage(resp *resty.Response) string {
	body := bytes.TrimSpace(resp.Body())
	if len(body) > 0 {
		var payload struct {
			Error   string `json:"error"`
			Message string `json:"message"`
		}
		if json.Unmarshal(body, &payload) == nil {
			if payload.Message != "" {
				return payload.Message
			}
			if payload.Error != "" {
				return payload.Error
			}
		}
		return string(body)
	}
	if text := http.StatusText(resp.StatusCode()); text != "" {
		return text
	}
	return resp.Status()
}

func decodeTicket(r response, err error) (model.Ticket, error) {
	if err != nil {
		return model.Ticket{}, err
	}
	var t model.Ticket
	if err := json.Unmarshal(r.body, &t); err != nil {
		return model.Ticket{}, &ParseError{Op: r.op, Body: string(r.body), Err: err}
	}
	return t, nil
}

func decodeList(r response, err error) ([]model.Ticket, error) {
	if err != nil {
		return nil, err
	}
	tickets := []model.Ticket{}
	if err := json.Unmarshal(r.body, &tickets); err != nil {
		return nil, &ParseError{Op: r.op, Body: string(r.body), Err: err}
	}
	if tickets == nil {
		tickets = []model.Ticket{}
	}
	return tickets, nil
}

func decodeReceipt(r response, err error) (model.Receipt, error) {
	if err != nil {
		return model.Receipt{}, err
	}
	body := bytes.TrimSpace(r.body)
	if len(body) > 0 && body[0] == '{' {
		t, err := decodeTicket(r, nil)
		if err != nil {
			return model.Receipt{}, err
		}
		return model.Receipt{Ticket: &t}, nil
	}
	return model.Receipt{Message: string(body)}, nil
}

func numberBody(n *int) *string {
	if n == nil {
		return nil
	}
	s := strconv.Itoa(*n)
	return &s
}

func normalizeBase(u string) string {
	return strings.TrimRight(strings.TrimSpace(u), "/")
}
