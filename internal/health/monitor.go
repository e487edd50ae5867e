// Package health probes the queue service on a schedule and classifies
// its responsiveness.
package health

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"ticket-queue-monitor/internal/clock"
	"ticket-queue-monitor/internal/model"
)

// Status is the classification of the latest probe.
type Status string

const (
	Checking Status = "checking"
	Online   Status = "online"
	Slow     Status = "slow"
	Warming  Status = "warming"
	Offline  Status = "offline"
)

// Statuses lists every status value.
var Statuses = []Status{Checking, Online, Slow, Warming, Offline}

const (
	DefaultInterval = 30 * time.Second
	// SlowThreshold marks a reachable but sluggish service.
	SlowThreshold = 5 * time.Second
	// WarmingThreshold marks a cold start; the status reverts to online
	// after WarmingHold.
	WarmingThreshold = 10 * time.Second
	WarmingHold      = 5 * time.Second
)

// Prober is the health call of the remote client.
type Prober interface {
	Health(ctx context.Context) (model.Health, error)
}

// Report is the outcome of the latest probe.
type Report struct {
	Status       Status        `json:"status"`
	ResponseTime time.Duration `json:"-"`
	ResponseMs   int64         `json:"responseTimeMs"`
	CheckedAt    time.Time     `json:"checkedAt"`
	Service      *model.Health `json:"service,omitempty"`
	Error        string        `json:"error,omitempty"`
}

// Classify maps a successful probe latency to a status.
func Classify(took time.Duration) Status {
	switch {
	case took > WarmingThreshold:
		return Warming
	case took > SlowThreshold:
		return Slow
	default:
		return Online
	}
}

// Monitor runs the probe on a cron schedule.
type Monitor struct {
	prober   Prober
	logger   *log.Logger
	clock    clock.Clock
	interval time.Duration
	timeout  time.Duration
	observe  func(Report)
	cron     *cron.Cron

	mu          sync.Mutex
	report      Report
	warmedUntil time.Time
}

// Option configures a Monitor.
type Option func(*Monitor)

func WithLogger(l *log.Logger) Option {
	return func(m *Monitor) { m.logger = l }
}

func WithClock(c clock.Clock) Option {
	return func(m *Monitor) { m.clock = c }
}

// WithInterval sets the probe period.
func WithInterval(d time.Duration) Option {
	return func(m *Monitor) {
		if d > 0 {
			m.interval = d
		}
	}
}

// WithTimeout bounds a single probe. Zero leaves it to the client.
func WithTimeout(d time.Duration) Option {
	return func(m *Monitor) { m.timeout = d }
}

// WithObserver is called after every probe.
func WithObserver(fn func(Report)) Option {
	return func(m *Monitor) { m.observe = fn }
}

// NewMonitor creates a monitor. It does not probe until Start or CheckOnce.
func NewMonitor(prober Prober, opts ...Option) *Monitor {
	m := &Monitor{
		prober:   prober,
		logger:   log.Default(),
		clock:    clock.Real(),
		interval: DefaultInterval,
		report:   Report{Status: Checking},
	}
	for _, opt := range opts {
		opt(m)
	}
	m.cron = cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.PrintfLogger(m.logger))))
	return m
}

// Start probes once and then schedules the probe every interval.
func (m *Monitor) Start(ctx context.Context) error {
	if _, err := m.cron.AddFunc(fmt.Sprintf("@every %s", m.interval), func() { m.CheckOnce(ctx) }); err != nil {
		return fmt.Errorf("schedule health probe: %w", err)
	}
	m.cron.Start()
	go m.CheckOnce(ctx)
	return nil
}

// Stop halts the schedule and returns a context done once running probes end.
func (m *Monitor) Stop() context.Context {
	return m.cron.Stop()
}

// Report returns the latest classification.
func (m *Monitor) Report() Report {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.report.Status == Warming && !m.clock.Now().Before(m.warmedUntil) {
		m.report.Status = Online
	}
	return m.report
}

// CheckOnce runs a single probe and stores its report.
func (m *Monitor) CheckOnce(ctx context.Context) Report {
	m.mu.Lock()
	m.report.Status = Checking
	m.mu.Unlock()

	if m.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.timeout)
		defer cancel()
	}

	start := m.clock.Now()
	h, err := m.prober.Health(ctx)
	end := m.clock.Now()
	took := end.Sub(start)

	r := Report{CheckedAt: end}
	if err != nil {
		r.Status = Offline
		r.Error = err.Error()
		m.logger.Printf("health probe failed: %v", err)
	} else {
		r.Status = Classify(took)
		r.ResponseTime = took
		r.ResponseMs = took.Milliseconds()
		r.Service = &h
	}

	m.mu.Lock()
	m.report = r
	if r.Status == Warming {
		m.warmedUntil = end.Add(WarmingHold)
	}
	m.mu.Unlock()

	if m.observe != nil {
		m.observe(r)
	}
	return r
}
