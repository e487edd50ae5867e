// Package metrics exposes Prometheus instruments for the refresh pipeline.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"ticket-queue-monitor/internal/action"
	"ticket-queue-monitor/internal/channel"
	"ticket-queue-monitor/internal/refresh"
)

const namespace = "queuemon"

// Metrics groups every instrument. A nil *Metrics records nothing.
type Metrics struct {
	fetches        *prometheus.CounterVec
	fetchDurations *prometheus.HistogramVec
	actions        *prometheus.CounterVec
	actionDuration *prometheus.HistogramVec
	rounds         *prometheus.CounterVec
	roundDuration  prometheus.Observer
	healthLatency  prometheus.Gauge
	healthStatus   *prometheus.GaugeVec
	notifications  *prometheus.CounterVec
}

// New registers the instruments on reg. A nil reg registers nothing, which
// keeps repeated construction in tests from colliding.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		fetches: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "channel",
			Name:      "fetches_total",
			Help:      "Channel fetches, labeled by channel, mode and outcome",
		}, []string{"channel", "mode", "outcome"}),
		fetchDurations: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "channel",
			Name:      "fetch_duration_seconds",
			Help:      "Duration of channel fetches",
			Buckets:   prometheus.DefBuckets,
		}, []string{"channel"}),
		actions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "action",
			Name:      "runs_total",
			Help:      "Queue actions, labeled by action and result",
		}, []string{"action", "result"}),
		actionDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "action",
			Name:      "duration_seconds",
			Help:      "Duration of queue actions",
			Buckets:   prometheus.DefBuckets,
		}, []string{"action"}),
		rounds: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "refresh",
			Name:      "rounds_total",
			Help:      "Refresh rounds, labeled by mode",
		}, []string{"mode"}),
		roundDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "refresh",
			Name:      "round_duration_seconds",
			Help:      "Duration of timer-driven refresh rounds",
			Buckets:   prometheus.DefBuckets,
		}),
		healthLatency: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "response_seconds",
			Help:      "Latency of the latest health probe",
		}),
		healthStatus: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "status",
			Help:      "1 for the current health status, 0 for the others",
		}, []string{"status"}),
		notifications: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "notification",
			Name:      "sent_total",
			Help:      "Push notifications, labeled by result",
		}, []string{"result"}),
	}
}

// ObserveFetch matches channel.ObserveFunc.
func (m *Metrics) ObserveFetch(name string, mode channel.Mode, outcome channel.Outcome, took time.Duration) {
	if m == nil {
		return
	}
	m.fetches.WithLabelValues(name, mode.String(), outcome.String()).Inc()
	m.fetchDurations.WithLabelValues(name).Observe(took.Seconds())
}

// ObserveAction matches action.ObserveFunc.
func (m *Metrics) ObserveAction(name action.Name, err error, took time.Duration) {
	if m == nil {
		return
	}
	result := "success"
	if err != nil {
		result = "failure"
	}
	m.actions.WithLabelValues(string(name), result).Inc()
	m.actionDuration.WithLabelValues(string(name)).Observe(took.Seconds())
}

// ObserveRound records a refresh round.
func (m *Metrics) ObserveRound(r refresh.Round) {
	if m == nil {
		return
	}
	m.rounds.WithLabelValues(r.Mode.String()).Inc()
	if r.Mode == channel.Silent {
		m.roundDuration.Observe(r.Took.Seconds())
	}
}

// ObserveHealth sets the health gauges. statuses lists every status label
// so the previous one is zeroed.
func (m *Metrics) ObserveHealth(status string, statuses []string, took time.Duration) {
	if m == nil {
		return
	}
	m.healthLatency.Set(took.Seconds())
	for _, s := range statuses {
		v := 0.0
		if s == status {
			v = 1
		}
		m.healthStatus.WithLabelValues(s).Set(v)
	}
}

// ObserveNotification counts one push attempt.
func (m *Metrics) ObserveNotification(err error) {
	if m == nil {
		return
	}
	result := "sent"
	if err != nil {
		result = "failed"
	}
	m.notifications.WithLabelValues(result).Inc()
}
