// Package metrics provides internal Prometheus collectors for the relay
// service. This package is internal and should not be imported by external
// projects.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

// Turn outcomes reported to TurnObserved.
const (
	TurnOK     = "ok"
	TurnEmpty  = "empty"
	TurnFailed = "failed"
)

// Collector aggregates relay session and turn metrics.
type Collector struct {
	sessionsStarted   *prometheus.CounterVec
	sessionsEnded     *prometheus.CounterVec
	turnsTotal        *prometheus.CounterVec
	responderDuration *prometheus.HistogramVec
	responderErrors   *prometheus.CounterVec

	logger *zap.Logger
}

// NewCollector registers the relay collectors under the given namespace.
func NewCollector(namespace string, logger *zap.Logger) *Collector {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Collector{
		logger: logger.With(zap.String("component", "metrics")),
	}

	c.sessionsStarted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "relay_sessions_started_total",
			Help:      "Total number of relay sessions started",
		},
		[]string{"mode"},
	)

	c.sessionsEnded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "relay_sessions_ended_total",
			Help:      "Total number of relay sessions ended, by stop reason",
		},
		[]string{"reason"},
	)

	c.turnsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "relay_turns_total",
			Help:      "Total number of agent turns attempted, by outcome",
		},
		[]string{"outcome"},
	)

	c.responderDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "responder_request_duration_seconds",
			Help:      "Agent responder call duration in seconds",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"provider"},
	)

	c.responderErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "responder_errors_total",
			Help:      "Total number of failed agent responder calls",
		},
		[]string{"provider"},
	)

	return c
}

// SessionStarted records a new relay session. Mode is "relay", "facilitator"
// or "single".
func (c *Collector) SessionStarted(mode string) {
	c.sessionsStarted.WithLabelValues(mode).Inc()
}

// SessionEnded records a finished session with its stop reason.
func (c *Collector) SessionEnded(reason string) {
	c.sessionsEnded.WithLabelValues(reason).Inc()
}

// TurnObserved records the outcome of one turn attempt.
func (c *Collector) TurnObserved(outcome string) {
	c.turnsTotal.WithLabelValues(outcome).Inc()
}

// ObserveResponder records one responder call.
func (c *Collector) ObserveResponder(provider string, d time.Duration, err error) {
	if provider == "" {
		provider = "default"
	}
	c.responderDuration.WithLabelValues(provider).Observe(d.Seconds())
	if err != nil {
		c.responderErrors.WithLabelValues(provider).Inc()
	}
}
