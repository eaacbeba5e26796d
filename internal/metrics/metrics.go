// Package metrics exposes run and step counters for the martingale engine:
//
//   - martinbot_runs_total{state}           runs by terminal state
//   - martinbot_steps_total{outcome}        recorded steps by outcome
//   - martinbot_submissions_total{result}   order submissions (accepted|rejected)
//   - martinbot_volume_doublings_total      loss steps followed by a doubled step
//   - martinbot_record_failures_total       step records that failed to persist
//   - martinbot_active_runs                 runs currently in progress
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	registry       *prometheus.Registry
	runs           *prometheus.CounterVec
	steps          *prometheus.CounterVec
	submissions    *prometheus.CounterVec
	doublings      prometheus.Counter
	recordFailures prometheus.Counter
	activeRuns     prometheus.Gauge
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		runs: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "martinbot_runs_total",
				Help: "Martingale runs by terminal state",
			},
			[]string{"state"},
		),
		steps: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "martinbot_steps_total",
				Help: "Recorded martingale steps by outcome",
			},
			[]string{"outcome"},
		),
		submissions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "martinbot_submissions_total",
				Help: "Order submissions by result",
			},
			[]string{"result"},
		),
		doublings: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "martinbot_volume_doublings_total",
				Help: "Loss steps followed by a doubled step",
			},
		),
		recordFailures: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "martinbot_record_failures_total",
				Help: "Step records that could not be persisted",
			},
		),
		activeRuns: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "martinbot_active_runs",
				Help: "Martingale runs in progress",
			},
		),
	}
	m.registry.MustRegister(m.runs, m.steps, m.submissions, m.doublings, m.recordFailures, m.activeRuns)
	return m
}

// Methods are nil-safe so callers may run without metrics.

func (m *Metrics) RunStarted() {
	if m == nil {
		return
	}
	m.activeRuns.Inc()
}

func (m *Metrics) RunFinished(state string) {
	if m == nil {
		return
	}
	m.activeRuns.Dec()
	m.runs.WithLabelValues(state).Inc()
}

func (m *Metrics) Step(outcome string) {
	if m == nil {
		return
	}
	m.steps.WithLabelValues(outcome).Inc()
}

func (m *Metrics) Submission(accepted bool) {
	if m == nil {
		return
	}
	result := "rejected"
	if accepted {
		result = "accepted"
	}
	m.submissions.WithLabelValues(result).Inc()
}

func (m *Metrics) Doubled() {
	if m == nil {
		return
	}
	m.doublings.Inc()
}

func (m *Metrics) RecordFailed() {
	if m == nil {
		return
	}
	m.recordFailures.Inc()
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
