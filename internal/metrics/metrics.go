// Package metrics collects runbook step metrics and pushes them to a
// Prometheus Pushgateway. hostctl is short-lived, so metrics are pushed
// once at the end of a run instead of being scraped.
package metrics

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

// DefaultJob is the Pushgateway job name.
const DefaultJob = "hostctl"

// Recorder owns a registry with the hostctl metrics.
type Recorder struct {
	registry *prometheus.Registry

	stepsTotal   *prometheus.CounterVec
	stepDuration *prometheus.HistogramVec
	lastSuccess  prometheus.Gauge
	successOnce  sync.Once
}

// NewRecorder creates a recorder with its own registry. The last-success
// gauge joins the registry only once a success is recorded.
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		stepsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "hostctl",
				Name:      "steps_total",
				Help:      "Total number of runbook steps by action and status",
			},
			[]string{"action", "status"},
		),
		stepDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "hostctl",
				Name:      "step_duration_seconds",
				Help:      "Duration of runbook steps in seconds",
				Buckets:   prometheus.ExponentialBuckets(0.1, 2, 12), // 100ms to ~3.4min
			},
			[]string{"action"},
		),
		lastSuccess: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "hostctl",
				Name:      "run_last_success_timestamp",
				Help:      "Unix time of the last run that finished without error",
			},
		),
	}
	r.registry.MustRegister(r.stepsTotal, r.stepDuration)
	return r
}

// Registry exposes the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// RecordStep records one finished step.
func (r *Recorder) RecordStep(action, status string, d time.Duration) {
	r.stepsTotal.WithLabelValues(action, status).Inc()
	r.stepDuration.WithLabelValues(action).Observe(d.Seconds())
}

// RecordRunSuccess stamps the time of a successful run.
func (r *Recorder) RecordRunSuccess(t time.Time) {
	r.successOnce.Do(func() { r.registry.MustRegister(r.lastSuccess) })
	r.lastSuccess.Set(float64(t.Unix()))
}

// Push sends the collected metrics to the Pushgateway at url, grouped by host.
// Metrics are added (POST), so a gauge absent from this push keeps the value
// stored by an earlier one.
func (r *Recorder) Push(ctx context.Context, url, job, host string) error {
	if job == "" {
		job = DefaultJob
	}
	pusher := push.New(url, job).Gatherer(r.registry)
	if host != "" {
		pusher = pusher.Grouping("host", host)
	}
	if err := pusher.AddContext(ctx); err != nil {
		return fmt.Errorf("failed to push metrics to %s: %w", url, err)
	}
	log.Printf("[Metrics] Pushed to %s (job=%s host=%s)", url, job, host)
	return nil
}
