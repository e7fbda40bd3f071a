// Package metrics exposes agent run counters. Runs are short-lived, so metrics are
// pushed to a Prometheus Pushgateway rather than scraped.
package metrics

import (
	"context"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/push"
)

// Metrics holds the collectors of one process
type Metrics struct {
	registry *prometheus.Registry

	RunsTotal       *prometheus.CounterVec
	EventsProcessed *prometheus.CounterVec
	Batches         *prometheus.CounterVec
	EventsTagged    *prometheus.CounterVec
	RunDuration     *prometheus.HistogramVec
}

// New creates collectors on a private registry
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		RunsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "argus_agent_runs_total",
			Help: "Total number of agent runs, labelled by agent type and terminal status.",
		}, []string{"agent_type", "status"}),

		EventsProcessed: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "argus_events_processed_total",
			Help: "Total number of candidate events scanned by agents.",
		}, []string{"agent_type"}),

		Batches: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "argus_batches_total",
			Help: "Total number of candidate batches fetched.",
		}, []string{"agent_type"}),

		EventsTagged: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "argus_events_tagged_total",
			Help: "Total number of events tagged with a group id.",
		}, []string{"agent_type"}),

		RunDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "argus_agent_run_duration_seconds",
			Help:    "Wall-clock duration of agent runs.",
			Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 20, 30, 60},
		}, []string{"agent_type"}),
	}
}

// ObserveRun records the outcome of one run
func (m *Metrics) ObserveRun(agentType, status string, processed, batches, tagged int, elapsed time.Duration) {
	m.RunsTotal.WithLabelValues(agentType, status).Inc()
	m.EventsProcessed.WithLabelValues(agentType).Add(float64(processed))
	m.Batches.WithLabelValues(agentType).Add(float64(batches))
	m.EventsTagged.WithLabelValues(agentType).Add(float64(tagged))
	m.RunDuration.WithLabelValues(agentType).Observe(elapsed.Seconds())
}

// Push sends all collected metrics to a Pushgateway under the job name
func (m *Metrics) Push(ctx context.Context, url, job string) error {
	if err := push.New(url, job).Gatherer(m.registry).PushContext(ctx); err != nil {
		return goerr.Wrap(err, "failed to push metrics", goerr.V("url", url), goerr.V("job", job))
	}
	return nil
}
