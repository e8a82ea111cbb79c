// Package prompush implements a Prometheus Pushgateway backend for the
// metrics package. Collectors live in a private registry that Flush pushes
// under the configured job name; nothing is exposed for scraping.
package prompush

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"

	"starload/internal/metrics"
)

// Backend is a Prometheus Pushgateway metrics backend.
type Backend struct {
	gatewayURL string
	jobName    string
	reg        *prometheus.Registry

	stepCounter  *prometheus.CounterVec
	stepDuration *prometheus.SummaryVec
	rowCounter   *prometheus.CounterVec
	batchCounter *prometheus.CounterVec
	runCounter   *prometheus.CounterVec
	runDuration  *prometheus.SummaryVec
}

// NewBackend constructs a Pushgateway backend. jobName is the Pushgateway
// grouping job and defaults to "starload".
func NewBackend(jobName, gatewayURL string) (*Backend, error) {
	if gatewayURL == "" {
		return nil, fmt.Errorf("prompush: gateway URL is required")
	}
	if jobName == "" {
		jobName = "starload"
	}

	objectives := map[float64]float64{0.5: 0.05, 0.9: 0.01, 0.99: 0.001}
	b := &Backend{
		gatewayURL: gatewayURL,
		jobName:    jobName,
		reg:        prometheus.NewRegistry(),
		stepCounter: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: metrics.StepTotal,
			Help: "Pipeline step executions by table, step and status.",
		}, []string{"table", "step", "status"}),
		stepDuration: prometheus.NewSummaryVec(prometheus.SummaryOpts{
			Name:       metrics.StepDuration,
			Help:       "Pipeline step duration in seconds by table, step and status.",
			Objectives: objectives,
		}, []string{"table", "step", "status"}),
		rowCounter: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: metrics.RowsTotal,
			Help: "Rows per table and kind (extracted, written, rejected, ...).",
		}, []string{"table", "kind"}),
		batchCounter: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: metrics.BatchesTotal,
			Help: "Write batches flushed per table.",
		}, []string{"table"}),
		runCounter: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: metrics.RunsTotal,
			Help: "Chain runs by status.",
		}, []string{"status"}),
		runDuration: prometheus.NewSummaryVec(prometheus.SummaryOpts{
			Name:       metrics.RunDuration,
			Help:       "Chain run duration in seconds by status.",
			Objectives: objectives,
		}, []string{"status"}),
	}

	for _, c := range []prometheus.Collector{
		b.stepCounter, b.stepDuration, b.rowCounter, b.batchCounter, b.runCounter, b.runDuration,
	} {
		if err := b.reg.Register(c); err != nil {
			return nil, fmt.Errorf("prompush: register collector: %w", err)
		}
	}
	return b, nil
}

func (b *Backend) IncCounter(name string, delta float64, labels metrics.Labels) {
	switch name {
	case metrics.StepTotal:
		if b.stepCounter != nil {
			b.stepCounter.WithLabelValues(labels["table"], labels["step"], labels["status"]).Add(delta)
		}
	case metrics.RowsTotal:
		if b.rowCounter != nil {
			b.rowCounter.WithLabelValues(labels["table"], labels["kind"]).Add(delta)
		}
	case metrics.BatchesTotal:
		if b.batchCounter != nil {
			b.batchCounter.WithLabelValues(labels["table"]).Add(delta)
		}
	case metrics.RunsTotal:
		if b.runCounter != nil {
			b.runCounter.WithLabelValues(labels["status"]).Add(delta)
		}
	}
}

func (b *Backend) ObserveHistogram(name string, value float64, labels metrics.Labels) {
	switch name {
	case metrics.StepDuration:
		if b.stepDuration != nil {
			b.stepDuration.WithLabelValues(labels["table"], labels["step"], labels["status"]).Observe(value)
		}
	case metrics.RunDuration:
		if b.runDuration != nil {
			b.runDuration.WithLabelValues(labels["status"]).Observe(value)
		}
	}
}

// Flush pushes the current registry to the Pushgateway.
func (b *Backend) Flush() error {
	return push.New(b.gatewayURL, b.jobName).
		Gatherer(b.reg).
		Push()
}
