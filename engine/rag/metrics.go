package rag

import (
	"errors"
	"time"

	"github.com/ailegalmate/legalmate/engine/domain"
	"github.com/ailegalmate/legalmate/pkg/metrics"
)

// Pipeline variants, used as metric and event labels.
const (
	variantAsk     = "ask"
	variantAnalyze = "analyze"
	variantForm    = "form"
	variantUpload  = "upload"
)

type pipelineMetrics struct {
	reg *metrics.Registry
}

func newPipelineMetrics(reg *metrics.Registry) *pipelineMetrics {
	return &pipelineMetrics{reg: reg}
}

// outcome classifies a pipeline error for the requests counter.
func outcome(err error) string {
	var pe *domain.PersistenceError
	switch {
	case err == nil:
		return "ok"
	case domain.IsValidation(err):
		return "invalid"
	case domain.IsUpstream(err):
		return "upstream_error"
	case errors.As(err, &pe):
		return "persistence_error"
	default:
		return "error"
	}
}

func (m *pipelineMetrics) observe(variant string, start time.Time, err error) {
	m.reg.Counter(metrics.WithLabels("legalmate_pipeline_requests_total", "variant", variant, "outcome", outcome(err)),
		"Pipeline runs by variant and outcome.").Inc()
	m.reg.Histogram(metrics.WithLabels("legalmate_pipeline_duration_seconds", "variant", variant),
		"Pipeline run latency.", nil).Since(start)
}

func (m *pipelineMetrics) persistFailure(op string) *metrics.Counter {
	return m.reg.Counter(metrics.WithLabels("legalmate_persist_failures_total", "op", op),
		"Failed saves of pipeline records.")
}

func (m *pipelineMetrics) publishFailure(subject string) *metrics.Counter {
	return m.reg.Counter(metrics.WithLabels("legalmate_event_publish_failures_total", "subject", subject),
		"Events that could not be published.")
}

func (m *pipelineMetrics) breakerState(name string) *metrics.Gauge {
	return m.reg.Gauge(metrics.WithLabels("legalmate_breaker_state", "upstream", name),
		"Upstream circuit breaker state (0 closed, 1 open, 2 half-open).")
}
