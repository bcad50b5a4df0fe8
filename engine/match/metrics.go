package match

import (
	"time"

	"github.com/codauto/engine/engine/domain"
	"github.com/codauto/engine/pkg/metrics"
)

// Metrics instruments the pipeline on a shared registry.
type Metrics struct {
	reg        *metrics.Registry
	rowSeconds *metrics.Histogram
	batches    *metrics.Counter
	rowsFailed *metrics.Counter
}

// NewMetrics registers the pipeline's metrics on reg.
func NewMetrics(reg *metrics.Registry) *Metrics {
	return &Metrics{
		reg:        reg,
		rowSeconds: reg.Histogram("codification_row_seconds", "Per-row processing time", nil),
		batches:    reg.Counter("codification_batches_total", "Batches processed"),
		rowsFailed: reg.Counter("codification_rows_failed_total", "Rows that failed processing"),
	}
}

// ObserveRow records one row's outcome.
func (m *Metrics) ObserveRow(decision domain.Decision, success bool, start time.Time) {
	m.rowSeconds.Since(start)
	m.reg.Counter(
		metrics.WithLabels("codification_decisions_total", "decision", string(decision)),
		"Rows per decision",
	).Inc()
	if !success {
		m.rowsFailed.Inc()
	}
}

// ObserveBatch records a completed batch.
func (m *Metrics) ObserveBatch() {
	m.batches.Inc()
}
