package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	OutcomeSettled            = "settled"
	OutcomeSettledDegraded    = "settled_degraded"
	OutcomeNotFound           = "not_found"
	OutcomeAlreadySettled     = "already_settled"
	OutcomeExceedsBalance     = "exceeds_balance"
	OutcomeDuplicateReference = "duplicate_reference"
	OutcomeConflict           = "conflict"
	OutcomeInvalid            = "invalid"
	OutcomeError              = "error"
)

const (
	DocumentStageSettlement = "settlement"
	DocumentStageRegenerate = "regenerate"
	DocumentStageBulk       = "bulk"
)

// SettlementMetrics is safe to use through a nil pointer; every method is a
// no-op in that case.
type SettlementMetrics struct {
	settlements      *prometheus.CounterVec
	settledAmount    *prometheus.CounterVec
	duration         *prometheus.HistogramVec
	retries          prometheus.Counter
	documentFailures *prometheus.CounterVec
	bulkItems        *prometheus.CounterVec
}

func NewSettlementMetrics(registerer prometheus.Registerer) *SettlementMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	m := &SettlementMetrics{
		settlements: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "payroll_settlements_total",
			Help: "Payslip settlement attempts by outcome.",
		}, []string{"outcome"}),
		settledAmount: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "payroll_settled_amount_total",
			Help: "Sum of committed payment amounts in the smallest currency unit.",
		}, []string{"method"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "payroll_settlement_duration_seconds",
			Help:    "Settlement latency including document regeneration.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"outcome"}),
		retries: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "payroll_settlement_retries_total",
			Help: "Settlements retried after losing the optimistic amount_paid check.",
		}),
		documentFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "payroll_document_failures_total",
			Help: "Payslip document generation failures by stage.",
		}, []string{"stage"}),
		bulkItems: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "payroll_bulk_items_total",
			Help: "Bulk settlement items by result.",
		}, []string{"result"}),
	}

	registerer.MustRegister(
		m.settlements,
		m.settledAmount,
		m.duration,
		m.retries,
		m.documentFailures,
		m.bulkItems,
	)
	return m
}

func (m *SettlementMetrics) ObserveSettlement(outcome, method string, amount int64, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.settlements.WithLabelValues(outcome).Inc()
	m.duration.WithLabelValues(outcome).Observe(elapsed.Seconds())
	if outcome == OutcomeSettled || outcome == OutcomeSettledDegraded {
		m.settledAmount.WithLabelValues(method).Add(float64(amount))
	}
}

func (m *SettlementMetrics) IncRetry() {
	if m == nil {
		return
	}
	m.retries.Inc()
}

func (m *SettlementMetrics) IncDocumentFailure(stage string) {
	if m == nil {
		return
	}
	m.documentFailures.WithLabelValues(stage).Inc()
}

func (m *SettlementMetrics) IncBulkItem(success bool) {
	if m == nil {
		return
	}
	result := "failed"
	if success {
		result = "succeeded"
	}
	m.bulkItems.WithLabelValues(result).Inc()
}
