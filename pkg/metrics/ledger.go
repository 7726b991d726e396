package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	pkgerrors "github.com/angelmondragon/retailops-backend/pkg/errors"
)

const namespace = "retailops"

// Outcome labels shared by ledger and purchase order counters.
const (
	OutcomeSuccess  = "success"
	OutcomeRejected = "rejected"
	OutcomeError    = "error"
)

// Outcome classifies err for the operation counter. Typed errors that map to a
// 4xx response are caller rejections; everything else is an error.
func Outcome(err error) string {
	if err == nil {
		return OutcomeSuccess
	}
	if typed := pkgerrors.As(err); typed != nil && pkgerrors.MetadataFor(typed.Code()).HTTPStatus < 500 {
		return OutcomeRejected
	}
	return OutcomeError
}

// LedgerMetrics tracks wallet ledger and purchase order engine activity.
type LedgerMetrics struct {
	operations  *prometheus.CounterVec
	transitions *prometheus.CounterVec
	checked     prometheus.Counter
	drifted     prometheus.Counter
}

// NewLedgerMetrics registers the ledger metrics on the provided registerer.
// A nil registerer yields a no-op recorder.
func NewLedgerMetrics(reg prometheus.Registerer) *LedgerMetrics {
	if reg == nil {
		return &LedgerMetrics{}
	}
	operations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "ledger_operations_total",
		Help:      "Wallet ledger and purchase order operations by outcome.",
	}, []string{"operation", "outcome"})
	transitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "purchase_order_transitions_total",
		Help:      "Purchase order status transitions.",
	}, []string{"from", "to"})
	checked := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "ledger_reconciliation_wallets_checked_total",
		Help:      "Wallets replayed by the reconciliation job.",
	})
	drifted := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "ledger_reconciliation_drift_total",
		Help:      "Wallets whose stored balance disagreed with the replayed log.",
	})
	reg.MustRegister(operations, transitions, checked, drifted)
	return &LedgerMetrics{
		operations:  operations,
		transitions: transitions,
		checked:     checked,
		drifted:     drifted,
	}
}

// ObserveOperation counts one ledger or engine call.
func (m *LedgerMetrics) ObserveOperation(operation, outcome string) {
	if m == nil || m.operations == nil {
		return
	}
	m.operations.WithLabelValues(normalizeLabel(operation), normalizeLabel(outcome)).Inc()
}

// ObserveTransition counts a committed purchase order status change.
func (m *LedgerMetrics) ObserveTransition(from, to string) {
	if m == nil || m.transitions == nil || from == to {
		return
	}
	m.transitions.WithLabelValues(normalizeLabel(from), normalizeLabel(to)).Inc()
}

// ObserveReconciliation records one replayed wallet.
func (m *LedgerMetrics) ObserveReconciliation(drift bool) {
	if m == nil || m.checked == nil {
		return
	}
	m.checked.Inc()
	if drift {
		m.drifted.Inc()
	}
}
