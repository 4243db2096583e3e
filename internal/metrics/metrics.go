package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/akylbek/payment-system/payment-gate/internal/models"
)

var (
	SessionTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_session_transitions_total",
		Help: "Ledger status transitions by previous status, new status and source.",
	}, []string{"from", "to", "source"})

	WebhookEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_webhook_events_total",
		Help: "Webhook deliveries by result.",
	}, []string{"result"})

	ProviderCalls = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_provider_calls_total",
		Help: "Payment provider call attempts by operation and outcome.",
	}, []string{"operation", "outcome"})

	GateOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_gate_outcomes_total",
		Help: "Gate invocations by outcome and failure reason.",
	}, []string{"outcome", "reason"})

	LedgerReconciliations = promauto.NewCounter(prometheus.CounterOpts{
		Name: "payment_ledger_reconciliations_total",
		Help: "Sessions created at the provider whose ledger insert failed.",
	})
)

func ObserveTransition(from, to models.SessionStatus, source string) {
	SessionTransitions.WithLabelValues(string(from), string(to), source).Inc()
}

func ObserveWebhook(result string) {
	WebhookEvents.WithLabelValues(result).Inc()
}

func ObserveGate(outcome models.Outcome) {
	GateOutcomes.WithLabelValues(string(outcome.Kind), string(outcome.Reason)).Inc()
}

func ObserveProviderCall(operation string, err error) {
	ProviderCalls.WithLabelValues(operation, outcomeLabel(err)).Inc()
}

func outcomeLabel(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, models.ErrProviderRejected):
		return "rejected"
	case errors.Is(err, models.ErrSessionNotFound):
		return "not_found"
	case errors.Is(err, models.ErrSignatureInvalid):
		return "signature_invalid"
	case errors.Is(err, models.ErrUnsupportedEvent):
		return "unsupported_event"
	}
	return "unavailable"
}
