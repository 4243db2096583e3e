package service

import "github.com/akylbek/payment-system/payment-gate/internal/models"

// nextStatus returns the ledger status for a session currently in current after
// the provider reported observed, and whether a write is needed.
//
// Terminal sessions never move. pending -> pending is re-written so the stored
// payload tracks the latest provider response.
func nextStatus(current models.SessionStatus, observed models.ProviderStatus) (models.SessionStatus, bool) {
	if current.IsTerminal() {
		return current, false
	}

	switch observed {
	case models.ProviderPaid, models.ProviderNoPaymentRequired:
		return models.StatusPaid, true
	case models.ProviderUnpaid:
		return models.StatusPending, true
	case models.ProviderFailed:
		return models.StatusFailed, true
	case models.ProviderExpired:
		return models.StatusExpired, true
	}

	if current == models.StatusError {
		return current, false
	}
	return models.StatusError, true
}
