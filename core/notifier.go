package core

import "leadnexus/models"

// NotificationResult is recorded alongside each delivery. Sends are
// best-effort: a failure never rolls back the ledger mutation that already
// committed for the same candidate.
const (
	NotificationSent    = "sent"
	NotificationFailed  = "failed"
	NotificationSkipped = "skipped"
)

// Notifier sends the human-facing side effects of routing and reconciliation.
// Implemented by utils.Mailer; faked in tests.
type Notifier interface {
	// SendLeadFull delivers the complete contact details to a provider
	SendLeadFull(provider *models.Provider, lead *models.Lead) error
	// SendLeadTeaser delivers the paywalled summary without contact details
	SendLeadTeaser(provider *models.Provider, lead *models.Lead) error
	// SendLeadToBuyer delivers full details of a single purchased lead
	SendLeadToBuyer(email string, lead *models.Lead) error
	// SendPurchaseReceipt confirms credits applied to a provider account
	SendPurchaseReceipt(provider *models.Provider, credits int, balance int) error
	// SendPremiumActivated confirms the verified + priority perk grant
	SendPremiumActivated(provider *models.Provider) error
	// SendOperatorAlert notifies a human about a payment that needs eyes
	SendOperatorAlert(subject, detail string) error
}
