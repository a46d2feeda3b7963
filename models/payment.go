package models

import "gorm.io/gorm"

// PaymentEvent processing statuses
const (
	PaymentProcessing       = "processing"
	PaymentSuccess          = "success"
	PaymentAlreadyProcessed = "already_processed"
	PaymentFailed           = "failed"
)

// Classified purchase kinds
const (
	PurchaseCreditPack   = "credit_pack"
	PurchaseSubscription = "subscription"
	PurchaseSingleLead   = "single_lead"
	PurchaseUnknown      = "unknown"
)

// PaymentEvent records one gateway payment exactly once. The unique index on
// ExternalPaymentID is what makes duplicate webhook deliveries detectable
// before any side effect runs.
type PaymentEvent struct {
	gorm.Model

	ExternalPaymentID string `gorm:"uniqueIndex;not null" json:"external_payment_id"`
	RawAmount         int64  `json:"raw_amount"` // in cents, as reported by the gateway

	Kind   string `gorm:"default:'unknown'" json:"kind"`
	Status string `gorm:"default:'processing';index" json:"status"`

	// Payer email, resolved provider and applied credits for audits
	PayerEmail string `json:"payer_email"`
	ProviderID *uint  `json:"provider_id,omitempty"`
	Credits    int    `json:"credits"`

	Detail string `json:"detail,omitempty"`
}
