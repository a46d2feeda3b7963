package models

import "gorm.io/gorm"

// Credit transaction types
const (
	TxLeadDebit          = "lead_debit"
	TxPackCredit         = "pack_credit"
	TxSubscriptionCredit = "subscription_credit"
	TxAdminAdjust        = "admin_adjust"
)

// CreditTransaction is one immutable entry in a provider's credit ledger.
// The sum of a provider's transaction amounts always equals its current
// credit balance; BalanceAfter snapshots the post-mutation balance.
type CreditTransaction struct {
	gorm.Model
	ProviderID uint `gorm:"not null;index" json:"provider_id"`

	Type         string `gorm:"not null" json:"type"`
	Amount       int    `gorm:"not null" json:"amount"` // signed: negative for debits
	BalanceAfter int    `gorm:"not null" json:"balance_after"`

	// Lead code or external payment id that caused the entry
	Reference string `gorm:"index" json:"reference"`

	// Relations
	Provider Provider `json:"-"`
}
