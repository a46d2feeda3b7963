package models

import (
	"gorm.io/gorm"
)

// Lead statuses. Status is monotonic: once purchased a lead is never re-priced
// or reverted.
const (
	LeadNew        = "new"
	LeadSent       = "sent"
	LeadTeaserSent = "teaser_sent"
	LeadPurchased  = "purchased"
)

// Delivery kinds recorded per notified provider
const (
	DeliveryFull   = "full"
	DeliveryTeaser = "teaser"
)

// Lead represents an inbound customer request routed to providers
type Lead struct {
	gorm.Model

	// Short opaque code used as the public lead reference
	Code string `gorm:"uniqueIndex;not null" json:"code"`

	// Customer contact
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Phone     string `json:"phone"`
	Email     string `gorm:"index" json:"email"`

	// Project details
	Zip         string `gorm:"not null;index;size:5" json:"zip"`
	ProjectType string `json:"project_type"`
	Size        string `json:"size"`
	Timeframe   string `json:"timeframe"`
	Message     string `gorm:"type:text" json:"message"`

	// Explicit targeting. When set, zip matching is suppressed entirely.
	ProviderID   *uint  `json:"provider_id,omitempty"`
	ProviderName string `json:"provider_name,omitempty"`

	// Routing outcome
	Status             string `gorm:"default:'new';index" json:"status"`
	AssignedProviderID *uint  `json:"assigned_provider_id,omitempty"` // set only when exactly one provider got the full record
	CreditsCharged     int    `gorm:"default:0" json:"credits_charged"`

	// Relations
	Deliveries []LeadDelivery `gorm:"foreignKey:LeadID" json:"deliveries,omitempty"`
}

// LeadDelivery records one notification attempt for a lead, in processing
// order. Rows are append-only; a resend adds new rows instead of replacing.
type LeadDelivery struct {
	gorm.Model
	LeadID     uint   `gorm:"not null;index" json:"lead_id"`
	ProviderID uint   `gorm:"not null;index" json:"provider_id"`
	Kind       string `gorm:"not null" json:"kind"`   // full, teaser
	Result     string `gorm:"not null" json:"result"` // sent, failed, skipped
}
