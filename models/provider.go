package models

import (
	"time"

	"gorm.io/gorm"
)

// Provider statuses
const (
	ProviderActive    = "active"
	ProviderInactive  = "inactive"
	ProviderSuspended = "suspended"
)

// Provider represents a service provider that buys leads with prepaid credits
type Provider struct {
	gorm.Model

	CompanyName string `gorm:"not null" json:"company_name"`
	Email       string `gorm:"uniqueIndex;not null" json:"email"` // stored lowercase
	Phone       string `json:"phone"`

	// Account status
	Status string `gorm:"default:'active';index" json:"status"` // active, inactive, suspended

	// Credit balance, never negative. Mutated only through the credit ledger.
	CreditBalance      int `gorm:"default:0" json:"credit_balance"`
	TotalLeadsReceived int `gorm:"default:0" json:"total_leads_received"`

	// Premium perk state, maintained by the premium status manager
	Verified         bool       `gorm:"default:false" json:"verified"`
	PriorityWeight   int        `gorm:"default:0" json:"priority_weight"`
	PremiumExpiresAt *time.Time `json:"premium_expires_at,omitempty"`
	LastPurchaseAt   *time.Time `json:"last_purchase_at,omitempty"`

	// Relations
	ServiceAreas []ServiceArea       `gorm:"foreignKey:ProviderID" json:"service_areas,omitempty"`
	Transactions []CreditTransaction `gorm:"foreignKey:ProviderID" json:"transactions,omitempty"`
}

// ServiceArea maps a provider to one zip code it serves (normalized)
type ServiceArea struct {
	gorm.Model
	ProviderID uint   `gorm:"not null;index" json:"provider_id"`
	Zip        string `gorm:"not null;index;size:5" json:"zip"`
}
