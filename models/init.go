package models

import "gorm.io/gorm"

// Migrate creates or updates the schema for every core table
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&Provider{},
		&ServiceArea{},
		&Lead{},
		&LeadDelivery{},
		&CreditTransaction{},
		&PaymentEvent{},
	)
}
