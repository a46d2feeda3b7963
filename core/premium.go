package core

import (
	"log"
	"time"

	"gorm.io/gorm"

	"leadnexus/models"
)

// PremiumStatusManager grants the time-boxed verified + priority perk on
// qualifying purchases and expires it via the periodic sweep.
type PremiumStatusManager struct {
	DB     *gorm.DB
	Logger *log.Logger

	// PriorityFloor is the minimum weight a premium provider carries
	PriorityFloor int
}

func NewPremiumStatusManager(db *gorm.DB, logger *log.Logger, priorityFloor int) *PremiumStatusManager {
	return &PremiumStatusManager{DB: db, Logger: logger, PriorityFloor: priorityFloor}
}

// Grant marks a provider verified and raises its priority weight to at least
// the floor, expiring durationDays from now. Safe to call repeatedly: the
// weight is a ceiling-raise, never additive.
func (pm *PremiumStatusManager) Grant(providerID uint, durationDays int) error {
	expiresAt := time.Now().AddDate(0, 0, durationDays)

	err := pm.DB.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Provider{}).Where("id = ?", providerID).Updates(map[string]interface{}{
			"verified":           true,
			"premium_expires_at": expiresAt,
		})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return tx.Model(&models.Provider{}).
			Where("id = ? AND priority_weight < ?", providerID, pm.PriorityFloor).
			Update("priority_weight", pm.PriorityFloor).Error
	})
	if err != nil {
		return err
	}

	pm.Logger.Printf("premium granted to provider %d until %s", providerID, expiresAt.Format(time.RFC3339))
	return nil
}

// SweepExpirations resets the perk on every provider whose premium window has
// passed. Re-running on the same state changes nothing, so the sweep can
// overlap with request handling and with itself.
func (pm *PremiumStatusManager) SweepExpirations() (int, error) {
	res := pm.DB.Model(&models.Provider{}).
		Where("premium_expires_at IS NOT NULL AND premium_expires_at < ?", time.Now()).
		Where("verified = ? OR priority_weight > 0", true).
		Updates(map[string]interface{}{
			"verified":        false,
			"priority_weight": 0,
		})
	if res.Error != nil {
		return 0, res.Error
	}
	if res.RowsAffected > 0 {
		pm.Logger.Printf("premium expired for %d providers", res.RowsAffected)
	}
	return int(res.RowsAffected), nil
}
