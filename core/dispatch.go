package core

import (
	"errors"
	"log"

	"gorm.io/gorm"

	"leadnexus/models"
)

// DispatchResult aggregates one dispatch pass over a candidate set.
type DispatchResult struct {
	FullCount   int `json:"full_count"`
	TeaserCount int `json:"teaser_count"`
}

// Dispatcher decides full-send vs teaser per candidate, charges the ledger
// for full sends, and emits the notification side effects.
type Dispatcher struct {
	DB       *gorm.DB
	Ledger   *CreditLedger
	Notifier Notifier
	Logger   *log.Logger
	UnitCost int
}

func NewDispatcher(db *gorm.DB, ledger *CreditLedger, notifier Notifier, logger *log.Logger, unitCost int) *Dispatcher {
	return &Dispatcher{DB: db, Ledger: ledger, Notifier: notifier, Logger: logger, UnitCost: unitCost}
}

// Dispatch processes every candidate to completion before the lead's
// aggregate status is written, so the status always reflects the full
// outcome. Per candidate: a successful debit gets the full record, an
// insufficient balance gets the teaser with no ledger mutation. Notification
// failures are logged and recorded but never refund a committed debit.
func (d *Dispatcher) Dispatch(lead *models.Lead, candidates []models.Provider) (DispatchResult, error) {
	var result DispatchResult
	var lastFullProviderID uint

	for i := range candidates {
		candidate := &candidates[i]

		_, err := d.Ledger.Debit(candidate.ID, d.UnitCost, lead.Code)
		switch {
		case err == nil:
			notifyResult := NotificationSent
			if nerr := d.Notifier.SendLeadFull(candidate, lead); nerr != nil {
				// Credits already spent stay spent; delivery is attempted
				// once, not guaranteed.
				d.Logger.Printf("full-lead notification to provider %d failed for lead %s: %v", candidate.ID, lead.Code, nerr)
				notifyResult = NotificationFailed
			}
			if err := d.recordFullSend(lead, candidate, notifyResult); err != nil {
				return result, err
			}
			result.FullCount++
			lastFullProviderID = candidate.ID

		case errors.Is(err, ErrInsufficientCredit):
			notifyResult := NotificationSent
			if nerr := d.Notifier.SendLeadTeaser(candidate, lead); nerr != nil {
				d.Logger.Printf("teaser notification to provider %d failed for lead %s: %v", candidate.ID, lead.Code, nerr)
				notifyResult = NotificationFailed
			}
			delivery := models.LeadDelivery{LeadID: lead.ID, ProviderID: candidate.ID, Kind: models.DeliveryTeaser, Result: notifyResult}
			if err := d.DB.Create(&delivery).Error; err != nil {
				return result, err
			}
			result.TeaserCount++

		default:
			return result, err
		}
	}

	if err := d.finalizeLead(lead, result, lastFullProviderID); err != nil {
		return result, err
	}
	return result, nil
}

func (d *Dispatcher) recordFullSend(lead *models.Lead, provider *models.Provider, notifyResult string) error {
	return d.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Provider{}).Where("id = ?", provider.ID).
			Update("total_leads_received", gorm.Expr("total_leads_received + ?", 1)).Error; err != nil {
			return err
		}
		delivery := models.LeadDelivery{LeadID: lead.ID, ProviderID: provider.ID, Kind: models.DeliveryFull, Result: notifyResult}
		return tx.Create(&delivery).Error
	})
}

// finalizeLead writes the aggregate outcome. Purchased leads are never
// re-priced or reverted; a zero-candidate pass leaves the lead at new.
func (d *Dispatcher) finalizeLead(lead *models.Lead, result DispatchResult, lastFullProviderID uint) error {
	if lead.Status == models.LeadPurchased {
		return nil
	}

	switch {
	case result.FullCount > 0:
		updates := map[string]interface{}{
			"status":          models.LeadSent,
			"credits_charged": gorm.Expr("credits_charged + ?", d.UnitCost*result.FullCount),
		}
		if result.FullCount == 1 {
			updates["assigned_provider_id"] = lastFullProviderID
		} else {
			updates["assigned_provider_id"] = nil
		}
		if err := d.DB.Model(lead).Updates(updates).Error; err != nil {
			return err
		}
		lead.Status = models.LeadSent
		lead.CreditsCharged += d.UnitCost * result.FullCount

	case result.TeaserCount > 0:
		// Only an untouched lead moves to teaser_sent; a resend must not
		// downgrade a lead that already went out in full.
		res := d.DB.Model(&models.Lead{}).
			Where("id = ? AND status = ?", lead.ID, models.LeadNew).
			Update("status", models.LeadTeaserSent)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 1 {
			lead.Status = models.LeadTeaserSent
		}
	}
	return nil
}
