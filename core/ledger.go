package core

import (
	"errors"
	"fmt"
	"log"

	"gorm.io/gorm"

	"leadnexus/models"
)

// CreditLedger owns provider credit balances and the append-only transaction
// log. It is the only component allowed to mutate balances.
type CreditLedger struct {
	DB     *gorm.DB
	Logger *log.Logger
}

func NewCreditLedger(db *gorm.DB, logger *log.Logger) *CreditLedger {
	return &CreditLedger{DB: db, Logger: logger}
}

// Debit atomically charges cost credits from a provider. The balance guard is
// part of the UPDATE itself, so two concurrent debits against a provider with
// one remaining credit cannot both succeed. Returns the new balance, or
// ErrInsufficientCredit with no mutation when the guard fails.
func (cl *CreditLedger) Debit(providerID uint, cost int, reference string) (int, error) {
	if cost <= 0 {
		return 0, fmt.Errorf("debit cost must be positive, got %d", cost)
	}

	var newBalance int
	err := cl.DB.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Provider{}).
			Where("id = ? AND credit_balance >= ?", providerID, cost).
			Update("credit_balance", gorm.Expr("credit_balance - ?", cost))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			var count int64
			if err := tx.Model(&models.Provider{}).Where("id = ?", providerID).Count(&count).Error; err != nil {
				return err
			}
			if count == 0 {
				return ErrNotFound
			}
			return ErrInsufficientCredit
		}
		return cl.appendEntry(tx, providerID, models.TxLeadDebit, -cost, reference, &newBalance)
	})
	if err != nil {
		return 0, err
	}

	cl.Logger.Printf("debited %d credits from provider %d (ref=%s, balance=%d)", cost, providerID, reference, newBalance)
	return newBalance, nil
}

// Credit adds amount credits to a provider and appends one ledger entry.
func (cl *CreditLedger) Credit(providerID uint, amount int, txType, reference string) (int, error) {
	if amount <= 0 {
		return 0, fmt.Errorf("credit amount must be positive, got %d", amount)
	}

	var newBalance int
	err := cl.DB.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Provider{}).
			Where("id = ?", providerID).
			Update("credit_balance", gorm.Expr("credit_balance + ?", amount))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return cl.appendEntry(tx, providerID, txType, amount, reference, &newBalance)
	})
	if err != nil {
		return 0, err
	}

	cl.Logger.Printf("credited %d credits to provider %d (type=%s, ref=%s, balance=%d)", amount, providerID, txType, reference, newBalance)
	return newBalance, nil
}

// Adjust applies a signed admin adjustment. Negative deltas carry the same
// never-below-zero guard as debits.
func (cl *CreditLedger) Adjust(providerID uint, delta int, reason string) (int, error) {
	if delta == 0 {
		return cl.BalanceOf(providerID)
	}

	var newBalance int
	err := cl.DB.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Provider{}).
			Where("id = ? AND credit_balance + ? >= 0", providerID, delta).
			Update("credit_balance", gorm.Expr("credit_balance + ?", delta))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			var count int64
			if err := tx.Model(&models.Provider{}).Where("id = ?", providerID).Count(&count).Error; err != nil {
				return err
			}
			if count == 0 {
				return ErrNotFound
			}
			return ErrInsufficientCredit
		}
		return cl.appendEntry(tx, providerID, models.TxAdminAdjust, delta, reason, &newBalance)
	})
	if err != nil {
		return 0, err
	}
	return newBalance, nil
}

// BalanceOf reads a provider's current balance.
func (cl *CreditLedger) BalanceOf(providerID uint) (int, error) {
	var provider models.Provider
	if err := cl.DB.Select("credit_balance").First(&provider, providerID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, ErrNotFound
		}
		return 0, err
	}
	return provider.CreditBalance, nil
}

// appendEntry re-reads the post-mutation balance inside the transaction and
// writes exactly one immutable ledger entry snapshotting it.
func (cl *CreditLedger) appendEntry(tx *gorm.DB, providerID uint, txType string, amount int, reference string, newBalance *int) error {
	var provider models.Provider
	if err := tx.Select("credit_balance").First(&provider, providerID).Error; err != nil {
		return err
	}
	*newBalance = provider.CreditBalance

	entry := models.CreditTransaction{
		ProviderID:   providerID,
		Type:         txType,
		Amount:       amount,
		BalanceAfter: provider.CreditBalance,
		Reference:    reference,
	}
	return tx.Create(&entry).Error
}
