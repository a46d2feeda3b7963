package controller

import (
	"errors"
	"log"
	"strings"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"leadnexus/core"
	"leadnexus/models"
	"leadnexus/utils"
)

type AdminController struct {
	DB      *gorm.DB
	Ledger  *core.CreditLedger
	Intake  *core.LeadIntake
	Premium *core.PremiumStatusManager
	Logger  *log.Logger
}

func NewAdminController(db *gorm.DB, ledger *core.CreditLedger, intake *core.LeadIntake, premium *core.PremiumStatusManager, logger *log.Logger) *AdminController {
	return &AdminController{DB: db, Ledger: ledger, Intake: intake, Premium: premium, Logger: logger}
}

// RegisterProvider creates a provider account with its service area
func (ac *AdminController) RegisterProvider(c *fiber.Ctx) error {
	var input struct {
		CompanyName string   `json:"company_name" validate:"required,max=200"`
		Email       string   `json:"email" validate:"required,email"`
		Phone       string   `json:"phone" validate:"required,min=7,max=20"`
		ServiceZips []string `json:"service_zips" validate:"required,min=1,dive,len=5,numeric"`
	}

	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}
	if err := utils.ValidateStruct(input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", err)
	}

	provider := models.Provider{
		CompanyName: input.CompanyName,
		Email:       strings.ToLower(input.Email),
		Phone:       input.Phone,
		Status:      models.ProviderActive,
	}
	// Duplicate zips in the request collapse to one service area each, so a
	// sloppy payload cannot make the provider a double candidate for a lead.
	seen := make(map[string]bool, len(input.ServiceZips))
	err := ac.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&provider).Error; err != nil {
			return err
		}
		for _, zip := range input.ServiceZips {
			if seen[zip] {
				continue
			}
			seen[zip] = true
			if err := tx.Create(&models.ServiceArea{ProviderID: provider.ID, Zip: zip}).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		ac.Logger.Printf("provider registration failed: %v", err)
		return utils.ErrorResponse(c, fiber.StatusConflict, "Failed to register provider", err)
	}

	return c.Status(fiber.StatusCreated).JSON(utils.SuccessResponse(provider))
}

// AdjustCredits applies a signed admin adjustment to a provider's balance.
// Every call writes exactly one admin_adjust ledger entry.
func (ac *AdminController) AdjustCredits(c *fiber.Ctx) error {
	providerID, err := c.ParamsInt("id")
	if err != nil || providerID <= 0 {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid provider id", nil)
	}

	var input struct {
		Delta  int    `json:"delta" validate:"required"`
		Reason string `json:"reason" validate:"required,max=500"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}
	if err := utils.ValidateStruct(input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", err)
	}

	newBalance, err := ac.Ledger.Adjust(uint(providerID), input.Delta, input.Reason)
	if err != nil {
		switch {
		case errors.Is(err, core.ErrNotFound):
			return utils.ErrorResponse(c, fiber.StatusNotFound, "Provider not found", nil)
		case errors.Is(err, core.ErrInsufficientCredit):
			return utils.ErrorResponse(c, fiber.StatusConflict, "Adjustment would drive the balance below zero", nil)
		}
		ac.Logger.Printf("credit adjustment failed: %v", err)
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to adjust credits", nil)
	}

	return c.JSON(utils.SuccessResponse(fiber.Map{"new_balance": newBalance}))
}

// ListTransactions returns a provider's ledger for reconciliation audits
func (ac *AdminController) ListTransactions(c *fiber.Ctx) error {
	providerID, err := c.ParamsInt("id")
	if err != nil || providerID <= 0 {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid provider id", nil)
	}

	var transactions []models.CreditTransaction
	if err := ac.DB.Where("provider_id = ?", providerID).
		Order("id ASC").Find(&transactions).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to load transactions", nil)
	}

	return c.JSON(utils.SuccessResponse(transactions))
}

// ResendLead re-dispatches an existing lead to its resolved targets
func (ac *AdminController) ResendLead(c *fiber.Ctx) error {
	code := c.Params("code")
	if code == "" {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Lead code is required", nil)
	}

	lead, result, err := ac.Intake.Resend(code)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return utils.ErrorResponse(c, fiber.StatusNotFound, "Lead not found", nil)
		}
		ac.Logger.Printf("lead resend failed: %v", err)
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to resend lead", nil)
	}

	return c.JSON(utils.SuccessResponse(fiber.Map{
		"lead_id":      lead.Code,
		"full_count":   result.FullCount,
		"teaser_count": result.TeaserCount,
	}))
}

// RunPremiumSweep triggers the expiry sweep synchronously
func (ac *AdminController) RunPremiumSweep(c *fiber.Ctx) error {
	expired, err := ac.Premium.SweepExpirations()
	if err != nil {
		ac.Logger.Printf("premium sweep failed: %v", err)
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Sweep failed", nil)
	}
	return c.JSON(utils.SuccessResponse(fiber.Map{"expired": expired}))
}
