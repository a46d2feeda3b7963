package controller

import (
	"errors"
	"log"

	"github.com/gofiber/fiber/v2"

	"leadnexus/core"
	"leadnexus/utils"
)

type ProviderController struct {
	Directory *core.ProviderDirectory
	Logger    *log.Logger
}

func NewProviderController(directory *core.ProviderDirectory, logger *log.Logger) *ProviderController {
	return &ProviderController{Directory: directory, Logger: logger}
}

// GetBalance is the self-service balance query: provider email plus the last
// four digits of the phone on file. A suffix mismatch is an auth failure.
func (pc *ProviderController) GetBalance(c *fiber.Ctx) error {
	var input struct {
		Email      string `json:"email" validate:"required,email"`
		PhoneLast4 string `json:"phone_last4" validate:"required,len=4,numeric"`
	}

	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}
	if err := utils.ValidateStruct(input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", err)
	}

	provider, err := pc.Directory.Authenticate(input.Email, input.PhoneLast4)
	if err != nil {
		if errors.Is(err, core.ErrUnauthorized) {
			return utils.ErrorResponse(c, fiber.StatusUnauthorized, "Account verification failed", nil)
		}
		pc.Logger.Printf("balance query failed: %v", err)
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to query balance", nil)
	}

	return c.JSON(utils.SuccessResponse(fiber.Map{
		"company_name":         provider.CompanyName,
		"credit_balance":       provider.CreditBalance,
		"total_leads_received": provider.TotalLeadsReceived,
	}))
}
