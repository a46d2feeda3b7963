package controller

import (
	"errors"
	"log"

	"github.com/gofiber/fiber/v2"

	"leadnexus/core"
	"leadnexus/utils"
)

type LeadController struct {
	Intake *core.LeadIntake
	Logger *log.Logger
}

func NewLeadController(intake *core.LeadIntake, logger *log.Logger) *LeadController {
	return &LeadController{Intake: intake, Logger: logger}
}

// CreateLead handles the public lead submission form
func (lc *LeadController) CreateLead(c *fiber.Ctx) error {
	var input core.LeadInput
	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}

	lead, leadType, err := lc.Intake.Submit(input)
	if err != nil {
		if errors.Is(err, core.ErrValidation) {
			return utils.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", err)
		}
		lc.Logger.Printf("lead submission failed: %v", err)
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to process lead", nil)
	}

	return c.Status(fiber.StatusCreated).JSON(utils.SuccessResponse(fiber.Map{
		"lead_id":   lead.Code,
		"lead_type": leadType,
		"status":    lead.Status,
	}))
}
