package controller

import (
	"encoding/json"
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/stripe/stripe-go/v76"

	"leadnexus/core"
	"leadnexus/utils"
)

type PaymentController struct {
	Reconciler *core.PaymentReconciler
	Logger     *log.Logger
}

func NewPaymentController(reconciler *core.PaymentReconciler, logger *log.Logger) *PaymentController {
	return &PaymentController{Reconciler: reconciler, Logger: logger}
}

// HandlePaymentWebhook receives Stripe webhook deliveries. A signature or
// freshness failure is the only non-2xx response, so the gateway keeps
// retrying when the rejection might be spurious. Every business outcome,
// including unknown purchases and duplicates, acknowledges receipt.
func (pc *PaymentController) HandlePaymentWebhook(c *fiber.Ctx) error {
	event, err := utils.ConstructStripeEvent(c)
	if err != nil {
		pc.Logger.Printf("webhook rejected: %v", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid webhook payload",
		})
	}

	switch event.Type {
	case "checkout.session.completed":
		var session stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
			pc.Logger.Printf("failed to parse checkout session: %v", err)
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Error parsing checkout session",
			})
		}
		outcome, err := pc.Reconciler.ProcessCheckoutSession(&session)
		if err != nil {
			pc.Logger.Printf("checkout reconciliation failed: %v", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Failed to process payment",
			})
		}
		return c.JSON(outcome)

	case "invoice.payment_succeeded":
		var invoice stripe.Invoice
		if err := json.Unmarshal(event.Data.Raw, &invoice); err != nil {
			pc.Logger.Printf("failed to parse invoice: %v", err)
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Error parsing invoice",
			})
		}
		outcome, err := pc.Reconciler.ProcessInvoice(&invoice)
		if err != nil {
			pc.Logger.Printf("invoice reconciliation failed: %v", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Failed to process payment",
			})
		}
		return c.JSON(outcome)

	default:
		return c.SendStatus(fiber.StatusOK)
	}
}
