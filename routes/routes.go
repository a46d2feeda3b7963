package routes

import (
	"log"
	"os"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"gorm.io/gorm"

	controller "leadnexus/controllers"
	"leadnexus/core"
	"leadnexus/middleware"
)

// SetupRoutes wires the HTTP surface over the engine built at startup.
func SetupRoutes(app *fiber.App, db *gorm.DB, engine *core.Engine) {
	leadController := controller.NewLeadController(engine.Intake, log.New(os.Stdout, "LEAD: ", log.LstdFlags))
	providerController := controller.NewProviderController(engine.Directory, log.New(os.Stdout, "PROVIDER: ", log.LstdFlags))
	paymentController := controller.NewPaymentController(engine.Reconciler, log.New(os.Stdout, "PAYMENT: ", log.LstdFlags))
	adminController := controller.NewAdminController(db, engine.Ledger, engine.Intake, engine.Premium, log.New(os.Stdout, "ADMIN: ", log.LstdFlags))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	// Public endpoints
	public := app.Group("", logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))
	public.Post("/leads", middleware.LeadSubmitLimiter(), leadController.CreateLead)
	public.Post("/providers/balance", providerController.GetBalance)

	// Payment gateway webhook. Authenticity is checked by signature, not by
	// session, so it sits outside both the limiter and admin auth.
	public.Post("/payment/webhook", paymentController.HandlePaymentWebhook)

	// Operator endpoints
	admin := app.Group("/admin", middleware.AdminAuth(), logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))
	admin.Post("/providers", adminController.RegisterProvider)
	admin.Post("/providers/:id/credits", adminController.AdjustCredits)
	admin.Get("/providers/:id/transactions", adminController.ListTransactions)
	admin.Post("/leads/:code/resend", adminController.ResendLead)
	admin.Post("/premium/sweep", adminController.RunPremiumSweep)

	// 404 handler
	app.Use(func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error":   "Not Found",
			"message": "The requested resource was not found",
		})
	})
}
