package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/gofiber/fiber/v2"

	"leadnexus/config"
	"leadnexus/core"
	"leadnexus/middleware"
	"leadnexus/routes"
	"leadnexus/utils"
	"leadnexus/worker"
)

func main() {
	logger := log.New(os.Stdout, "LEADNEXUS: ", log.Ldate|log.Ltime|log.Lshortfile)

	// Load configuration
	if err := config.LoadConfig(); err != nil {
		logger.Fatalf("Failed to load configuration: %v", err)
	}

	// Crash reporting, when configured
	if config.AppConfig.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:         config.AppConfig.SentryDSN,
			Environment: config.AppConfig.Environment,
		}); err != nil {
			logger.Printf("Sentry init failed: %v", err)
		}
		defer sentry.Flush(2 * time.Second)
	}

	// Initialize database connection
	if err := config.ConnectDB(); err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}

	// Pricing table: defaults overlaid with the configured document
	prices, err := core.PriceTableFromJSON(config.AppConfig.PriceTableJSON)
	if err != nil {
		logger.Fatalf("Invalid PRICE_TABLE_JSON: %v", err)
	}

	// Create Fiber app
	app := fiber.New()
	app.Use(middleware.CORS())

	// Notifier and engine, built once and passed into every component
	mailer := utils.NewMailer(
		config.AppConfig.SMTPHost,
		config.AppConfig.SMTPPort,
		config.AppConfig.SMTPUsername,
		config.AppConfig.SMTPPassword,
		config.AppConfig.FromEmail,
		config.AppConfig.OperatorEmail,
		log.New(os.Stdout, "MAILER: ", log.LstdFlags),
	)
	engine := core.NewEngine(config.DB, mailer, core.EngineConfig{
		UnitLeadCost:  config.AppConfig.UnitLeadCost,
		PremiumDays:   config.AppConfig.PremiumDays,
		PriorityFloor: config.AppConfig.PremiumFloor,
		Prices:        prices,
	})

	// Premium expiry sweep runs independently of request handling
	premiumWorker := worker.NewPremiumWorker(
		engine.Premium,
		time.Duration(config.AppConfig.SweepIntervalMin)*time.Minute,
		log.New(os.Stdout, "PREMIUM: ", log.LstdFlags),
	)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go premiumWorker.Start(ctx)

	// Setup routes
	routes.SetupRoutes(app, config.DB, engine)

	// Start server
	logger.Printf("🚀 Server starting on port %s", config.AppConfig.ServerPort)
	if err := app.Listen(":" + config.AppConfig.ServerPort); err != nil {
		logger.Fatalf("Failed to start server: %v", err)
	}
}
