package config

import (
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

var (
	AppConfig Config
	envLoaded bool
)

type RedisConfig struct {
	Enabled  bool   `json:"enabled"`
	Address  string `json:"address"`
	Password string `json:"-"`
	DB       int    `json:"db"`
}

type Config struct {
	Environment string `json:"environment"`
	ServerPort  string `json:"server_port"`

	DBHost         string `json:"db_host"`
	DBPort         string `json:"db_port"`
	DBUser         string `json:"db_user"`
	DBPassword     string `json:"-"`
	DBName         string `json:"db_name"`
	DBSSLMode      string `json:"db_ssl_mode"`
	DBMaxIdleConns int    `json:"db_max_idle_conns"`
	DBMaxOpenConns int    `json:"db_max_open_conns"`

	StripeWebhookSecret string `json:"-"`
	AdminAPIToken       string `json:"-"`
	SentryDSN           string `json:"-"`

	SMTPHost      string `json:"smtp_host"`
	SMTPPort      string `json:"smtp_port"`
	SMTPUsername  string `json:"smtp_username"`
	SMTPPassword  string `json:"-"`
	FromEmail     string `json:"from_email"`
	OperatorEmail string `json:"operator_email"`

	Redis               RedisConfig `json:"redis"`
	RateLimitLeadSubmit int         `json:"rate_limit_lead_submit"`

	// Routing and reconciliation tunables
	UnitLeadCost     int    `json:"unit_lead_cost"`
	PremiumDays      int    `json:"premium_days"`
	PremiumFloor     int    `json:"premium_floor"`
	SweepIntervalMin int    `json:"sweep_interval_min"`
	PriceTableJSON   string `json:"-"` // overlays core.DefaultPriceTable
}

func init() {
	// Try to load .env file, but don't fail if it doesn't exist
	_ = godotenv.Load()
	envLoaded = true
}

func LoadConfig() error {
	AppConfig = Config{
		Environment:    getEnv("ENVIRONMENT", "development"),
		ServerPort:     getEnv("SERVER_PORT", "5000"),
		DBHost:         getEnv("DB_HOST", "localhost"),
		DBPort:         getEnv("DB_PORT", "5432"),
		DBUser:         getEnv("DB_USER", "postgres"),
		DBPassword:     getEnv("DB_PASSWORD", ""),
		DBName:         getEnv("DB_NAME", "leadnexus"),
		DBSSLMode:      getEnv("DB_SSL_MODE", "disable"),
		DBMaxIdleConns: getEnvAsInt("DB_MAX_IDLE_CONNS", 10),
		DBMaxOpenConns: getEnvAsInt("DB_MAX_OPEN_CONNS", 100),

		StripeWebhookSecret: getEnv("STRIPE_WEBHOOK_SECRET", ""),
		AdminAPIToken:       getEnv("ADMIN_API_TOKEN", ""),
		SentryDSN:           getEnv("SENTRY_DSN", ""),

		SMTPHost:      getEnv("SMTP_HOST", "localhost"),
		SMTPPort:      getEnv("SMTP_PORT", "587"),
		SMTPUsername:  getEnv("SMTP_USERNAME", ""),
		SMTPPassword:  getEnv("SMTP_PASSWORD", ""),
		FromEmail:     getEnv("FROM_EMAIL", "leads@leadnexus.local"),
		OperatorEmail: getEnv("OPERATOR_EMAIL", ""),

		Redis: RedisConfig{
			Enabled:  getEnv("REDIS_ENABLED", "false") == "true",
			Address:  getEnv("REDIS_ADDRESS", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		RateLimitLeadSubmit: getEnvAsInt("RATE_LIMIT_LEAD_SUBMIT", 10),

		UnitLeadCost:     getEnvAsInt("UNIT_LEAD_COST", 1),
		PremiumDays:      getEnvAsInt("PREMIUM_DAYS", 30),
		PremiumFloor:     getEnvAsInt("PREMIUM_PRIORITY_FLOOR", 10),
		SweepIntervalMin: getEnvAsInt("PREMIUM_SWEEP_INTERVAL_MIN", 15),
		PriceTableJSON:   getEnv("PRICE_TABLE_JSON", ""),
	}

	// Validate required configurations
	if AppConfig.DBPassword == "" {
		return fmt.Errorf("DB_PASSWORD is required")
	}
	if AppConfig.StripeWebhookSecret == "" {
		return fmt.Errorf("STRIPE_WEBHOOK_SECRET is required for payment reconciliation")
	}
	if AppConfig.Environment == "production" && AppConfig.AdminAPIToken == "" {
		return fmt.Errorf("ADMIN_API_TOKEN is required in production")
	}

	logConfig()
	return nil
}

// Helper functions
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	if !envLoaded && fallback == "" {
		log.Printf("⚠️ Environment variable %s not found and no fallback provided", key)
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return fallback
	}
	var value int
	_, err := fmt.Sscanf(valueStr, "%d", &value)
	if err != nil {
		return fallback
	}
	return value
}

func maskPassword(dsn string) string {
	const passwordMarker = "password="
	startIdx := strings.Index(dsn, passwordMarker)
	if startIdx == -1 {
		return dsn
	}

	startIdx += len(passwordMarker)
	endIdx := strings.IndexAny(dsn[startIdx:], " ")
	if endIdx == -1 {
		return dsn[:startIdx] + "*****"
	}
	return dsn[:startIdx] + "*****" + dsn[startIdx+endIdx:]
}

func logConfig() {
	log.Println("🔧 Loaded configuration:")
	log.Printf("Environment: %s", AppConfig.Environment)
	log.Printf("Server Port: %s", AppConfig.ServerPort)
	log.Printf("Database: %s@%s:%s/%s",
		AppConfig.DBUser,
		AppConfig.DBHost,
		AppConfig.DBPort,
		AppConfig.DBName)
	log.Printf("Unit lead cost: %d credit(s), premium window: %d days",
		AppConfig.UnitLeadCost,
		AppConfig.PremiumDays)
}
