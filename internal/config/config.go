package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds every runtime setting for the API. All values are read
// once at startup; handlers receive them through dependency injection
// instead of calling os.Getenv themselves.
type Config struct {
	// --- Server ---
	Port    string
	BaseURL string

	// --- Database ---
	DBDSN string

	// --- Auth ---
	JWTSecret string

	// --- AppSumo ---
	// Plan IDs come from the vendor dashboard and map onto tiers 1-4.
	AppSumoTier1PlanID string
	AppSumoTier2PlanID string
	AppSumoTier3PlanID string
	AppSumoTier4PlanID string

	// --- Instagram ---
	InstagramVerifyToken string
	InstagramAppSecret   string

	// --- Notifications ---
	DiscordWebhookURL      string
	DiscordSalesWebhookURL string
	SMTPHost               string
	SMTPPort               int
	SMTPUser               string
	SMTPPassword           string
	EmailFrom              string

	// --- AI / image generation ---
	GeminiAPIKey   string
	ImageGenAPIURL string
	ImageGenAPIKey string

	// --- S3 ---
	S3Bucket    string
	S3Region    string
	S3AccessKey string
	S3SecretKey string
	S3PublicURL string

	// --- Workers ---
	SubscriptionSweepInterval time.Duration
}

// Load reads .env (when present) and the process environment and
// returns a fully populated Config. Required variables that are
// missing are collected and reported together in a single error.
func Load() (*Config, error) {
	// A missing .env file is fine in production where the environment
	// is provided by the orchestrator.
	_ = godotenv.Load()

	var missing []string

	cfg := &Config{
		Port:    getEnv("PORT", "8080"),
		BaseURL: getEnv("BASE_URL", "http://localhost:8080"),

		DBDSN: getRequired("DB_DSN", &missing),

		JWTSecret: getRequired("JWT_SECRET", &missing),

		AppSumoTier1PlanID: getEnv("APPSUMO_ONE_TIER_ID", "boostly_tier1"),
		AppSumoTier2PlanID: getEnv("APPSUMO_TWO_TIER_ID", "boostly_tier2"),
		AppSumoTier3PlanID: getEnv("APPSUMO_THREE_TIER_ID", "boostly_tier3"),
		AppSumoTier4PlanID: getEnv("APPSUMO_FOUR_TIER_ID", "boostly_tier4"),

		InstagramVerifyToken: getEnv("INSTAGRAM_VERIFY_TOKEN", ""),
		InstagramAppSecret:   getEnv("INSTAGRAM_APP_SECRET", ""),

		DiscordWebhookURL:      getEnv("DISCORD_WEBHOOK_URL", ""),
		DiscordSalesWebhookURL: getEnv("DISCORD_SALES_WEBHOOK_URL", ""),
		SMTPHost:               getEnv("SMTP_HOST", ""),
		SMTPPort:               getEnvInt("SMTP_PORT", 587),
		SMTPUser:               getEnv("SMTP_USER", ""),
		SMTPPassword:           getEnv("SMTP_PASSWORD", ""),
		EmailFrom:              getEnv("EMAIL_FROM", "Boostly <no-reply@boostly.app>"),

		GeminiAPIKey:   getEnv("GEMINI_API_KEY", ""),
		ImageGenAPIURL: getEnv("IMAGEGEN_API_URL", ""),
		ImageGenAPIKey: getEnv("IMAGEGEN_API_KEY", ""),

		S3Bucket:    getEnv("S3_BUCKET", ""),
		S3Region:    getEnv("S3_REGION", "us-east-1"),
		S3AccessKey: getEnv("S3_ACCESS_KEY", ""),
		S3SecretKey: getEnv("S3_SECRET_KEY", ""),
		S3PublicURL: getEnv("S3_PUBLIC_URL", ""),

		SubscriptionSweepInterval: getEnvDuration("SUBSCRIPTION_SWEEP_INTERVAL", time.Hour),
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("missing required environment variables: %s", strings.Join(missing, ", "))
	}

	return cfg, nil
}

// AppSumoPlanID returns the vendor plan ID configured for a tier.
func (c *Config) AppSumoPlanID(tier int) string {
	switch tier {
	case 2:
		return c.AppSumoTier2PlanID
	case 3:
		return c.AppSumoTier3PlanID
	case 4:
		return c.AppSumoTier4PlanID
	default:
		return c.AppSumoTier1PlanID
	}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}

func getRequired(key string, missing *[]string) string {
	value, ok := os.LookupEnv(key)
	if !ok || value == "" {
		*missing = append(*missing, key)
		return ""
	}
	return value
}

func getEnvInt(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok || value == "" {
		return fallback
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return n
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value, ok := os.LookupEnv(key)
	if !ok || value == "" {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return d
}
