package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"backend/internal/geometry"
)

var AppEnv Config

type Config struct {
	MongoURI             string
	DBName               string
	JWTSecret            string
	AccessTokenTTL       time.Duration
	PaymentAPIKey        string
	PaymentWebhookSecret string
	WebhookTolerance     time.Duration
	SiteURL              string
	BuildEnvelope        geometry.Size
}

func Load() {
	if err := godotenv.Load(); err != nil {
		log.Println(".env not loaded:", err)
	}
	AppEnv = Config{
		MongoURI:             getEnvOrDefault("MONGO_URI", ""),
		DBName:               getEnvOrDefault("DB_NAME", "printshop"),
		JWTSecret:            getEnvOrDefault("JWT_SECRET", ""),
		AccessTokenTTL:       getDurationEnv("ACCESS_TOKEN_TTL", 20, time.Minute),
		PaymentAPIKey:        getEnvOrDefault("PAYMENT_API_KEY", ""),
		PaymentWebhookSecret: getEnvOrDefault("PAYMENT_WEBHOOK_SECRET", ""),
		WebhookTolerance:     getDurationEnv("WEBHOOK_TOLERANCE", 5, time.Minute),
		SiteURL:              getEnvOrDefault("SITE_URL", "http://localhost:3000"),
		BuildEnvelope: geometry.Size{
			X: getFloatEnv("BUILD_ENVELOPE_X_MM", 256),
			Y: getFloatEnv("BUILD_ENVELOPE_Y_MM", 256),
			Z: getFloatEnv("BUILD_ENVELOPE_Z_MM", 256),
		},
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue int, unit time.Duration) time.Duration {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil && parsed > 0 {
			return time.Duration(parsed) * unit
		}
	}
	return time.Duration(defaultValue) * unit
}

func getFloatEnv(key string, defaultValue float64) float64 {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil && parsed > 0 {
			return parsed
		}
	}
	return defaultValue
}
