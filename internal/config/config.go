package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

type Config struct {
	// Database
	DatabaseURL string
	RedisURL    string
	AMQPURL     string

	// Automation actor
	ActorAPIURL   string
	ActorAPIToken string
	ActorID       string

	// Outreach
	MessageDelay       time.Duration
	BatchSize          int
	DefaultDailyLimit  int
	AccountDailyLimit  int
	LockTTL            time.Duration
	MockSendSuccessPct int

	// Auth
	JWTSecret     string
	JWTExpiration time.Duration
	AdminUsername string
	AdminPassword string

	// Server
	APIPort        string
	AllowedOrigins string
	RateLimit      int
}

func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		DatabaseURL: getEnv("DATABASE_URL", dsnFromParts()),
		RedisURL:    getEnv("REDIS_URL", ""),
		AMQPURL:     getEnv("AMQP_URL", ""),

		ActorAPIURL:   getEnv("ACTOR_API_URL", "https://api.apify.com"),
		ActorAPIToken: getEnv("ACTOR_API_TOKEN", ""),
		ActorID:       getEnv("ACTOR_ID", "deepanshusharm~instagram-dms-automation"),

		MessageDelay:       time.Duration(getEnvInt("MESSAGE_DELAY", 60)) * time.Second,
		BatchSize:          getEnvInt("BATCH_SIZE", 5),
		DefaultDailyLimit:  getEnvInt("DEFAULT_DAILY_LIMIT", 50),
		AccountDailyLimit:  getEnvInt("ACCOUNT_DAILY_LIMIT", 40),
		LockTTL:            time.Duration(getEnvInt("LOCK_TTL_MINUTES", 5)) * time.Minute,
		MockSendSuccessPct: getEnvInt("MOCK_SEND_SUCCESS_PCT", 90),

		JWTSecret:     getEnv("JWT_SECRET", "change-me-in-production"),
		JWTExpiration: time.Duration(getEnvInt("JWT_EXPIRATION_MINUTES", 30)) * time.Minute,
		AdminUsername: getEnv("ADMIN_USERNAME", "admin"),
		AdminPassword: getEnv("ADMIN_PASSWORD", "admin"),

		APIPort:        getEnv("API_PORT", "8080"),
		AllowedOrigins: getEnv("ALLOWED_ORIGINS", "*"),
		RateLimit:      getEnvInt("RATE_LIMIT_PER_MINUTE", 120),
	}
}

func (c *Config) Validate(log *zap.Logger) {
	if c.ActorAPIToken == "" {
		log.Warn("ACTOR_API_TOKEN is not set, messages go through the mock transport")
	}
	if c.JWTSecret == "change-me-in-production" {
		log.Warn("JWT_SECRET is default, change in production")
	}
	if c.AdminPassword == "admin" {
		log.Warn("ADMIN_PASSWORD is default, change in production")
	}
	if c.RedisURL == "" {
		log.Info("REDIS_URL is not set, account locks are process-local")
	}
}

func dsnFromParts() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=disable",
		getEnv("DB_USER", "postgres"),
		getEnv("DB_PASSWORD", "postgres"),
		getEnv("DB_HOST", "localhost"),
		getEnv("DB_PORT", "5432"),
		getEnv("DB_NAME", "outreach"),
	)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	s := os.Getenv(key)
	if s == "" {
		return fallback
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return fallback
	}
	return v
}
