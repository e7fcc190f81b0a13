package config

import (
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type EnvConfig struct {
	AppPort        string
	AllowedOrigins string
	GatewayToken   string

	// Backing store: "postgres" (durable) or "memory" (local dev).
	// There is no silent fallback: an unknown value is fatal at boot
	// and the active backend is reported in logs and /health.
	StoreBackend string
	DatabaseURL  string

	// Media store: "s3" or "local". Locators are prefixed with
	// MediaBaseURL either way.
	MediaBackend    string
	MediaBaseURL    string
	S3AccountID     string
	S3AccessKeyID   string
	S3AccessSecret  string
	S3Bucket        string

	RedisHost     string
	RedisPort     int
	RedisPassword string
	RedisDB       int

	SyncServiceURL  string
	SyncServicePath string

	SeedCatalog          bool
	SelfReportDailyLimit int
	RateLimitPerMinute   int

	LogPath       string
	LogLevel      string
	LogMaxSizeMB  int
	LogMaxBackups int
	LogMaxAgeDays int
}

var Env EnvConfig

func LoadEnv() {
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  No .env file found, reading environment variables directly")
	}

	Env.AppPort = getEnv("APP_PORT", "5300")
	Env.AllowedOrigins = getEnv("ALLOWED_ORIGINS", "http://localhost:3000")
	Env.GatewayToken = os.Getenv("ENGINE_SERVICE_TOKEN")

	Env.StoreBackend = getEnv("STORE_BACKEND", "postgres")
	Env.DatabaseURL = os.Getenv("DATABASE_URL")

	Env.MediaBackend = getEnv("MEDIA_BACKEND", "s3")
	Env.MediaBaseURL = os.Getenv("MEDIA_BASE_URL")
	Env.S3AccountID = os.Getenv("CLOUDFLARE_ACCOUNT_ID")
	Env.S3AccessKeyID = os.Getenv("R2_ACCESS_KEY_ID")
	Env.S3AccessSecret = os.Getenv("R2_ACCESS_KEY_SECRET")
	Env.S3Bucket = os.Getenv("R2_BUCKET_NAME")

	Env.RedisHost = os.Getenv("REDIS_HOST")
	Env.RedisPort = getEnvInt("REDIS_PORT", 6379)
	Env.RedisPassword = os.Getenv("REDIS_PASSWORD")
	Env.RedisDB = getEnvInt("REDIS_DB", 0)

	Env.SyncServiceURL = os.Getenv("SYNC_SERVICE_URL")
	Env.SyncServicePath = getEnv("SYNC_SERVICE_PATH", "/api/v1/public/profiles")

	Env.SeedCatalog = getEnvBool("SEED_CATALOG", true)
	Env.SelfReportDailyLimit = getEnvInt("SELF_REPORT_DAILY_LIMIT", 10)
	Env.RateLimitPerMinute = getEnvInt("RATE_LIMIT_PER_MINUTE", 120)

	Env.LogPath = os.Getenv("LOG_PATH")
	Env.LogLevel = getEnv("LOG_LEVEL", "info")
	Env.LogMaxSizeMB = getEnvInt("LOG_MAX_SIZE_MB", 100)
	Env.LogMaxBackups = getEnvInt("LOG_MAX_BACKUPS", 3)
	Env.LogMaxAgeDays = getEnvInt("LOG_MAX_AGE_DAYS", 7)
}

// Validate rejects configurations that would boot a broken service. An
// empty gateway token would leave every secured route comparing against
// "", so a missing ENGINE_SERVICE_TOKEN must fail at startup rather
// than at the first request.
func (c EnvConfig) Validate() error {
	if c.GatewayToken == "" {
		return fmt.Errorf("ENGINE_SERVICE_TOKEN environment variable not set")
	}
	switch c.StoreBackend {
	case "postgres":
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL environment variable not set")
		}
	case "memory":
	default:
		return fmt.Errorf("unknown STORE_BACKEND %q (want postgres or memory)", c.StoreBackend)
	}
	switch c.MediaBackend {
	case "s3", "local":
	default:
		return fmt.Errorf("unknown MEDIA_BACKEND %q (want s3 or local)", c.MediaBackend)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}
