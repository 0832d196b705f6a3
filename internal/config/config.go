package config

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// SecretGetter resolves named secrets. Implemented by aws.SecretsClient.
type SecretGetter interface {
	GetSecret(ctx context.Context, name string) (string, error)
}

// Config holds all configuration for the checkout service.
type Config struct {
	Env  string
	Port string

	JWTSecret      string
	SessionTTL     time.Duration
	GoogleClientID string
	AdminAPIKey    string

	StoreBackend string // "mongo" (default) or "dynamodb"
	MongoURL     string
	MongoDB      string

	DDBTableProducts string

	RedisURL        string
	ProductCacheTTL time.Duration

	TaxRate       float64
	ScanDebounce  time.Duration
	MaxFrameBytes int64

	AllowedOrigins []string

	UseSecrets bool

	SNSTopicArn       string
	ReceiptQueueURL   string // SQS queue subscribed to the topic; mail is sent from it when set
	ReceiptBucket     string
	ReceiptPrefix     string
	CloudWatchEnabled bool
	CloudWatchNS      string
	CloudWatchLogs    string // log group; empty keeps logs local

	SMTPHost string
	SMTPPort string
	SMTPUser string
	SMTPPass string
}

// Load reads the environment (after an optional .env file) into a Config.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Env:  getEnv("APP_ENV", "development"),
		Port: getEnv("PORT", "8080"),

		JWTSecret:      strings.TrimSpace(os.Getenv("JWT_SECRET")),
		SessionTTL:     getDuration("SESSION_TTL", 24*time.Hour),
		GoogleClientID: os.Getenv("GOOGLE_CLIENT_ID"),
		AdminAPIKey:    os.Getenv("ADMIN_API_KEY"),

		StoreBackend: strings.ToLower(getEnv("STORE_BACKEND", "mongo")),
		MongoURL:     getEnv("MONGO_URL", "mongodb://localhost:27017"),
		MongoDB:      getEnv("MONGO_DB_NAME", "counterjob"),

		DDBTableProducts: getEnv("DDB_TABLE_PRODUCTS", "Products"),

		RedisURL:        os.Getenv("REDIS_URL"),
		ProductCacheTTL: getDuration("PRODUCT_CACHE_TTL", 10*time.Minute),

		TaxRate:       getFloat("TAX_RATE", 0.10),
		ScanDebounce:  getDuration("SCAN_DEBOUNCE", 500*time.Millisecond),
		MaxFrameBytes: int64(getInt("MAX_FRAME_BYTES", 8<<20)),

		AllowedOrigins: splitList(getEnv("ALLOWED_ORIGINS", "http://localhost:3000")),

		UseSecrets: os.Getenv("AWS_USE_SECRETS") == "true",

		SNSTopicArn:       os.Getenv("SNS_TOPIC_ARN"),
		ReceiptQueueURL:   os.Getenv("RECEIPT_QUEUE_URL"),
		ReceiptBucket:     os.Getenv("RECEIPT_BUCKET"),
		ReceiptPrefix:     getEnv("RECEIPT_PREFIX", "receipts/"),
		CloudWatchEnabled: os.Getenv("CLOUDWATCH_ENABLED") == "true",
		CloudWatchNS:      getEnv("CLOUDWATCH_NAMESPACE", "CounterJob"),
		CloudWatchLogs:    os.Getenv("CLOUDWATCH_LOG_GROUP"),

		SMTPHost: os.Getenv("SMTP_HOST"),
		SMTPPort: getEnv("SMTP_PORT", "587"),
		SMTPUser: os.Getenv("SMTP_USER"),
		SMTPPass: os.Getenv("SMTP_PASS"),
	}

	return cfg, nil
}

// ApplySecrets overrides JWT_SECRET and ADMIN_API_KEY from the secret store.
// Missing secrets keep the environment values.
func (c *Config) ApplySecrets(ctx context.Context, sm SecretGetter) {
	if sm == nil {
		return
	}
	if v, err := sm.GetSecret(ctx, "counterjob/JWT_SECRET"); err == nil && v != "" {
		c.JWTSecret = v
	}
	if v, err := sm.GetSecret(ctx, "counterjob/ADMIN_API_KEY"); err == nil && v != "" {
		c.AdminAPIKey = v
	}
}

// Validate checks required fields.
func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	switch c.StoreBackend {
	case "mongo", "dynamodb":
	default:
		return fmt.Errorf("unsupported STORE_BACKEND %q", c.StoreBackend)
	}
	if c.TaxRate < 0 {
		return fmt.Errorf("TAX_RATE must not be negative")
	}
	return nil
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getDuration(key string, defaultVal time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultVal
}

func getFloat(key string, defaultVal float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

func getInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return defaultVal
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(part), "/"))
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
