package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	// Server configuration
	Port        string
	Environment string

	// Inventory/payments backend
	BackendAPIURL string
	TicketAPIKey  string
	UserID        string

	// Redis configuration
	RedisURL      string
	RedisPassword string
	RedisDB       int

	// PubNub configuration
	PubNubPublishKey   string
	PubNubSubscribeKey string
	PubNubSecretKey    string
	NotifyChannel      string

	// Automation configuration
	MaxRetries     int
	RetryDelay     time.Duration
	PurchaseBudget time.Duration
	ProbeTimeout   time.Duration
	DefaultQty     int

	// Scheduler configuration
	SchedulerOffset time.Duration
	ScanLocation    string
	ScanCategory    string

	// Session cache
	SessionTTL time.Duration

	// Monitoring
	EnableMetrics bool
	MetricsPort   string
}

func LoadConfig() *Config {
	return &Config{
		// Server
		Port:        getEnv("PORT", "8090"),
		Environment: getEnv("ENVIRONMENT", "development"),

		// Backend
		BackendAPIURL: getEnv("BACKEND_API_URL", "http://localhost:3000"),
		TicketAPIKey:  getEnv("TICKET_API_KEY", ""),
		UserID:        getEnv("SNIPER_USER_ID", "anonymous"),

		// Redis
		RedisURL:      getEnv("REDIS_URL", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvAsInt("REDIS_DB", 0),

		// PubNub
		PubNubPublishKey:   getEnv("PUBNUB_PUBLISH_KEY", ""),
		PubNubSubscribeKey: getEnv("PUBNUB_SUBSCRIBE_KEY", ""),
		PubNubSecretKey:    getEnv("PUBNUB_SECRET_KEY", ""),
		NotifyChannel:      getEnv("NOTIFY_CHANNEL", "ticket-sniper-notifications"),

		// Automation
		MaxRetries:     getEnvAsInt("MAX_RETRIES", 3),
		RetryDelay:     getEnvAsDuration("RETRY_DELAY", "1s"),
		PurchaseBudget: getEnvAsDuration("PURCHASE_BUDGET", "15s"),
		ProbeTimeout:   getEnvAsDuration("PROBE_TIMEOUT", "5s"),
		DefaultQty:     getEnvAsInt("DEFAULT_QUANTITY", 1),

		// Scheduler: Chinese releases open at midnight UTC+8
		SchedulerOffset: getEnvAsDuration("SCHEDULER_OFFSET", "8h"),
		ScanLocation:    getEnv("SCAN_LOCATION", "New York"),
		ScanCategory:    getEnv("SCAN_CATEGORY", "concert"),

		// Session cache
		SessionTTL: getEnvAsDuration("SESSION_TTL", "10m"),

		// Monitoring
		EnableMetrics: getEnvAsBool("ENABLE_METRICS", true),
		MetricsPort:   getEnv("METRICS_PORT", "9090"),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := getEnv(key, defaultValue)
	if duration, err := time.ParseDuration(valueStr); err == nil {
		return duration
	}
	// If parsing fails, fall back to the default value
	duration, _ := time.ParseDuration(defaultValue)
	return duration
}
