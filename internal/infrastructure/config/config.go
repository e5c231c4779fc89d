package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	// App
	AppVersion string

	// Server
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration

	// Storage: "memory" (default) or "mongo"
	StorageBackend string
	MongoURI       string
	MongoDB        string

	// Rule storage: "memory" (default) or "postgres"
	RuleBackend string
	PostgresURI string

	// Transport
	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	FromAddress  string
	FromName     string

	// Reply source: "gmail" or "imap"
	ReplySource       string
	ReplyPollInterval time.Duration

	// Gmail
	GmailClientID     string
	GmailClientSecret string
	GmailRefreshToken string

	// IMAP
	IMAPServer   string
	IMAPUsername string
	IMAPPassword string

	// Sentiment / response backends: "rules" (default) or "model"
	SentimentBackend string
	ResponseBackend  string
	ModelEndpoint    string
	ModelAPIKey      string
	ModelName        string

	// Pacing
	SendDelay  time.Duration
	BatchSize  int
	BatchDelay time.Duration

	// Scheduling
	FollowUpTickInterval time.Duration
	EngineLoopInterval   time.Duration

	// Business hours
	BusinessStartHour int
	BusinessEndHour   int
	BusinessTimezone  string
	BusinessWorkDays  []int
	BusinessHolidays  []string
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	// Load .env file if it exists
	godotenv.Load()

	config := &Config{
		AppVersion:   getEnv("APP_VERSION", "1.0.0"),
		Port:         getEnv("PORT", "8080"),
		ReadTimeout:  time.Duration(getEnvAsInt("READ_TIMEOUT", 30)) * time.Second,
		WriteTimeout: time.Duration(getEnvAsInt("WRITE_TIMEOUT", 30)) * time.Second,

		StorageBackend: getEnv("STORAGE_BACKEND", "memory"),
		MongoURI:       getEnv("MONGODB_DSN", "mongodb://localhost:27017"),
		MongoDB:        getEnv("MONGO_DB", "donorcast"),

		RuleBackend: getEnv("RULE_BACKEND", "memory"),
		PostgresURI: getEnv("POSTGRES_DSN", ""),

		SMTPHost:     getEnv("SMTP_HOST", "localhost"),
		SMTPPort:     getEnvAsInt("SMTP_PORT", 587),
		SMTPUsername: getEnv("SMTP_USERNAME", ""),
		SMTPPassword: getEnv("SMTP_PASSWORD", ""),
		FromAddress:  getEnv("FROM_ADDRESS", "outreach@example.org"),
		FromName:     getEnv("FROM_NAME", "Blood Drive Team"),

		ReplySource:       getEnv("REPLY_SOURCE", "imap"),
		ReplyPollInterval: time.Duration(getEnvAsInt("REPLY_POLL_INTERVAL", 30)) * time.Second,

		GmailClientID:     getEnv("GMAIL_CLIENT_ID", ""),
		GmailClientSecret: getEnv("GMAIL_CLIENT_SECRET", ""),
		GmailRefreshToken: getEnv("GMAIL_REFRESH_TOKEN", ""),

		IMAPServer:   getEnv("IMAP_SERVER", ""),
		IMAPUsername: getEnv("IMAP_USERNAME", ""),
		IMAPPassword: getEnv("IMAP_PASSWORD", ""),

		SentimentBackend: getEnv("SENTIMENT_BACKEND", "rules"),
		ResponseBackend:  getEnv("RESPONSE_BACKEND", "rules"),
		ModelEndpoint:    getEnv("MODEL_ENDPOINT", ""),
		ModelAPIKey:      getEnv("MODEL_API_KEY", ""),
		ModelName:        getEnv("MODEL_NAME", ""),

		SendDelay:  time.Duration(getEnvAsInt("SEND_DELAY_MS", 2000)) * time.Millisecond,
		BatchSize:  getEnvAsInt("BATCH_SIZE", 50),
		BatchDelay: time.Duration(getEnvAsInt("BATCH_DELAY_MS", 30000)) * time.Millisecond,

		FollowUpTickInterval: time.Duration(getEnvAsInt("FOLLOWUP_TICK_INTERVAL", 60)) * time.Second,
		EngineLoopInterval:   time.Duration(getEnvAsInt("ENGINE_LOOP_INTERVAL", 30)) * time.Second,

		BusinessStartHour: getEnvAsInt("BUSINESS_START_HOUR", 9),
		BusinessEndHour:   getEnvAsInt("BUSINESS_END_HOUR", 17),
		BusinessTimezone:  getEnv("BUSINESS_TIMEZONE", "UTC"),
		BusinessWorkDays:  getEnvAsIntList("BUSINESS_WORK_DAYS", []int{1, 2, 3, 4, 5}),
		BusinessHolidays:  getEnvAsList("BUSINESS_HOLIDAYS", nil),
	}

	return config, nil
}

// Helper functions to get environment variables
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	parts := strings.Split(valueStr, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

func getEnvAsIntList(key string, defaultValue []int) []int {
	parts := getEnvAsList(key, nil)
	if parts == nil {
		return defaultValue
	}
	var out []int
	for _, p := range parts {
		if v, err := strconv.Atoi(p); err == nil {
			out = append(out, v)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
