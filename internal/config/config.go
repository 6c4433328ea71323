package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration
type Config struct {
	Env       string
	LogLevel  string
	LogFormat string

	DatabaseURL string

	// Scheduling-source API (Clínica nas Nuvens style agenda endpoint).
	APIBase      string
	APIUser      string
	APIPass      string
	ClinicCID    string
	FetchTimeout time.Duration

	// Outbound messaging provider.
	SenderProvider string
	SenderAPIURL   string
	SenderAuth     string
	SendTimeout    time.Duration

	// Dispatch retry policy.
	SendMaxAttempts int
	SendRetryDelay  time.Duration

	// Polling cycle.
	PollInterval      time.Duration
	DaysAhead         int
	ReminderDaysAhead int
	MaxPages          int

	// Appointments owned by these professional person ids are never notified.
	BlockedProfessionalIDs []int64

	// Webhook receiver.
	WebhookPort        string
	WebhookVerifyToken string
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Env:       getEnv("ENV", "development"),
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "text"),

		DatabaseURL: getEnv("DATABASE_URL", ""),

		APIBase:      strings.TrimRight(getEnv("API_BASE", ""), "/"),
		APIUser:      getEnv("API_USER", ""),
		APIPass:      getEnv("API_PASS", ""),
		ClinicCID:    getEnv("CLINIC_CID", ""),
		FetchTimeout: getEnvAsDuration("FETCH_TIMEOUT", 20*time.Second),

		SenderProvider: strings.ToLower(strings.TrimSpace(getEnv("SENDER_PROVIDER", "generic"))),
		SenderAPIURL:   getEnv("SENDER_API_URL", ""),
		SenderAuth:     getEnv("SENDER_AUTH", ""),
		SendTimeout:    getEnvAsDuration("SEND_TIMEOUT", 15*time.Second),

		SendMaxAttempts: getEnvAsInt("SEND_MAX_ATTEMPTS", 3),
		SendRetryDelay:  getEnvAsDuration("SEND_RETRY_DELAY", 2*time.Second),

		PollInterval:      getEnvAsDuration("POLL_INTERVAL", 5*time.Minute),
		DaysAhead:         getEnvAsInt("DAYS_AHEAD", 60),
		ReminderDaysAhead: getEnvAsInt("REMINDER_DAYS_AHEAD", 4),
		MaxPages:          getEnvAsInt("MAX_PAGES", 100),

		BlockedProfessionalIDs: getEnvAsInt64List("BLOCKED_PROFESSIONAL_IDS"),

		WebhookPort:        getEnv("WEBHOOK_PORT", "5000"),
		WebhookVerifyToken: getEnv("WEBHOOK_VERIFY_TOKEN", ""),
	}
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsInt64List parses a comma-separated list of int64 values.
// Malformed items are skipped.
func getEnvAsInt64List(key string) []int64 {
	raw := getEnv(key, "")
	if raw == "" {
		return nil
	}
	var out []int64
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if v, err := strconv.ParseInt(part, 10, 64); err == nil {
			out = append(out, v)
		}
	}
	return out
}
