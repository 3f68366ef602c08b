package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration
type Config struct {
	Port          string
	Env           string
	LogLevel      string
	DatabaseURL   string
	RedisAddr     string
	RedisPassword string
	RedisTLS      bool

	AdminJWTSecret     string
	CORSAllowedOrigins []string

	// Per-IP throttle on the public booking surface. Zero disables it.
	BookingRatePerSecond float64
	BookingRateBurst     int

	// Scheduling constants. Window duration partitions the operating day;
	// arrival buffer and minimum spacing drive the gap-filling scan.
	WindowDurationMinutes int
	ArrivalBufferMinutes  int
	MinSpacingMinutes     int
	AllowedDelayMinutes   []int

	// Sequence counter name. One global counter across all sites.
	CounterName string

	// Pre-booking intents expire after this long.
	PrebookTTL time.Duration

	// Email provider: "sendgrid", "ses" or "stub".
	EmailProvider     string
	SendGridAPIKey    string
	SendGridFromEmail string
	SendGridFromName  string
	AWSRegion         string
	SESFromEmail      string
	SESFromName       string
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:          getEnv("PORT", "8080"),
		Env:           getEnv("ENV", "development"),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		DatabaseURL:   getEnv("DATABASE_URL", ""),
		RedisAddr:     getEnv("REDIS_ADDR", "redis:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisTLS:      getEnvAsBool("REDIS_TLS", false),

		AdminJWTSecret:     getEnv("ADMIN_JWT_SECRET", ""),
		CORSAllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS", nil),

		BookingRatePerSecond: getEnvAsFloat("BOOKING_RATE_PER_SECOND", 5),
		BookingRateBurst:     getEnvAsInt("BOOKING_RATE_BURST", 10),

		WindowDurationMinutes: getEnvAsInt("WINDOW_DURATION_MINUTES", 180),
		ArrivalBufferMinutes:  getEnvAsInt("ARRIVAL_BUFFER_MINUTES", 20),
		MinSpacingMinutes:     getEnvAsInt("MIN_SPACING_MINUTES", 20),
		AllowedDelayMinutes:   getEnvAsIntList("ALLOWED_DELAY_MINUTES", []int{5, 10}),

		CounterName: getEnv("APPOINTMENT_COUNTER_NAME", "appointment_number"),

		PrebookTTL: getEnvAsDuration("PREBOOK_TTL", 24*time.Hour),

		EmailProvider:     strings.ToLower(strings.TrimSpace(getEnv("EMAIL_PROVIDER", "stub"))),
		SendGridAPIKey:    getEnv("SENDGRID_API_KEY", ""),
		SendGridFromEmail: getEnv("SENDGRID_FROM_EMAIL", ""),
		SendGridFromName:  getEnv("SENDGRID_FROM_NAME", "HealthSched"),
		AWSRegion:         getEnv("AWS_REGION", "us-east-1"),
		SESFromEmail:      getEnv("SES_FROM_EMAIL", ""),
		SESFromName:       getEnv("SES_FROM_NAME", "HealthSched"),
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

// getEnvAsFloat retrieves an environment variable as a float or returns a default value
func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
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

func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	parts := strings.Split(valueStr, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}

func getEnvAsIntList(key string, defaultValue []int) []int {
	values := getEnvAsList(key, nil)
	if values == nil {
		return defaultValue
	}
	out := make([]int, 0, len(values))
	for _, v := range values {
		n, err := strconv.Atoi(v)
		if err != nil {
			return defaultValue
		}
		out = append(out, n)
	}
	return out
}
