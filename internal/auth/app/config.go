package app

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	DatabaseFile   string // Optional: path to SQLite database file (default: ./gatehouse.db)
	PepperFile     string // Optional: path to file containing pepper for password hashing (default: ./pepper)
	SessionKeyFile string // Optional: path to file containing the session cookie HMAC key (default: ./session.key)

	MaxFailedAttempts int           // Failed logins before lockout (default: 3)
	LockoutDuration   time.Duration // Lockout window after too many failures (default: 1m)

	MinPasswordAge time.Duration // Minimum time between password changes (default: 0, disabled)
	MaxPasswordAge time.Duration // Age after which a change is flagged (default: 0, disabled)

	SessionTTL    time.Duration // Session lifetime (default: 5m)
	RememberMeTTL time.Duration // Session lifetime with remember-me (default: 336h)

	ChallengeTTL         time.Duration // Two-factor code lifetime (default: 5m)
	ChallengeMaxAttempts int           // Wrong codes before the challenge is destroyed (default: 5)

	CaptchaSecretKey string  // Optional: reCAPTCHA secret key; empty disables verification
	CaptchaThreshold float64 // Minimum acceptable score (default: 0.5)

	SMTPAddr     string // Optional: SMTP host:port; empty logs emails instead of sending
	SMTPFrom     string // Sender address for outgoing mail
	SMTPUsername string
	SMTPPassword string

	ResetBaseURL  string        // Prefix for emailed reset links (default: http://localhost:8080/reset-password?token=)
	ResetTokenTTL time.Duration // Reset token lifetime (default: 1h)

	RedisAddr     string // Optional: host:port; empty keeps challenges in SQLite
	RedisPassword string
	RedisDB       int

	AuditBufferSize int // Audit event buffer capacity (default: 256)

	Env                  string        // Environment (dev, staging, prod) (default: dev)
	LogLevel             string        // Log level (debug, info, warn, error) (default: info)
	LogFormat            string        // Log format (json, text) (default: json)
	Port                 int           // HTTP server port (default: 8080)
	ShutdownGracePeriod  time.Duration // Graceful shutdown timeout (default: 10s)
	HousekeepingInterval time.Duration // Housekeeping interval (default: 1h)
}

func LoadConfig() Config {
	return Config{
		DatabaseFile:   getEnvOrDefault("AUTH_DATABASE_FILE", "gatehouse.db"),
		PepperFile:     getEnvOrDefault("AUTH_PEPPER_FILE", "pepper"),
		SessionKeyFile: getEnvOrDefault("AUTH_SESSION_KEY_FILE", "session.key"),

		MaxFailedAttempts: getEnvIntOrDefault("AUTH_MAX_FAILED_ATTEMPTS", 3),
		LockoutDuration:   getEnvDurationOrDefault("AUTH_LOCKOUT_DURATION", time.Minute),

		MinPasswordAge: getEnvDurationOrDefault("AUTH_MIN_PASSWORD_AGE", 0),
		MaxPasswordAge: getEnvDurationOrDefault("AUTH_MAX_PASSWORD_AGE", 0),

		SessionTTL:    getEnvDurationOrDefault("AUTH_SESSION_TTL", 5*time.Minute),
		RememberMeTTL: getEnvDurationOrDefault("AUTH_REMEMBER_ME_TTL", 14*24*time.Hour),

		ChallengeTTL:         getEnvDurationOrDefault("AUTH_CHALLENGE_TTL", 5*time.Minute),
		ChallengeMaxAttempts: getEnvIntOrDefault("AUTH_CHALLENGE_MAX_ATTEMPTS", 5),

		CaptchaSecretKey: os.Getenv("CAPTCHA_SECRET_KEY"),
		CaptchaThreshold: getEnvFloatOrDefault("CAPTCHA_THRESHOLD", 0.5),

		SMTPAddr:     os.Getenv("SMTP_ADDR"),
		SMTPFrom:     getEnvOrDefault("SMTP_FROM", "no-reply@localhost"),
		SMTPUsername: os.Getenv("SMTP_USERNAME"),
		SMTPPassword: os.Getenv("SMTP_PASSWORD"),

		ResetBaseURL:  getEnvOrDefault("AUTH_RESET_BASE_URL", "http://localhost:8080/reset-password?token="),
		ResetTokenTTL: getEnvDurationOrDefault("AUTH_RESET_TOKEN_TTL", time.Hour),

		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       getEnvIntOrDefault("REDIS_DB", 0),

		AuditBufferSize: getEnvIntOrDefault("AUTH_AUDIT_BUFFER_SIZE", 256),

		Env:                  getEnvOrDefault("ENV", "dev"),
		LogLevel:             getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:            getEnvOrDefault("LOG_FORMAT", "json"),
		Port:                 getEnvIntOrDefault("PORT", 8080),
		ShutdownGracePeriod:  getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", 10*time.Second),
		HousekeepingInterval: getEnvDurationOrDefault("HOUSEKEEPING_INTERVAL", 1*time.Hour),
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if intValue, err := strconv.Atoi(value); err == nil {
		return intValue
	}

	return defaultValue
}

func getEnvFloatOrDefault(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
		return floatValue
	}

	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	// Try parsing as duration (e.g., "1h", "30m", "90s")
	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}

	// Try parsing as integer minutes (for backwards compatibility)
	if minutes, err := strconv.Atoi(value); err == nil {
		return time.Duration(minutes) * time.Minute
	}

	return defaultValue
}
