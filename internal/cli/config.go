package cli

import (
	"os"
	"time"
)

// Config is the CLI configuration, read from the environment.
type Config struct {
	ClientID     string // Required: Gini client ID
	ClientSecret string // Required: Gini client secret
	EmailDomain  string // Optional: domain for anonymous user addresses (default: example.com)

	APIBaseURL    string // Optional: Gini API endpoint override
	UserCenterURL string // Optional: User Center endpoint override
	Sandbox       bool   // Optional: use the Gini sandbox environment (default: false)

	CredentialsFile string        // Optional: path to the SQLite credential store (default: ./gini-credentials.db)
	DocType         string        // Optional: document type hint for uploads
	PollTimeout     time.Duration // Optional: how long to wait for processing (default: 2m)

	LogLevel  string // Log level (debug, info, warn, error) (default: info)
	LogFormat string // Log format (json, text) (default: text)
	Env       string // Environment (dev, staging, prod) (default: dev)
}

func LoadConfig() Config {
	return Config{
		ClientID:        os.Getenv("GINI_CLIENT_ID"),
		ClientSecret:    os.Getenv("GINI_CLIENT_SECRET"),
		EmailDomain:     getEnvOrDefault("GINI_EMAIL_DOMAIN", "example.com"),
		APIBaseURL:      os.Getenv("GINI_API_URL"),
		UserCenterURL:   os.Getenv("GINI_USER_CENTER_URL"),
		Sandbox:         getEnvBoolOrDefault("GINI_SANDBOX", false),
		CredentialsFile: getEnvOrDefault("GINI_CREDENTIALS_FILE", "gini-credentials.db"),
		DocType:         os.Getenv("GINI_DOCTYPE"),
		PollTimeout:     getEnvDurationOrDefault("GINI_POLL_TIMEOUT", 2*time.Minute),
		LogLevel:        getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       getEnvOrDefault("LOG_FORMAT", "text"),
		Env:             getEnvOrDefault("ENV", "dev"),
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	switch os.Getenv(key) {
	case "1", "true", "TRUE", "yes":
		return true
	case "0", "false", "FALSE", "no":
		return false
	default:
		return defaultValue
	}
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}

	return defaultValue
}
