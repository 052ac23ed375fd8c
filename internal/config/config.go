// Package config loads crm-connect settings from the environment and checks
// them before the server starts.
//
// Environment Variables:
//
// Application Settings:
//   - PORT: Server port (default: 8080)
//   - LOG_LEVEL: Logging level (default: info)
//   - LOG_FILE: Log file path, or "stdout" (default: crm-connect.log; read by the logging package)
//   - FRONTEND_URL: Where OAuth callbacks send the browser afterwards (default: http://localhost:3000)
//   - TLS_CERT_FILE, TLS_KEY_FILE: Serve HTTPS when both are set
//
// Database Configuration:
//   - DATABASE_TYPE: "sqlite" or "postgres" (default: sqlite)
//   - DATABASE_PATH: SQLite database file path (default: ./crm_connect.db)
//   - POSTGRES_HOST, POSTGRES_PORT, POSTGRES_DB, POSTGRES_USER, POSTGRES_PASSWORD, POSTGRES_SSL_MODE
//
// Redis Configuration (optional; empty REDIS_ADDRESS runs single instance):
//   - REDIS_ADDRESS, REDIS_PASSWORD, REDIS_DB (0-15), REDIS_POOL_SIZE
//
// Security Configuration:
//   - JWT_SECRET: Application JWT signing secret (required, minimum 32 characters)
//   - OAUTH_STATE_SECRET: Signs OAuth state tokens (minimum 32 characters; defaults to JWT_SECRET)
//   - CONFIG_ENCRYPTION_KEY: Encrypts stored tokens (exactly 32 characters when provided)
//   - DEFAULT_CREDENTIAL_ENABLED: Allow the shared default credential (default: false)
//
// Google:
//   - GOOGLE_CLIENT_ID, GOOGLE_CLIENT_SECRET, GOOGLE_REDIRECT_URI, GOOGLE_SCOPES
//
// RingCentral:
//   - RINGCENTRAL_CLIENT_ID, RINGCENTRAL_CLIENT_SECRET, RINGCENTRAL_REDIRECT_URI, RINGCENTRAL_SCOPES
//   - RINGCENTRAL_ENVIRONMENT: "sandbox" or "production" (default: sandbox)
//   - RINGCENTRAL_SERVER_URL: Overrides the environment's platform URL
//   - RINGCENTRAL_WEBHOOK_SECRET: Verifies X-RingCentral-Signature on webhooks
//
// Token Lifecycle:
//   - OAUTH_HTTP_TIMEOUT: Bound on every provider HTTP call (default: 15s)
//   - OAUTH_STATE_TTL: Lifetime of an OAuth state token (default: 10m)
//   - REFRESH_SWEEP_ENABLED: Refresh expiring tokens in the background (default: true)
//   - REFRESH_SWEEP_SCHEDULE: Cron schedule for the sweep (default: @every 1m)
//
// Rate Limiting (public callback and webhook routes):
//   - RATE_LIMIT_ENABLED (default: true), RATE_LIMIT_RPS (default: 5), RATE_LIMIT_BURST (default: 10)
//
// Credential Events:
//   - EVENTS_BACKEND: none, redis, rabbitmq, sns, sqs, pubsub or kafka (default: none)
//   - EVENTS_TOPIC: Channel, exchange, or topic name (default: crm.credentials)
//   - RABBITMQ_URL, AWS_REGION, AWS_SNS_TOPIC_ARN, AWS_SQS_QUEUE_URL,
//     EVENTS_AWS_ACCESS_KEY_ID, EVENTS_AWS_SECRET_ACCESS_KEY (default credential chain when unset),
//     GCP_PROJECT_ID, GCP_CREDENTIALS_FILE, KAFKA_BROKERS
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// Config holds all configuration values. Fields tagged with validate are
// checked by go-playground/validator; cross-field rules live in Validate.
type Config struct {
	// Application settings
	Port        string // Server port number
	LogLevel    string // Logging level (debug, info, warn, error)
	FrontendURL string `validate:"required,url"` // Browser landing base URL after OAuth callbacks
	TLSCertFile string
	TLSKeyFile  string

	// Database configuration
	DatabaseType     string `validate:"oneof=sqlite postgres postgresql"`
	DatabasePath     string // Path to SQLite database file
	PostgresHost     string
	PostgresPort     string
	PostgresDB       string
	PostgresUser     string
	PostgresPassword string
	PostgresSSLMode  string

	// Redis configuration; empty address disables every Redis-backed feature
	RedisAddress  string
	RedisPassword string
	RedisDB       string
	RedisPoolSize string

	// Security
	JWTSecret                string `validate:"required,min=32"`
	StateSecret              string `validate:"required,min=32"`
	EncryptionKey            string `validate:"omitempty,len=32"`
	DefaultCredentialEnabled bool

	// Google OAuth client
	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURI  string `validate:"omitempty,url"`
	GoogleScopes       []string

	// RingCentral OAuth client
	RingCentralClientID      string
	RingCentralClientSecret  string
	RingCentralRedirectURI   string `validate:"omitempty,url"`
	RingCentralScopes        []string
	RingCentralEnvironment   string `validate:"oneof=sandbox production"`
	RingCentralServerURL     string `validate:"omitempty,url"`
	RingCentralWebhookSecret string

	// Token lifecycle
	OAuthHTTPTimeout     time.Duration `validate:"gt=0"`
	StateTTL             time.Duration `validate:"gt=0"`
	RefreshSweepEnabled  bool
	RefreshSweepSchedule string

	// Rate limiting
	RateLimitEnabled bool
	RateLimitRPS     string
	RateLimitBurst   string

	// Credential events
	EventsBackend      string `validate:"oneof=none redis rabbitmq sns sqs pubsub kafka"`
	EventsTopic        string
	RabbitMQURL        string
	AWSRegion          string
	AWSSNSTopicARN     string
	AWSSQSQueueURL     string
	AWSAccessKeyID     string
	AWSSecretAccessKey string
	GCPProjectID       string
	GCPCredentialsFile string
	KafkaBrokers       string
}

// DefaultGoogleScopes covers Calendar, Gmail read access and the identity
// needed to label the connection.
var DefaultGoogleScopes = []string{
	"https://www.googleapis.com/auth/calendar",
	"https://www.googleapis.com/auth/calendar.events",
	"https://www.googleapis.com/auth/gmail.readonly",
	"https://www.googleapis.com/auth/userinfo.email",
	"https://www.googleapis.com/auth/userinfo.profile",
}

// DefaultRingCentralScopes covers voice, SMS, team messaging and meetings
var DefaultRingCentralScopes = []string{
	"ReadAccounts", "ReadCallLog", "ReadCallRecording", "ReadContacts", "ReadMessages",
	"ReadPresence", "ReadUsers", "SMS", "VoIPCalling", "EditMessages", "EditPresence",
	"TeamMessaging", "VideoMeetings",
}

// RingCentral platform URLs per environment
const (
	RingCentralSandboxURL    = "https://platform.devtest.ringcentral.com"
	RingCentralProductionURL = "https://platform.ringcentral.com"
)

// Load creates a new Config from environment variables, applying defaults.
// Call Validate before use.
func Load() *Config {
	jwtSecret := getEnv("JWT_SECRET", "")

	return &Config{
		Port:        getEnv("PORT", "8080"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		FrontendURL: strings.TrimRight(getEnv("FRONTEND_URL", "http://localhost:3000"), "/"),
		TLSCertFile: getEnv("TLS_CERT_FILE", ""),
		TLSKeyFile:  getEnv("TLS_KEY_FILE", ""),

		DatabaseType:     getEnv("DATABASE_TYPE", "sqlite"),
		DatabasePath:     getEnv("DATABASE_PATH", "./crm_connect.db"),
		PostgresHost:     getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:     getEnv("POSTGRES_PORT", "5432"),
		PostgresDB:       getEnv("POSTGRES_DB", "crm_connect"),
		PostgresUser:     getEnv("POSTGRES_USER", "postgres"),
		PostgresPassword: getEnv("POSTGRES_PASSWORD", ""),
		PostgresSSLMode:  getEnv("POSTGRES_SSL_MODE", "disable"),

		RedisAddress:  getEnv("REDIS_ADDRESS", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnv("REDIS_DB", "0"),
		RedisPoolSize: getEnv("REDIS_POOL_SIZE", "10"),

		JWTSecret:                jwtSecret,
		StateSecret:              getEnv("OAUTH_STATE_SECRET", jwtSecret),
		EncryptionKey:            getEnv("CONFIG_ENCRYPTION_KEY", ""),
		DefaultCredentialEnabled: getBoolEnv("DEFAULT_CREDENTIAL_ENABLED", false),

		GoogleClientID:     getEnv("GOOGLE_CLIENT_ID", ""),
		GoogleClientSecret: getEnv("GOOGLE_CLIENT_SECRET", ""),
		GoogleRedirectURI:  getEnv("GOOGLE_REDIRECT_URI", "http://localhost:8080/auth/google/callback"),
		GoogleScopes:       getListEnv("GOOGLE_SCOPES", DefaultGoogleScopes),

		RingCentralClientID:      getEnv("RINGCENTRAL_CLIENT_ID", ""),
		RingCentralClientSecret:  getEnv("RINGCENTRAL_CLIENT_SECRET", ""),
		RingCentralRedirectURI:   getEnv("RINGCENTRAL_REDIRECT_URI", "http://localhost:8080/auth/ringcentral/callback"),
		RingCentralScopes:        getListEnv("RINGCENTRAL_SCOPES", DefaultRingCentralScopes),
		RingCentralEnvironment:   strings.ToLower(getEnv("RINGCENTRAL_ENVIRONMENT", "sandbox")),
		RingCentralServerURL:     getEnv("RINGCENTRAL_SERVER_URL", ""),
		RingCentralWebhookSecret: getEnv("RINGCENTRAL_WEBHOOK_SECRET", ""),

		OAuthHTTPTimeout:     getDurationEnv("OAUTH_HTTP_TIMEOUT", 15*time.Second),
		StateTTL:             getDurationEnv("OAUTH_STATE_TTL", 10*time.Minute),
		RefreshSweepEnabled:  getBoolEnv("REFRESH_SWEEP_ENABLED", true),
		RefreshSweepSchedule: getEnv("REFRESH_SWEEP_SCHEDULE", "@every 1m"),

		RateLimitEnabled: getBoolEnv("RATE_LIMIT_ENABLED", true),
		RateLimitRPS:     getEnv("RATE_LIMIT_RPS", "5"),
		RateLimitBurst:   getEnv("RATE_LIMIT_BURST", "10"),

		EventsBackend:      strings.ToLower(getEnv("EVENTS_BACKEND", "none")),
		EventsTopic:        getEnv("EVENTS_TOPIC", "crm.credentials"),
		RabbitMQURL:        getEnv("RABBITMQ_URL", ""),
		AWSRegion:          getEnv("AWS_REGION", "us-east-1"),
		AWSSNSTopicARN:     getEnv("AWS_SNS_TOPIC_ARN", ""),
		AWSSQSQueueURL:     getEnv("AWS_SQS_QUEUE_URL", ""),
		AWSAccessKeyID:     getEnv("EVENTS_AWS_ACCESS_KEY_ID", ""),
		AWSSecretAccessKey: getEnv("EVENTS_AWS_SECRET_ACCESS_KEY", ""),
		GCPProjectID:       getEnv("GCP_PROJECT_ID", ""),
		GCPCredentialsFile: getEnv("GCP_CREDENTIALS_FILE", ""),
		KafkaBrokers:       getEnv("KAFKA_BROKERS", ""),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getBoolEnv accepts anything strconv.ParseBool does; invalid values fall back to the default
func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// getListEnv splits a comma or space separated list
func getListEnv(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return append([]string(nil), defaultValue...)
	}
	return strings.FieldsFunc(value, func(r rune) bool { return r == ',' || r == ' ' })
}

// GoogleEnabled reports whether Google OAuth client credentials are configured
func (c *Config) GoogleEnabled() bool {
	return c.GoogleClientID != "" && c.GoogleClientSecret != ""
}

// RingCentralEnabled reports whether RingCentral OAuth client credentials are configured
func (c *Config) RingCentralEnabled() bool {
	return c.RingCentralClientID != "" && c.RingCentralClientSecret != ""
}

// RingCentralBaseURL returns the platform URL for the configured environment
func (c *Config) RingCentralBaseURL() string {
	if c.RingCentralServerURL != "" {
		return strings.TrimRight(c.RingCentralServerURL, "/")
	}
	if c.RingCentralEnvironment == "production" {
		return RingCentralProductionURL
	}
	return RingCentralSandboxURL
}

// RedisEnabled reports whether a Redis address is configured
func (c *Config) RedisEnabled() bool {
	return c.RedisAddress != ""
}

// KafkaBrokerList splits KAFKA_BROKERS on commas
func (c *Config) KafkaBrokerList() []string {
	if c.KafkaBrokers == "" {
		return nil
	}
	var brokers []string
	for _, b := range strings.Split(c.KafkaBrokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}

var validate = validator.New()

// Validate checks required fields, formats, and cross-field dependencies.
func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET environment variable is required")
	}

	if err := validate.Struct(c); err != nil {
		if verrs, ok := err.(validator.ValidationErrors); ok && len(verrs) > 0 {
			return fmt.Errorf("invalid configuration: %s failed '%s' check", envName(verrs[0].Field()), verrs[0].Tag())
		}
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if port, err := strconv.Atoi(c.Port); err != nil || port < 1 || port > 65535 {
		return fmt.Errorf("PORT must be a valid port number between 1 and 65535")
	}

	if c.DatabaseType == "postgres" || c.DatabaseType == "postgresql" {
		if c.PostgresHost == "" {
			return fmt.Errorf("POSTGRES_HOST is required when using PostgreSQL")
		}
		if c.PostgresDB == "" {
			return fmt.Errorf("POSTGRES_DB is required when using PostgreSQL")
		}
		if c.PostgresUser == "" {
			return fmt.Errorf("POSTGRES_USER is required when using PostgreSQL")
		}
		if port, err := strconv.Atoi(c.PostgresPort); err != nil || port < 1 || port > 65535 {
			return fmt.Errorf("POSTGRES_PORT must be a valid port number")
		}
	}

	if c.RedisEnabled() {
		if db, err := strconv.Atoi(c.RedisDB); err != nil || db < 0 || db > 15 {
			return fmt.Errorf("REDIS_DB must be a number between 0 and 15")
		}
		if poolSize, err := strconv.Atoi(c.RedisPoolSize); err != nil || poolSize < 1 {
			return fmt.Errorf("REDIS_POOL_SIZE must be a positive number")
		}
	}

	if !c.GoogleEnabled() && !c.RingCentralEnabled() {
		return fmt.Errorf("at least one provider must be configured (GOOGLE_CLIENT_ID/SECRET or RINGCENTRAL_CLIENT_ID/SECRET)")
	}
	if (c.GoogleClientID == "") != (c.GoogleClientSecret == "") {
		return fmt.Errorf("GOOGLE_CLIENT_ID and GOOGLE_CLIENT_SECRET must be set together")
	}
	if (c.RingCentralClientID == "") != (c.RingCentralClientSecret == "") {
		return fmt.Errorf("RINGCENTRAL_CLIENT_ID and RINGCENTRAL_CLIENT_SECRET must be set together")
	}

	if c.RateLimitEnabled {
		if rps, err := strconv.Atoi(c.RateLimitRPS); err != nil || rps < 1 {
			return fmt.Errorf("RATE_LIMIT_RPS must be a positive number")
		}
		if burst, err := strconv.Atoi(c.RateLimitBurst); err != nil || burst < 1 {
			return fmt.Errorf("RATE_LIMIT_BURST must be a positive number")
		}
	}

	switch c.EventsBackend {
	case "redis":
		if !c.RedisEnabled() {
			return fmt.Errorf("EVENTS_BACKEND=redis requires REDIS_ADDRESS")
		}
	case "rabbitmq":
		if c.RabbitMQURL == "" {
			return fmt.Errorf("EVENTS_BACKEND=rabbitmq requires RABBITMQ_URL")
		}
	case "sns":
		if c.AWSSNSTopicARN == "" {
			return fmt.Errorf("EVENTS_BACKEND=sns requires AWS_SNS_TOPIC_ARN")
		}
	case "sqs":
		if c.AWSSQSQueueURL == "" {
			return fmt.Errorf("EVENTS_BACKEND=sqs requires AWS_SQS_QUEUE_URL")
		}
	}
	if c.EventsBackend == "sns" || c.EventsBackend == "sqs" {
		if (c.AWSAccessKeyID == "") != (c.AWSSecretAccessKey == "") {
			return fmt.Errorf("EVENTS_AWS_ACCESS_KEY_ID and EVENTS_AWS_SECRET_ACCESS_KEY must be set together")
		}
	}

	switch c.EventsBackend {
	case "pubsub":
		if c.GCPProjectID == "" {
			return fmt.Errorf("EVENTS_BACKEND=pubsub requires GCP_PROJECT_ID")
		}
	case "kafka":
		if len(c.KafkaBrokerList()) == 0 {
			return fmt.Errorf("EVENTS_BACKEND=kafka requires KAFKA_BROKERS")
		}
	}

	if (c.TLSCertFile == "") != (c.TLSKeyFile == "") {
		return fmt.Errorf("TLS_CERT_FILE and TLS_KEY_FILE must be set together")
	}

	return nil
}

// envName maps a struct field back to its environment variable for error messages
func envName(field string) string {
	names := map[string]string{
		"FrontendURL":            "FRONTEND_URL",
		"DatabaseType":           "DATABASE_TYPE",
		"JWTSecret":              "JWT_SECRET",
		"StateSecret":            "OAUTH_STATE_SECRET",
		"EncryptionKey":          "CONFIG_ENCRYPTION_KEY",
		"GoogleRedirectURI":      "GOOGLE_REDIRECT_URI",
		"RingCentralRedirectURI": "RINGCENTRAL_REDIRECT_URI",
		"RingCentralEnvironment": "RINGCENTRAL_ENVIRONMENT",
		"RingCentralServerURL":   "RINGCENTRAL_SERVER_URL",
		"OAuthHTTPTimeout":       "OAUTH_HTTP_TIMEOUT",
		"StateTTL":               "OAUTH_STATE_TTL",
		"EventsBackend":          "EVENTS_BACKEND",
	}
	if name, ok := names[field]; ok {
		return name
	}
	return field
}
