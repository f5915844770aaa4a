// Package config defines the global configuration structure for the AgencyDesk
// billing service. Configuration is loaded once at process initialization and
// is immutable thereafter. It follows 12-Factor App principles by strictly
// separating code from configuration.
//
// Values are resolved via a priority chain:
//
//	OS Environment (Highest) -> Dotenv File (Lowest)
//
// Secrets that can also live in the integration_configs table (the Stripe
// webhook secret, the SendGrid API key) are resolved at request time by
// config.SecretResolver with the environment values here as fallback.
//
// Any missing required value or invalid format causes the application to fail
// immediately on startup (fail fast).
package config

import (
	"time"

	"agencydesk/internal/types"
)

// SecretString is an alias for types.SecretString, the redacted secret type used
// throughout configuration to prevent accidental logging of sensitive values.
type SecretString = types.SecretString

// Config is the top-level configuration struct for the AgencyDesk service.
// It is populated once during process initialization and never modified.
// Sub-components receive only the specific config subsets they require
// (Least Privilege principle).
type Config struct {
	// System Metadata
	Environment string `envconfig:"APP_ENV" validate:"required,oneof=local dev staging prod"`
	Service     string `envconfig:"SERVICE_NAME" default:"agencydesk-billing"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`

	// Domain Configurations
	Server   ServerConfig
	Database DatabaseConfig
	Billing  BillingConfig
	Email    EmailConfig
	Sweeper  SweeperConfig

	// Build Metadata (Injected via ldflags, not Env)
	Build BuildInfo
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port string `envconfig:"PORT" default:"8080"`
	// Public dashboard URL used in notification links (no trailing slash).
	DashboardURL string `envconfig:"DASHBOARD_URL" default:"https://app.agencydesk.io"`
}

// DatabaseConfig holds database connection and pool tuning parameters.
type DatabaseConfig struct {
	URL SecretString `envconfig:"DATABASE_URL" validate:"required"`

	// Tuning Parameters
	MaxConns          int           `envconfig:"DB_MAX_CONNS" default:"10"`
	MinConns          int           `envconfig:"DB_MIN_CONNS" default:"2"`
	MaxConnLifetime   time.Duration `envconfig:"DB_MAX_CONN_LIFETIME" default:"30m"`
	AcquireTimeout    time.Duration `envconfig:"DB_ACQUIRE_TIMEOUT" default:"2s"`     // Fail fast when pool exhausted
	HealthCheckPeriod time.Duration `envconfig:"DB_HEALTH_CHECK_PERIOD" default:"1m"` // Detect dead connections during failover
}

// BillingConfig holds the Stripe webhook fallback secret. The database-stored
// secret in integration_configs takes precedence at request time.
type BillingConfig struct {
	StripeWebhookSecret SecretString `envconfig:"STRIPE_WEBHOOK_SECRET"`
}

// EmailConfig holds email delivery provider fallback credentials and the
// finance alert distribution list.
type EmailConfig struct {
	SendGridAPIKey SecretString `envconfig:"SENDGRID_API_KEY"`
	FromAddress    string       `envconfig:"SENDGRID_FROM_EMAIL" default:"noreply@agencydesk.io"`
	FromName       string       `envconfig:"SENDGRID_FROM_NAME" default:"AgencyDesk"`
	// FinanceAlertEmails is the comma-separated recipient list for payment
	// failure alerts.
	FinanceAlertEmails []string `envconfig:"FINANCE_ALERT_EMAILS"`
}

// SweeperConfig tunes the background retry loop for unprocessed internal events.
type SweeperConfig struct {
	Interval    time.Duration `envconfig:"SWEEP_INTERVAL" default:"1m"`
	BatchSize   int           `envconfig:"SWEEP_BATCH_SIZE" default:"50"`
	Concurrency int           `envconfig:"SWEEP_CONCURRENCY" default:"4"`
	// MinAge keeps the sweeper from racing the synchronous processing attempt
	// that follows event persistence.
	MinAge time.Duration `envconfig:"SWEEP_MIN_AGE" default:"30s"`
}

// BuildInfo holds build-time metadata injected via ldflags.
// These values are NOT populated from environment variables.
type BuildInfo struct {
	Version   string
	Commit    string
	BuildTime string
}

// ConfigErrorType categorizes configuration loading failures to aid debugging.
type ConfigErrorType string

const (
	// ErrMissingEnv indicates a required environment variable was not found.
	ErrMissingEnv ConfigErrorType = "MISSING_ENV"
	// ErrValidation indicates the configuration failed struct validation rules.
	ErrValidation ConfigErrorType = "VALIDATION_FAILED"
	// ErrParsing indicates a failure when parsing environment variable values
	// into their target types.
	ErrParsing ConfigErrorType = "PARSING_FAILED"
)
