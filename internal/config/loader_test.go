package config

import (
	"errors"
	"testing"
	"time"
)

// setRequiredEnv sets the minimum environment for a successful load.
func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("APP_ENV", "dev")
	t.Setenv("DATABASE_URL", "postgres://agency:pw@localhost:5432/agencydesk")
}

func TestLoadConfig_Success(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("STRIPE_WEBHOOK_SECRET", "whsec_env")
	t.Setenv("FINANCE_ALERT_EMAILS", "finance@agencydesk.io,cfo@agencydesk.io")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if cfg.Environment != "dev" {
		t.Errorf("unexpected environment %q", cfg.Environment)
	}
	if cfg.Database.URL.Unmask() != "postgres://agency:pw@localhost:5432/agencydesk" {
		t.Error("database URL not loaded")
	}
	if cfg.Billing.StripeWebhookSecret.Unmask() != "whsec_env" {
		t.Error("webhook secret not loaded")
	}
	if len(cfg.Email.FinanceAlertEmails) != 2 || cfg.Email.FinanceAlertEmails[1] != "cfo@agencydesk.io" {
		t.Errorf("unexpected alert recipients %v", cfg.Email.FinanceAlertEmails)
	}
}

func TestLoadConfig_DefaultsApplied(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if cfg.Server.Port != "8080" {
		t.Errorf("unexpected default port %q", cfg.Server.Port)
	}
	if cfg.Service != "agencydesk-billing" {
		t.Errorf("unexpected default service name %q", cfg.Service)
	}
	if cfg.Database.MaxConns != 10 || cfg.Database.MinConns != 2 {
		t.Errorf("unexpected pool defaults %d/%d", cfg.Database.MaxConns, cfg.Database.MinConns)
	}
	if cfg.Sweeper.Interval != time.Minute || cfg.Sweeper.BatchSize != 50 {
		t.Errorf("unexpected sweeper defaults %v/%d", cfg.Sweeper.Interval, cfg.Sweeper.BatchSize)
	}
	if cfg.Email.FromAddress != "noreply@agencydesk.io" {
		t.Errorf("unexpected default sender %q", cfg.Email.FromAddress)
	}
}

func TestLoadConfig_SendgridSenderEnvVars(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("SENDGRID_FROM_EMAIL", "billing@agencydesk.io")
	t.Setenv("SENDGRID_FROM_NAME", "AgencyDesk Financeiro")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if cfg.Email.FromAddress != "billing@agencydesk.io" {
		t.Errorf("unexpected sender address %q", cfg.Email.FromAddress)
	}
	if cfg.Email.FromName != "AgencyDesk Financeiro" {
		t.Errorf("unexpected sender name %q", cfg.Email.FromName)
	}
}

func TestLoadConfig_MissingDatabaseURL(t *testing.T) {
	t.Setenv("APP_ENV", "dev")
	t.Setenv("DATABASE_URL", "")

	_, err := LoadConfig()
	if err == nil {
		t.Fatal("expected a validation failure without DATABASE_URL")
	}
	var cfgErr *ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected ConfigError, got %T", err)
	}
	if cfgErr.Type != ErrValidation {
		t.Errorf("expected %s, got %s", ErrValidation, cfgErr.Type)
	}
}

func TestLoadConfig_InvalidEnvironment(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("APP_ENV", "production-ish")

	_, err := LoadConfig()
	var cfgErr *ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected ConfigError, got %v", err)
	}
	if cfgErr.Type != ErrValidation {
		t.Errorf("expected %s, got %s", ErrValidation, cfgErr.Type)
	}
}

func TestLoadConfig_UnparseableDuration(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("SWEEP_INTERVAL", "not-a-duration")

	_, err := LoadConfig()
	var cfgErr *ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected ConfigError, got %v", err)
	}
	if cfgErr.Type != ErrParsing {
		t.Errorf("expected %s, got %s", ErrParsing, cfgErr.Type)
	}
}
