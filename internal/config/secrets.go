package config

import (
	"context"
	"log/slog"

	"agencydesk/internal/types"
)

// Integration identifiers in the integration_configs table.
const (
	IntegrationStripe   = "stripe"
	IntegrationSendGrid = "sendgrid"
)

// IntegrationConfigReader reads a single integration's settings row.
// Implemented by db.IntegrationRepo.
type IntegrationConfigReader interface {
	// GetConfig returns the settings row for the integration, or (nil, nil)
	// when no row exists.
	GetConfig(ctx context.Context, integrationID string) (*types.IntegrationConfig, error)
}

// SecretResolver resolves runtime secrets with database-stored integration
// settings taking precedence over environment fallbacks. Every resolution is
// tagged with its source so callers can log provenance and distinguish
// "not configured" from "configured but wrong".
//
// Database read failures degrade to the environment fallback with a WARN log
// rather than failing the request: a flaky settings read must not take the
// webhook endpoint down.
type SecretResolver struct {
	configs IntegrationConfigReader
	env     *Config
	logger  *slog.Logger
}

// NewSecretResolver creates a SecretResolver over the given settings reader
// and environment config.
func NewSecretResolver(configs IntegrationConfigReader, env *Config, logger *slog.Logger) *SecretResolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &SecretResolver{
		configs: configs,
		env:     env,
		logger:  logger,
	}
}

// StripeWebhookSecret resolves the webhook signing secret: the
// integration_configs row for "stripe" first, then STRIPE_WEBHOOK_SECRET.
func (r *SecretResolver) StripeWebhookSecret(ctx context.Context) types.ResolvedSecret {
	if cfg := r.lookup(ctx, IntegrationStripe); cfg != nil {
		if secret := columnOrConfigKey(cfg.WebhookSecret, cfg.Config, "webhook_secret"); secret != "" {
			return types.ResolvedSecret{Source: types.SecretSourceDB, Value: types.SecretString(secret)}
		}
	}

	if r.env.Billing.StripeWebhookSecret != "" {
		return types.ResolvedSecret{Source: types.SecretSourceEnv, Value: r.env.Billing.StripeWebhookSecret}
	}

	return types.ResolvedSecret{Source: types.SecretSourceNone}
}

// EmailSettings resolves the SendGrid API key and sender identity. Only a
// "connected" integration row contributes credentials; otherwise the
// environment fallbacks apply. A KeySource of none means email side-effects
// should be skipped, not attempted.
func (r *SecretResolver) EmailSettings(ctx context.Context) types.EmailSettings {
	settings := types.EmailSettings{
		KeySource: types.SecretSourceNone,
		FromEmail: r.env.Email.FromAddress,
		FromName:  r.env.Email.FromName,
	}

	if cfg := r.lookup(ctx, IntegrationSendGrid); cfg != nil && cfg.Status == types.IntegrationConfigStatusConnected {
		if key := columnOrConfigKey(cfg.APIKey, cfg.Config, "api_key"); key != "" {
			settings.APIKey = types.SecretString(key)
			settings.KeySource = types.SecretSourceDB
		}
		if from, ok := cfg.Config["from_email"].(string); ok && from != "" {
			settings.FromEmail = from
		}
		if name, ok := cfg.Config["from_name"].(string); ok && name != "" {
			settings.FromName = name
		}
	}

	if settings.KeySource == types.SecretSourceNone && r.env.Email.SendGridAPIKey != "" {
		settings.APIKey = r.env.Email.SendGridAPIKey
		settings.KeySource = types.SecretSourceEnv
	}

	return settings
}

// columnOrConfigKey reads a credential from its dedicated column, falling
// back to the legacy JSONB key for rows written before the column existed.
func columnOrConfigKey(column *string, config types.JSONMap, key string) string {
	if column != nil && *column != "" {
		return *column
	}
	if v, ok := config[key].(string); ok {
		return v
	}
	return ""
}

// lookup fetches an integration row, degrading to nil on read failure.
func (r *SecretResolver) lookup(ctx context.Context, integrationID string) *types.IntegrationConfig {
	cfg, err := r.configs.GetConfig(ctx, integrationID)
	if err != nil {
		r.logger.WarnContext(ctx, "integration config lookup failed; falling back to environment",
			"integration_id", integrationID,
			"error", err,
		)
		return nil
	}
	return cfg
}
