package config

import (
	"context"
	"errors"
	"testing"

	"agencydesk/internal/types"
)

type mockConfigReader struct {
	rows map[string]*types.IntegrationConfig
	err  error
}

func (m *mockConfigReader) GetConfig(ctx context.Context, integrationID string) (*types.IntegrationConfig, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.rows[integrationID], nil
}

func envWithSecrets() *Config {
	cfg := &Config{}
	cfg.Billing.StripeWebhookSecret = types.SecretString("whsec_env")
	cfg.Email.SendGridAPIKey = types.SecretString("SG.env-key")
	cfg.Email.FromAddress = "noreply@agencydesk.io"
	cfg.Email.FromName = "AgencyDesk"
	return cfg
}

func TestSecretResolver_WebhookSecret_DatabaseWins(t *testing.T) {
	reader := &mockConfigReader{rows: map[string]*types.IntegrationConfig{
		IntegrationStripe: {
			IntegrationID: IntegrationStripe,
			Status:        types.IntegrationConfigStatusConnected,
			Config:        types.JSONMap{"webhook_secret": "whsec_db"},
		},
	}}
	r := NewSecretResolver(reader, envWithSecrets(), nil)

	resolved := r.StripeWebhookSecret(context.Background())
	if resolved.Source != types.SecretSourceDB {
		t.Errorf("expected db source, got %q", resolved.Source)
	}
	if resolved.Value.Unmask() != "whsec_db" {
		t.Errorf("expected the stored secret, got %q", resolved.Value.Unmask())
	}
}

func TestSecretResolver_WebhookSecret_ColumnWinsOverConfigKey(t *testing.T) {
	col := "whsec_column"
	reader := &mockConfigReader{rows: map[string]*types.IntegrationConfig{
		IntegrationStripe: {
			IntegrationID: IntegrationStripe,
			WebhookSecret: &col,
			Config:        types.JSONMap{"webhook_secret": "whsec_legacy"},
		},
	}}
	r := NewSecretResolver(reader, envWithSecrets(), nil)

	resolved := r.StripeWebhookSecret(context.Background())
	if resolved.Source != types.SecretSourceDB {
		t.Errorf("expected db source, got %q", resolved.Source)
	}
	if resolved.Value.Unmask() != "whsec_column" {
		t.Errorf("expected the column secret to win, got %q", resolved.Value.Unmask())
	}
}

func TestSecretResolver_WebhookSecret_EnvFallback(t *testing.T) {
	r := NewSecretResolver(&mockConfigReader{}, envWithSecrets(), nil)

	resolved := r.StripeWebhookSecret(context.Background())
	if resolved.Source != types.SecretSourceEnv {
		t.Errorf("expected env source, got %q", resolved.Source)
	}
	if resolved.Value.Unmask() != "whsec_env" {
		t.Errorf("expected the environment secret, got %q", resolved.Value.Unmask())
	}
}

func TestSecretResolver_WebhookSecret_EmptyDBValueFallsThrough(t *testing.T) {
	reader := &mockConfigReader{rows: map[string]*types.IntegrationConfig{
		IntegrationStripe: {
			IntegrationID: IntegrationStripe,
			Config:        types.JSONMap{"webhook_secret": ""},
		},
	}}
	r := NewSecretResolver(reader, envWithSecrets(), nil)

	if resolved := r.StripeWebhookSecret(context.Background()); resolved.Source != types.SecretSourceEnv {
		t.Errorf("an empty stored secret must fall through to env, got %q", resolved.Source)
	}
}

func TestSecretResolver_WebhookSecret_Unconfigured(t *testing.T) {
	r := NewSecretResolver(&mockConfigReader{}, &Config{}, nil)

	resolved := r.StripeWebhookSecret(context.Background())
	if resolved.Source != types.SecretSourceNone {
		t.Errorf("expected none, got %q", resolved.Source)
	}
	if resolved.IsSet() {
		t.Error("an unresolved secret must not report as set")
	}
}

func TestSecretResolver_WebhookSecret_ReadFailureDegradesToEnv(t *testing.T) {
	reader := &mockConfigReader{err: errors.New("connection reset")}
	r := NewSecretResolver(reader, envWithSecrets(), nil)

	if resolved := r.StripeWebhookSecret(context.Background()); resolved.Source != types.SecretSourceEnv {
		t.Errorf("a settings read failure must degrade to env, got %q", resolved.Source)
	}
}

func TestSecretResolver_EmailSettings_ConnectedRowWins(t *testing.T) {
	reader := &mockConfigReader{rows: map[string]*types.IntegrationConfig{
		IntegrationSendGrid: {
			IntegrationID: IntegrationSendGrid,
			Status:        types.IntegrationConfigStatusConnected,
			Config: types.JSONMap{
				"api_key":    "SG.db-key",
				"from_email": "billing@agencydesk.io",
				"from_name":  "AgencyDesk Financeiro",
			},
		},
	}}
	r := NewSecretResolver(reader, envWithSecrets(), nil)

	settings := r.EmailSettings(context.Background())
	if settings.KeySource != types.SecretSourceDB {
		t.Errorf("expected db key source, got %q", settings.KeySource)
	}
	if settings.APIKey.Unmask() != "SG.db-key" {
		t.Errorf("expected the stored key, got %q", settings.APIKey.Unmask())
	}
	if settings.FromEmail != "billing@agencydesk.io" || settings.FromName != "AgencyDesk Financeiro" {
		t.Errorf("expected the stored sender identity, got %q <%q>", settings.FromName, settings.FromEmail)
	}
}

func TestSecretResolver_EmailSettings_APIKeyColumn(t *testing.T) {
	col := "SG.column-key"
	reader := &mockConfigReader{rows: map[string]*types.IntegrationConfig{
		IntegrationSendGrid: {
			IntegrationID: IntegrationSendGrid,
			Status:        types.IntegrationConfigStatusConnected,
			APIKey:        &col,
		},
	}}
	r := NewSecretResolver(reader, envWithSecrets(), nil)

	settings := r.EmailSettings(context.Background())
	if settings.KeySource != types.SecretSourceDB {
		t.Errorf("expected db key source, got %q", settings.KeySource)
	}
	if settings.APIKey.Unmask() != "SG.column-key" {
		t.Errorf("expected the column key, got %q", settings.APIKey.Unmask())
	}
}

func TestSecretResolver_EmailSettings_DisconnectedRowIgnored(t *testing.T) {
	reader := &mockConfigReader{rows: map[string]*types.IntegrationConfig{
		IntegrationSendGrid: {
			IntegrationID: IntegrationSendGrid,
			Status:        "disconnected",
			Config:        types.JSONMap{"api_key": "SG.stale-key"},
		},
	}}
	r := NewSecretResolver(reader, envWithSecrets(), nil)

	settings := r.EmailSettings(context.Background())
	if settings.KeySource != types.SecretSourceEnv {
		t.Errorf("a disconnected integration must not contribute credentials, got %q", settings.KeySource)
	}
	if settings.APIKey.Unmask() != "SG.env-key" {
		t.Errorf("expected the environment key, got %q", settings.APIKey.Unmask())
	}
}

func TestSecretResolver_EmailSettings_EnvSenderIdentityFallback(t *testing.T) {
	r := NewSecretResolver(&mockConfigReader{}, envWithSecrets(), nil)

	settings := r.EmailSettings(context.Background())
	if settings.KeySource != types.SecretSourceEnv {
		t.Errorf("expected env key source, got %q", settings.KeySource)
	}
	if settings.FromEmail != "noreply@agencydesk.io" || settings.FromName != "AgencyDesk" {
		t.Errorf("expected the env sender identity, got %q <%q>", settings.FromName, settings.FromEmail)
	}
}

func TestSecretResolver_EmailSettings_Unconfigured(t *testing.T) {
	r := NewSecretResolver(&mockConfigReader{}, &Config{}, nil)

	if settings := r.EmailSettings(context.Background()); settings.KeySource != types.SecretSourceNone {
		t.Errorf("expected none, got %q", settings.KeySource)
	}
}
