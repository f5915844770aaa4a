package db

import (
	"context"
	"errors"
	"log/slog"

	"github.com/jackc/pgx/v5"

	"agencydesk/internal/types"
)

// IntegrationRepo provides data access for the integration_configs and
// integration_logs tables. Config rows hold per-integration credentials and
// settings; log rows are an append-only audit trail of integration traffic.
type IntegrationRepo struct {
	db     DBTX
	logger *slog.Logger
}

// NewIntegrationRepo creates a new IntegrationRepo backed by the given
// database connection (pool or transaction).
func NewIntegrationRepo(db DBTX, logger *slog.Logger) *IntegrationRepo {
	if logger == nil {
		logger = slog.Default()
	}
	return &IntegrationRepo{db: db, logger: logger}
}

// GetConfig returns the settings row for the integration, or (nil, nil) when
// no row exists.
func (r *IntegrationRepo) GetConfig(ctx context.Context, integrationID string) (*types.IntegrationConfig, error) {
	row := r.db.QueryRow(ctx,
		`SELECT id, integration_id, status, webhook_secret, api_key, config, updated_at
		 FROM integration_configs
		 WHERE integration_id = $1`,
		integrationID,
	)

	var cfg types.IntegrationConfig
	err := row.Scan(&cfg.ID, &cfg.IntegrationID, &cfg.Status, &cfg.WebhookSecret, &cfg.APIKey, &cfg.Config, &cfg.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to get integration config", err)
	}
	return &cfg, nil
}

// InsertLog appends one audit record for an integration interaction. The
// database generates the ID and created_at; both are written back onto the
// provided struct.
func (r *IntegrationRepo) InsertLog(ctx context.Context, log *types.IntegrationLog) error {
	row := r.db.QueryRow(ctx,
		`INSERT INTO integration_logs
		 (integration_id, action, status, request_data, response_data, error_message)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id, created_at`,
		log.IntegrationID,
		log.Action,
		log.Status,
		log.RequestData,
		log.ResponseData,
		nilIfEmpty(log.ErrorMessage),
	)
	if err := row.Scan(&log.ID, &log.CreatedAt); err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to insert integration log", err)
	}
	return nil
}
