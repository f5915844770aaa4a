package db

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"agencydesk/internal/types"
)

func TestIntegrationRepo_GetConfig_ScansCredentialColumns(t *testing.T) {
	db := new(mockDBTX)
	repo := NewIntegrationRepo(db, nil)

	secret := "whsec_123"
	apiKey := "SG.stored"
	updatedAt := time.Date(2026, 8, 20, 10, 0, 0, 0, time.UTC)
	db.On("QueryRow", mock.Anything, mock.Anything, []any{"stripe"}).Return(&mockRow{
		scanFn: func(dest ...any) error {
			*dest[0].(*string) = "cfg-1"
			*dest[1].(*string) = "stripe"
			*dest[2].(*string) = "connected"
			*dest[3].(**string) = &secret
			*dest[4].(**string) = &apiKey
			*dest[5].(*types.JSONMap) = types.JSONMap{"from_email": "x@y.z"}
			*dest[6].(*time.Time) = updatedAt
			return nil
		},
	})

	cfg, err := repo.GetConfig(context.Background(), "stripe")
	require.NoError(t, err)
	require.NotNil(t, cfg)
	require.NotNil(t, cfg.WebhookSecret)
	assert.Equal(t, "whsec_123", *cfg.WebhookSecret)
	require.NotNil(t, cfg.APIKey)
	assert.Equal(t, "SG.stored", *cfg.APIKey)
	assert.Equal(t, "connected", cfg.Status)
	assert.Equal(t, "x@y.z", cfg.Config["from_email"])
}

func TestIntegrationRepo_GetConfig_NoRowIsNilNil(t *testing.T) {
	db := new(mockDBTX)
	repo := NewIntegrationRepo(db, nil)

	db.On("QueryRow", mock.Anything, mock.Anything, []any{"sendgrid"}).Return(&mockRow{
		scanErr: pgx.ErrNoRows,
	})

	cfg, err := repo.GetConfig(context.Background(), "sendgrid")
	require.NoError(t, err)
	assert.Nil(t, cfg)
}

func TestIntegrationRepo_InsertLog_WritesBackGeneratedFields(t *testing.T) {
	db := new(mockDBTX)
	repo := NewIntegrationRepo(db, nil)

	createdAt := time.Date(2026, 8, 20, 10, 0, 0, 0, time.UTC)
	var captured []any
	db.On("QueryRow", mock.Anything, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { captured = args.Get(2).([]any) }).
		Return(&mockRow{scanFn: func(dest ...any) error {
			*dest[0].(*string) = "log-1"
			*dest[1].(*time.Time) = createdAt
			return nil
		}})

	logRow := &types.IntegrationLog{
		IntegrationID: "stripe",
		Action:        "webhook_invoice.paid",
		Status:        types.IntegrationLogSuccess,
		RequestData:   types.JSONMap{"event_id": "evt_1"},
	}
	require.NoError(t, repo.InsertLog(context.Background(), logRow))

	assert.Equal(t, "log-1", logRow.ID)
	assert.Equal(t, createdAt, logRow.CreatedAt)
	require.Len(t, captured, 6)
	assert.Equal(t, "stripe", captured[0])
	assert.Nil(t, captured[5], "empty error message must be stored as NULL")
}
