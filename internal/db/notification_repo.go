package db

import (
	"context"
	"log/slog"

	"agencydesk/internal/types"
)

// NotificationRepo provides data access for the notifications table and the
// area-based recipient lookup used to fan billing alerts out to a team.
type NotificationRepo struct {
	db     DBTX
	logger *slog.Logger
}

// NewNotificationRepo creates a new NotificationRepo backed by the given
// database connection (pool or transaction).
func NewNotificationRepo(db DBTX, logger *slog.Logger) *NotificationRepo {
	if logger == nil {
		logger = slog.Default()
	}
	return &NotificationRepo{db: db, logger: logger}
}

// ListRecipientsByArea returns the user IDs subscribed to alerts for an
// operational area.
func (r *NotificationRepo) ListRecipientsByArea(ctx context.Context, area string) ([]string, error) {
	rows, err := r.db.Query(ctx,
		`SELECT user_id
		 FROM alert_recipient_rules
		 WHERE area = $1 AND active = true`,
		area,
	)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to list area recipients", err)
	}
	defer rows.Close()

	var userIDs []string
	for rows.Next() {
		var id string
		if scanErr := rows.Scan(&id); scanErr != nil {
			return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to scan recipient row", scanErr)
		}
		userIDs = append(userIDs, id)
	}
	if err := rows.Err(); err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "error iterating recipient rows", err)
	}
	return userIDs, nil
}

// ListAdminUserIDs returns the user IDs of active platform administrators.
func (r *NotificationRepo) ListAdminUserIDs(ctx context.Context) ([]string, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id FROM users WHERE role = 'admin' AND active = true`,
	)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to list admin users", err)
	}
	defer rows.Close()

	var userIDs []string
	for rows.Next() {
		var id string
		if scanErr := rows.Scan(&id); scanErr != nil {
			return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to scan admin user row", scanErr)
		}
		userIDs = append(userIDs, id)
	}
	if err := rows.Err(); err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "error iterating admin user rows", err)
	}
	return userIDs, nil
}

// InsertForUsers creates one notification row per recipient. Returns the
// number of rows written. A nil/empty recipient list is a no-op, not an
// error: an area with no subscribers is a valid state.
func (r *NotificationRepo) InsertForUsers(ctx context.Context, userIDs []string, n types.AreaNotification) (int, error) {
	inserted := 0
	for _, userID := range userIDs {
		_, err := r.db.Exec(ctx,
			`INSERT INTO notifications
			 (user_id, title, message, link, type, metadata)
			 VALUES ($1, $2, $3, $4, $5, $6)`,
			userID,
			n.Title,
			n.Message,
			nilIfEmpty(n.Link),
			n.Type,
			n.Metadata,
		)
		if err != nil {
			return inserted, types.NewAppError(types.ErrCodeInternalDB, "failed to insert notification", err)
		}
		inserted++
	}
	return inserted, nil
}
