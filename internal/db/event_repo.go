package db

import (
	"context"
	"log/slog"
	"time"

	"agencydesk/internal/types"
)

// EventRepo provides data access for the event_log table, the durable store
// behind the internal event bus.
type EventRepo struct {
	db     DBTX
	logger *slog.Logger
}

// NewEventRepo creates a new EventRepo backed by the given database
// connection (pool or transaction).
func NewEventRepo(db DBTX, logger *slog.Logger) *EventRepo {
	if logger == nil {
		logger = slog.Default()
	}
	return &EventRepo{db: db, logger: logger}
}

// Insert persists a new internal event in status 'pending' and returns the
// stored row. Persistence always precedes processing so an event survives a
// crashed or failed handler.
func (r *EventRepo) Insert(ctx context.Context, spec types.EventSpec) (*types.InternalEvent, error) {
	row := r.db.QueryRow(ctx,
		`INSERT INTO event_log
		 (event_type, entity_type, entity_id, actor_user_id, payload, status)
		 VALUES ($1, $2, $3, $4, $5, 'pending')
		 RETURNING id, created_at`,
		spec.EventType,
		spec.EntityType,
		spec.EntityID,
		spec.ActorUserID,
		spec.Payload,
	)

	ev := &types.InternalEvent{
		EventType:   spec.EventType,
		EntityType:  spec.EntityType,
		EntityID:    spec.EntityID,
		ActorUserID: spec.ActorUserID,
		Payload:     spec.Payload,
		Status:      types.EventStatusPending,
	}
	if err := row.Scan(&ev.ID, &ev.CreatedAt); err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to insert event", err)
	}
	return ev, nil
}

// MarkProcessed transitions an event to 'processed' and clears any previous
// error message left by a failed attempt.
func (r *EventRepo) MarkProcessed(ctx context.Context, eventID string) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE event_log
		 SET status = 'processed', processed_at = NOW(), error_message = NULL
		 WHERE id = $1`,
		eventID,
	)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to mark event processed", err)
	}
	if tag.RowsAffected() == 0 {
		return types.NewAppError(types.ErrCodeNotFoundEvent, "event not found", nil)
	}
	return nil
}

// MarkError transitions an event to 'error' with the handler failure message,
// leaving it eligible for sweeper retry.
func (r *EventRepo) MarkError(ctx context.Context, eventID string, message string) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE event_log
		 SET status = 'error', error_message = $1
		 WHERE id = $2`,
		nilIfEmpty(message),
		eventID,
	)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to mark event errored", err)
	}
	if tag.RowsAffected() == 0 {
		return types.NewAppError(types.ErrCodeNotFoundEvent, "event not found", nil)
	}
	return nil
}

// ListUnprocessed returns events in 'pending' or 'error' older than minAge,
// oldest first. The age floor keeps the sweeper from racing the synchronous
// processing attempt that immediately follows persistence.
func (r *EventRepo) ListUnprocessed(ctx context.Context, minAge time.Duration, limit int) ([]*types.InternalEvent, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := r.db.Query(ctx,
		`SELECT id, event_type, entity_type, entity_id, actor_user_id, payload,
		        status, COALESCE(error_message, ''), processed_at, created_at
		 FROM event_log
		 WHERE status IN ('pending', 'error')
		   AND created_at <= NOW() - $1::interval
		 ORDER BY created_at ASC
		 LIMIT $2`,
		minAge.String(),
		limit,
	)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to list unprocessed events", err)
	}
	defer rows.Close()

	var results []*types.InternalEvent
	for rows.Next() {
		var ev types.InternalEvent
		if scanErr := rows.Scan(
			&ev.ID,
			&ev.EventType,
			&ev.EntityType,
			&ev.EntityID,
			&ev.ActorUserID,
			&ev.Payload,
			&ev.Status,
			&ev.ErrorMessage,
			&ev.ProcessedAt,
			&ev.CreatedAt,
		); scanErr != nil {
			return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to scan event row", scanErr)
		}
		results = append(results, &ev)
	}
	if err := rows.Err(); err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "error iterating event rows", err)
	}
	return results, nil
}

// CountByStatus returns the number of events per status. Used by the health
// endpoint to expose backlog depth.
func (r *EventRepo) CountByStatus(ctx context.Context) (map[types.EventStatus]int64, error) {
	rows, err := r.db.Query(ctx,
		`SELECT status, COUNT(*) FROM event_log GROUP BY status`,
	)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to count events by status", err)
	}
	defer rows.Close()

	counts := make(map[types.EventStatus]int64)
	for rows.Next() {
		var status types.EventStatus
		var count int64
		if scanErr := rows.Scan(&status, &count); scanErr != nil {
			return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to scan event count row", scanErr)
		}
		counts[status] = count
	}
	if err := rows.Err(); err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "error iterating event count rows", err)
	}
	return counts, nil
}
