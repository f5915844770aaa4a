package db

import (
	"context"
	"errors"
	"log/slog"

	"github.com/jackc/pgx/v5"

	"agencydesk/internal/types"
)

// KanbanRepo writes billing follow-up tasks onto a client's onboarding
// Kanban board. The board and its default columns are created on first use
// so the webhook pipeline never depends on a human having set them up.
type KanbanRepo struct {
	db     DBTX
	logger *slog.Logger
}

// NewKanbanRepo creates a new KanbanRepo backed by the given database
// connection (pool or transaction).
func NewKanbanRepo(db DBTX, logger *slog.Logger) *KanbanRepo {
	if logger == nil {
		logger = slog.Default()
	}
	return &KanbanRepo{db: db, logger: logger}
}

// onboardingColumns are the default columns seeded onto a fresh onboarding
// board. New tasks land on "A Fazer".
var onboardingColumns = []struct {
	Name     string
	Position int
	Color    string
}{
	{"Backlog", 1, "#64748b"},
	{"A Fazer", 2, "#3b82f6"},
	{"Em Progresso", 3, "#f59e0b"},
	{"Concluído", 4, "#22c55e"},
}

// AddOnboardingTask appends a task to the todo column of the client's
// onboarding board, creating the board when the client has none yet. The
// task is placed after the column's current last card.
func (r *KanbanRepo) AddOnboardingTask(ctx context.Context, task types.OnboardingTask) error {
	boardID, err := r.ensureOnboardingBoard(ctx, task.ClientID, task.CreatedBy)
	if err != nil {
		return err
	}

	columnID, err := r.todoColumnID(ctx, boardID)
	if err != nil {
		return err
	}

	priority := task.Priority
	if priority == "" {
		priority = "medium"
	}

	_, err = r.db.Exec(ctx,
		`INSERT INTO kanban_tasks
		 (board_id, column_id, client_id, title, description, priority, status,
		  position, area, reference_links, created_by)
		 VALUES ($1, $2, $3, $4, $5, $6, 'todo',
		         (SELECT COALESCE(MAX(position), 0) + 1
		          FROM kanban_tasks WHERE board_id = $1 AND column_id = $2),
		         $7, $8, $9)`,
		boardID,
		columnID,
		task.ClientID,
		task.Title,
		nilIfEmpty(task.Description),
		priority,
		nilIfEmpty(task.Area),
		task.ReferenceLinks,
		task.CreatedBy,
	)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to insert onboarding task", err)
	}
	return nil
}

// ensureOnboardingBoard returns the client's onboarding board ID, creating
// the board with its default columns when none exists.
func (r *KanbanRepo) ensureOnboardingBoard(ctx context.Context, clientID string, createdBy *string) (string, error) {
	var boardID string
	err := r.db.QueryRow(ctx,
		`SELECT id FROM kanban_boards
		 WHERE client_id = $1 AND name = 'Onboarding'
		 LIMIT 1`,
		clientID,
	).Scan(&boardID)
	if err == nil {
		return boardID, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return "", types.NewAppError(types.ErrCodeInternalDB, "failed to look up onboarding board", err)
	}

	err = r.db.QueryRow(ctx,
		`INSERT INTO kanban_boards (name, description, client_id, is_active, created_by)
		 VALUES ('Onboarding', 'Fluxo inicial automático', $1, true, $2)
		 RETURNING id`,
		clientID,
		createdBy,
	).Scan(&boardID)
	if err != nil {
		return "", types.NewAppError(types.ErrCodeInternalDB, "failed to create onboarding board", err)
	}

	for _, col := range onboardingColumns {
		if _, err := r.db.Exec(ctx,
			`INSERT INTO kanban_columns (board_id, name, position, color)
			 VALUES ($1, $2, $3, $4)`,
			boardID, col.Name, col.Position, col.Color,
		); err != nil {
			return "", types.NewAppError(types.ErrCodeInternalDB, "failed to create onboarding columns", err)
		}
	}

	r.logger.InfoContext(ctx, "created onboarding kanban board",
		"client_id", clientID,
		"board_id", boardID,
	)
	return boardID, nil
}

// todoColumnID locates the board's "A Fazer" column, falling back to the
// first column by position for boards with customized column names.
func (r *KanbanRepo) todoColumnID(ctx context.Context, boardID string) (string, error) {
	var columnID string
	err := r.db.QueryRow(ctx,
		`SELECT id FROM kanban_columns
		 WHERE board_id = $1 AND name = 'A Fazer'
		 LIMIT 1`,
		boardID,
	).Scan(&columnID)
	if err == nil {
		return columnID, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return "", types.NewAppError(types.ErrCodeInternalDB, "failed to look up kanban column", err)
	}

	err = r.db.QueryRow(ctx,
		`SELECT id FROM kanban_columns
		 WHERE board_id = $1
		 ORDER BY position ASC
		 LIMIT 1`,
		boardID,
	).Scan(&columnID)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", types.NewAppError(types.ErrCodeInternalDB, "onboarding board has no columns", nil)
	}
	if err != nil {
		return "", types.NewAppError(types.ErrCodeInternalDB, "failed to look up kanban column", err)
	}
	return columnID, nil
}
