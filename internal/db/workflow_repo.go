package db

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"

	"agencydesk/internal/types"
)

// WorkflowRepo provides data access for workflow_transitions and the billing
// status columns of financial_transactions. Both are downstream side-effects
// of internal billing events.
type WorkflowRepo struct {
	db     DBTX
	logger *slog.Logger
}

// NewWorkflowRepo creates a new WorkflowRepo backed by the given database
// connection (pool or transaction).
func NewWorkflowRepo(db DBTX, logger *slog.Logger) *WorkflowRepo {
	if logger == nil {
		logger = slog.Default()
	}
	return &WorkflowRepo{db: db, logger: logger}
}

// InsertTransition records an area transition in status 'pending'. Inserts
// are idempotent on (from_area, to_area, trigger_event, source_event_id):
// a redelivered event returns the existing row's ID and inserted=false.
func (r *WorkflowRepo) InsertTransition(ctx context.Context, t *types.WorkflowTransition) (inserted bool, err error) {
	if t.Status == "" {
		t.Status = "pending"
	}

	row := r.db.QueryRow(ctx,
		`INSERT INTO workflow_transitions
		 (from_area, to_area, status, trigger_event, source_event_id, data_payload, created_by)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (from_area, to_area, trigger_event, source_event_id) DO NOTHING
		 RETURNING id, created_at`,
		t.FromArea,
		t.ToArea,
		t.Status,
		t.TriggerEvent,
		t.SourceEventID,
		t.Payload,
		t.CreatedBy,
	)

	scanErr := row.Scan(&t.ID, &t.CreatedAt)
	if errors.Is(scanErr, pgx.ErrNoRows) {
		// Conflict path: fetch the winning row so callers still get its ID.
		existing := r.db.QueryRow(ctx,
			`SELECT id, created_at FROM workflow_transitions
			 WHERE from_area = $1 AND to_area = $2
			   AND trigger_event = $3 AND source_event_id = $4`,
			t.FromArea, t.ToArea, t.TriggerEvent, t.SourceEventID,
		)
		if err := existing.Scan(&t.ID, &t.CreatedAt); err != nil {
			return false, types.NewAppError(types.ErrCodeInternalDB, "failed to load existing workflow transition", err)
		}
		return false, nil
	}
	if scanErr != nil {
		return false, types.NewAppError(types.ErrCodeInternalDB, "failed to insert workflow transition", scanErr)
	}
	return true, nil
}

// UpdateTransactionStatusByInvoice updates the status, reference number, and
// payment method of financial transactions linked to an invoice. paidAt is
// only written when non-nil. Returns the number of rows updated; zero is
// normal for invoices without a ledger entry.
func (r *WorkflowRepo) UpdateTransactionStatusByInvoice(ctx context.Context, invoiceID string, status string, referenceNumber string, paymentMethod string, paidAt *time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx,
		`UPDATE financial_transactions
		 SET status = $1,
		     reference_number = COALESCE($2, reference_number),
		     payment_method = COALESCE($3, payment_method),
		     paid_at = COALESCE($4, paid_at),
		     updated_at = NOW()
		 WHERE invoice_id = $5`,
		status,
		nilIfEmpty(referenceNumber),
		nilIfEmpty(paymentMethod),
		paidAt,
		invoiceID,
	)
	if err != nil {
		return 0, types.NewAppError(types.ErrCodeInternalDB, "failed to update financial transactions", err)
	}
	return tag.RowsAffected(), nil
}

// MarkInvoicePaid sets an invoice to 'paid' with the given timestamp. The
// event processor uses this so a swept retry converges the invoice even when
// the original reconciliation write was lost.
func (r *WorkflowRepo) MarkInvoicePaid(ctx context.Context, invoiceID string, paidAt time.Time) error {
	_, err := r.db.Exec(ctx,
		`UPDATE invoices
		 SET status = 'paid', paid_at = $1, updated_at = NOW()
		 WHERE id = $2`,
		paidAt,
		invoiceID,
	)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to mark invoice paid", err)
	}
	return nil
}

// MarkInvoicePaymentFailed sets an invoice to 'payment_failed'.
func (r *WorkflowRepo) MarkInvoicePaymentFailed(ctx context.Context, invoiceID string) error {
	_, err := r.db.Exec(ctx,
		`UPDATE invoices
		 SET status = 'payment_failed', updated_at = NOW()
		 WHERE id = $1`,
		invoiceID,
	)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to mark invoice payment failed", err)
	}
	return nil
}
