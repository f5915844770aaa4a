package db

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"

	"agencydesk/internal/types"
)

// InvoiceRepo provides data access for the invoices table.
//
// The table carries a unique index on stripe_invoice_id, so a concurrent
// duplicate insert surfaces as ErrCodeConflictDuplicateInvoice and the
// reconciler falls back to an update of the winning row.
type InvoiceRepo struct {
	db     DBTX
	logger *slog.Logger
}

// NewInvoiceRepo creates a new InvoiceRepo backed by the given database
// connection (pool or transaction).
func NewInvoiceRepo(db DBTX, logger *slog.Logger) *InvoiceRepo {
	if logger == nil {
		logger = slog.Default()
	}
	return &InvoiceRepo{db: db, logger: logger}
}

const invoiceColumns = `id, client_id, contract_id, COALESCE(invoice_number, ''), amount,
	amount_paid_cents, currency, issue_date, due_date, status,
	payment_method, hosted_invoice_url,
	stripe_invoice_id, stripe_customer_id, stripe_subscription_id,
	paid_at, created_at, updated_at`

// FindByStripeID returns the invoice linked to the given Stripe invoice ID,
// or (nil, nil) when none exists.
func (r *InvoiceRepo) FindByStripeID(ctx context.Context, stripeInvoiceID string) (*types.Invoice, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+invoiceColumns+`
		 FROM invoices
		 WHERE stripe_invoice_id = $1`,
		stripeInvoiceID,
	)
	return scanInvoice(row)
}

// FindOpenByHeuristic locates an open invoice for the client matching the due
// date and amount. This recovers locally created invoices that predate their
// Stripe counterpart and therefore carry no stripe_invoice_id yet. When more
// than one row matches, the most recently created wins.
func (r *InvoiceRepo) FindOpenByHeuristic(ctx context.Context, clientID string, dueDate time.Time, amount float64) (*types.Invoice, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+invoiceColumns+`
		 FROM invoices
		 WHERE client_id = $1
		   AND status IN ('pending', 'payment_failed')
		   AND due_date = $2
		   AND amount = $3
		 ORDER BY created_at DESC
		 LIMIT 1`,
		clientID,
		dueDate,
		amount,
	)
	return scanInvoice(row)
}

// Insert creates a new invoice. The database generates the ID and timestamps,
// which are written back onto the struct. A duplicate stripe_invoice_id
// returns ErrCodeConflictDuplicateInvoice.
func (r *InvoiceRepo) Insert(ctx context.Context, inv *types.Invoice) error {
	row := r.db.QueryRow(ctx,
		`INSERT INTO invoices
		 (client_id, invoice_number, amount, amount_paid_cents, currency,
		  issue_date, due_date, status, payment_method, hosted_invoice_url,
		  stripe_invoice_id, stripe_customer_id, stripe_subscription_id, paid_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		 RETURNING id, created_at, updated_at`,
		inv.ClientID,
		nilIfEmpty(inv.InvoiceNumber),
		inv.Amount,
		inv.AmountPaidCents,
		inv.Currency,
		inv.IssueDate,
		inv.DueDate,
		string(inv.Status),
		inv.PaymentMethod,
		inv.HostedInvoiceURL,
		inv.StripeInvoiceID,
		inv.StripeCustomerID,
		inv.StripeSubscriptionID,
		inv.PaidAt,
	)
	if err := row.Scan(&inv.ID, &inv.CreatedAt, &inv.UpdatedAt); err != nil {
		if isUniqueViolation(err) {
			return types.NewAppError(types.ErrCodeConflictDuplicateInvoice,
				"invoice already exists for this stripe invoice", err)
		}
		return types.NewAppError(types.ErrCodeInternalDB, "failed to insert invoice", err)
	}
	return nil
}

// UpdateFromProvider applies a provider-driven partial update to an existing
// invoice and returns the updated row. Nil fields in upd leave the stored
// values untouched.
func (r *InvoiceRepo) UpdateFromProvider(ctx context.Context, id string, upd types.InvoiceProviderUpdate) (*types.Invoice, error) {
	row := r.db.QueryRow(ctx,
		`UPDATE invoices SET
			status                 = COALESCE($1, status),
			amount_paid_cents      = COALESCE($2, amount_paid_cents),
			paid_at                = COALESCE($3, paid_at),
			payment_method         = COALESCE($4, payment_method),
			hosted_invoice_url     = COALESCE($5, hosted_invoice_url),
			stripe_invoice_id      = COALESCE($6, stripe_invoice_id),
			stripe_customer_id     = COALESCE($7, stripe_customer_id),
			stripe_subscription_id = COALESCE($8, stripe_subscription_id),
			invoice_number         = COALESCE($9, invoice_number),
			updated_at             = NOW()
		 WHERE id = $10
		 RETURNING `+invoiceColumns,
		invoiceStatusArg(upd.Status),
		upd.AmountPaidCents,
		upd.PaidAt,
		upd.PaymentMethod,
		upd.HostedInvoiceURL,
		upd.StripeInvoiceID,
		upd.StripeCustomerID,
		upd.StripeSubscriptionID,
		upd.InvoiceNumber,
		id,
	)

	inv, err := scanInvoice(row)
	if err != nil {
		return nil, err
	}
	if inv == nil {
		return nil, types.NewAppError(types.ErrCodeNotFoundInvoice, "invoice not found", nil)
	}
	return inv, nil
}

// invoiceStatusArg converts an optional status to a driver argument.
func invoiceStatusArg(s *types.InvoiceStatus) any {
	if s == nil {
		return nil
	}
	return string(*s)
}

// scanInvoice scans one invoice row, translating pgx.ErrNoRows to (nil, nil).
func scanInvoice(row pgx.Row) (*types.Invoice, error) {
	var inv types.Invoice
	err := row.Scan(
		&inv.ID,
		&inv.ClientID,
		&inv.ContractID,
		&inv.InvoiceNumber,
		&inv.Amount,
		&inv.AmountPaidCents,
		&inv.Currency,
		&inv.IssueDate,
		&inv.DueDate,
		&inv.Status,
		&inv.PaymentMethod,
		&inv.HostedInvoiceURL,
		&inv.StripeInvoiceID,
		&inv.StripeCustomerID,
		&inv.StripeSubscriptionID,
		&inv.PaidAt,
		&inv.CreatedAt,
		&inv.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to scan invoice row", err)
	}
	return &inv, nil
}
