package db

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/jackc/pgx/v5"

	"agencydesk/internal/types"
)

// ClientRepo provides data access for the clients table. The webhook pipeline
// uses it to resolve provider customers to local clients and to backfill the
// Stripe linkage on clients matched by email.
type ClientRepo struct {
	db     DBTX
	logger *slog.Logger
}

// NewClientRepo creates a new ClientRepo backed by the given database
// connection (pool or transaction).
func NewClientRepo(db DBTX, logger *slog.Logger) *ClientRepo {
	if logger == nil {
		logger = slog.Default()
	}
	return &ClientRepo{db: db, logger: logger}
}

const clientColumns = `id, company_name, email, COALESCE(contact_email, ''), stripe_customer_id`

// GetByStripeCustomerID returns the client linked to the given Stripe
// customer, or (nil, nil) when no client is linked.
func (r *ClientRepo) GetByStripeCustomerID(ctx context.Context, stripeCustomerID string) (*types.Client, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+clientColumns+`
		 FROM clients
		 WHERE stripe_customer_id = $1`,
		stripeCustomerID,
	)
	return scanClient(row)
}

// GetByEmail returns the client whose primary or contact email matches
// (case-insensitive), or (nil, nil) when none matches. When multiple clients
// share an email the most recently created wins.
func (r *ClientRepo) GetByEmail(ctx context.Context, email string) (*types.Client, error) {
	normalized := strings.ToLower(strings.TrimSpace(email))
	if normalized == "" {
		return nil, nil
	}

	row := r.db.QueryRow(ctx,
		`SELECT `+clientColumns+`
		 FROM clients
		 WHERE LOWER(email) = $1 OR LOWER(contact_email) = $1
		 ORDER BY created_at DESC
		 LIMIT 1`,
		normalized,
	)
	return scanClient(row)
}

// LinkStripeCustomer backfills the Stripe customer ID onto a client that was
// matched by email. Existing linkage is never overwritten.
func (r *ClientRepo) LinkStripeCustomer(ctx context.Context, clientID string, stripeCustomerID string) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE clients
		 SET stripe_customer_id = $1, updated_at = NOW()
		 WHERE id = $2 AND stripe_customer_id IS NULL`,
		stripeCustomerID,
		clientID,
	)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to link stripe customer", err)
	}
	if tag.RowsAffected() == 0 {
		r.logger.DebugContext(ctx, "stripe customer link skipped; client already linked or missing",
			"client_id", clientID,
		)
	}
	return nil
}

// LinkStripeCustomerByEmail backfills the Stripe customer ID onto every
// client whose primary or contact email matches (case-insensitive). Used when
// Stripe reports a new customer and the local client predates the linkage.
// Returns the number of clients linked.
func (r *ClientRepo) LinkStripeCustomerByEmail(ctx context.Context, email string, stripeCustomerID string) (int64, error) {
	normalized := strings.ToLower(strings.TrimSpace(email))
	if normalized == "" {
		return 0, nil
	}

	tag, err := r.db.Exec(ctx,
		`UPDATE clients
		 SET stripe_customer_id = $1, updated_at = NOW()
		 WHERE LOWER(email) = $2 OR LOWER(contact_email) = $2`,
		stripeCustomerID,
		normalized,
	)
	if err != nil {
		return 0, types.NewAppError(types.ErrCodeInternalDB, "failed to link stripe customer by email", err)
	}
	return tag.RowsAffected(), nil
}

// TouchByStripeCustomerID bumps updated_at on the client linked to the given
// Stripe customer so downstream syncs see the customer change.
func (r *ClientRepo) TouchByStripeCustomerID(ctx context.Context, stripeCustomerID string) error {
	_, err := r.db.Exec(ctx,
		`UPDATE clients
		 SET updated_at = NOW()
		 WHERE stripe_customer_id = $1`,
		stripeCustomerID,
	)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to touch client", err)
	}
	return nil
}

// scanClient scans one client row, translating pgx.ErrNoRows to (nil, nil).
func scanClient(row pgx.Row) (*types.Client, error) {
	var c types.Client
	err := row.Scan(&c.ID, &c.CompanyName, &c.Email, &c.ContactEmail, &c.StripeCustomerID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to scan client row", err)
	}
	return &c, nil
}
