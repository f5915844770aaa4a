package db

import (
	"context"
	"log/slog"

	"agencydesk/internal/types"
)

// BillingRepo provides data access for the provider-mirror tables:
// subscriptions, payments, and payment_disputes. All writes are upserts keyed
// on the Stripe identifier, because Stripe delivers lifecycle events at least
// once and out of order.
type BillingRepo struct {
	db     DBTX
	logger *slog.Logger
}

// NewBillingRepo creates a new BillingRepo backed by the given database
// connection (pool or transaction).
func NewBillingRepo(db DBTX, logger *slog.Logger) *BillingRepo {
	if logger == nil {
		logger = slog.Default()
	}
	return &BillingRepo{db: db, logger: logger}
}

// UpsertSubscription writes a subscription mirror row keyed on
// stripe_subscription_id. The stored client linkage is preserved when the
// incoming row carries none.
func (r *BillingRepo) UpsertSubscription(ctx context.Context, sub *types.Subscription) error {
	row := r.db.QueryRow(ctx,
		`INSERT INTO subscriptions
		 (client_id, stripe_subscription_id, stripe_customer_id, status,
		  current_period_start, current_period_end, cancel_at_period_end, canceled_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 ON CONFLICT (stripe_subscription_id) DO UPDATE SET
			client_id            = COALESCE(EXCLUDED.client_id, subscriptions.client_id),
			stripe_customer_id   = EXCLUDED.stripe_customer_id,
			status               = EXCLUDED.status,
			current_period_start = EXCLUDED.current_period_start,
			current_period_end   = EXCLUDED.current_period_end,
			cancel_at_period_end = EXCLUDED.cancel_at_period_end,
			canceled_at          = EXCLUDED.canceled_at,
			updated_at           = NOW()
		 RETURNING id, created_at, updated_at`,
		sub.ClientID,
		sub.StripeSubscriptionID,
		sub.StripeCustomerID,
		sub.Status,
		sub.CurrentPeriodStart,
		sub.CurrentPeriodEnd,
		sub.CancelAtPeriodEnd,
		sub.CanceledAt,
	)
	if err := row.Scan(&sub.ID, &sub.CreatedAt, &sub.UpdatedAt); err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to upsert subscription", err)
	}
	return nil
}

// UpsertPayment writes a payment mirror row keyed on stripe_payment_intent_id.
func (r *BillingRepo) UpsertPayment(ctx context.Context, p *types.Payment) error {
	row := r.db.QueryRow(ctx,
		`INSERT INTO payments
		 (client_id, stripe_payment_intent_id, stripe_customer_id,
		  amount_cents, currency, status, description)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (stripe_payment_intent_id) DO UPDATE SET
			client_id   = COALESCE(EXCLUDED.client_id, payments.client_id),
			status      = EXCLUDED.status,
			description = COALESCE(EXCLUDED.description, payments.description)
		 RETURNING id, created_at`,
		p.ClientID,
		p.StripePaymentIntentID,
		p.StripeCustomerID,
		p.AmountCents,
		p.Currency,
		p.Status,
		nilIfEmpty(p.Description),
	)
	if err := row.Scan(&p.ID, &p.CreatedAt); err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to upsert payment", err)
	}
	return nil
}

// InsertDispute records a charge dispute. Redelivered dispute events are
// absorbed by the unique index on stripe_dispute_id.
func (r *BillingRepo) InsertDispute(ctx context.Context, d *types.PaymentDispute) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO payment_disputes
		 (stripe_dispute_id, stripe_charge_id, amount_cents, currency, reason, status)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (stripe_dispute_id) DO NOTHING`,
		d.StripeDisputeID,
		d.StripeChargeID,
		d.AmountCents,
		d.Currency,
		nilIfEmpty(d.Reason),
		d.Status,
	)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to insert dispute", err)
	}
	return nil
}
