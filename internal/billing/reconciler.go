package billing

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"agencydesk/internal/types"
)

// Outcome is the payment result a provider event reports for an invoice.
type Outcome string

const (
	OutcomePaid   Outcome = "paid"
	OutcomeFailed Outcome = "failed"
)

// ClientResolver resolves provider customers to local clients.
// Implemented by db.ClientRepo.
type ClientResolver interface {
	GetByStripeCustomerID(ctx context.Context, stripeCustomerID string) (*types.Client, error)
	GetByEmail(ctx context.Context, email string) (*types.Client, error)
	LinkStripeCustomer(ctx context.Context, clientID string, stripeCustomerID string) error
}

// InvoiceStore locates and mutates local invoices. Implemented by
// db.InvoiceRepo.
type InvoiceStore interface {
	FindByStripeID(ctx context.Context, stripeInvoiceID string) (*types.Invoice, error)
	FindOpenByHeuristic(ctx context.Context, clientID string, dueDate time.Time, amount float64) (*types.Invoice, error)
	Insert(ctx context.Context, inv *types.Invoice) error
	UpdateFromProvider(ctx context.Context, id string, upd types.InvoiceProviderUpdate) (*types.Invoice, error)
}

// Reconciler converges local invoices with Stripe invoice events.
//
// Matching runs in two stages: the exact stripe_invoice_id linkage first,
// then a heuristic over open invoices (client, due date, amount) to recover
// invoices created locally before their Stripe counterpart existed. When
// neither stage matches, a new invoice is created; a concurrent duplicate
// insert loses the unique-index race and falls back to updating the winner.
type Reconciler struct {
	clients  ClientResolver
	invoices InvoiceStore
	logger   *slog.Logger
}

// NewReconciler creates a Reconciler over the given client and invoice stores.
func NewReconciler(clients ClientResolver, invoices InvoiceStore, logger *slog.Logger) *Reconciler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reconciler{
		clients:  clients,
		invoices: invoices,
		logger:   logger,
	}
}

// Reconcile applies a provider invoice with the given payment outcome to the
// local invoices table and returns the converged row.
//
// Returns ErrCodeNotFoundClient when the provider customer cannot be resolved
// to a local client; the caller records that as a failed processing action,
// not a request error.
func (r *Reconciler) Reconcile(ctx context.Context, pinv *StripeInvoice, outcome Outcome) (*types.Invoice, error) {
	client, err := r.resolveClient(ctx, pinv)
	if err != nil {
		return nil, err
	}

	upd := r.buildUpdate(pinv, outcome)

	inv, err := r.findExisting(ctx, pinv, client.ID)
	if err != nil {
		return nil, err
	}
	if inv != nil {
		return r.invoices.UpdateFromProvider(ctx, inv.ID, upd)
	}

	created, err := r.createInvoice(ctx, pinv, client.ID, outcome)
	if err == nil {
		return created, nil
	}

	// Duplicate-insert race: another delivery of the same event created the
	// row between our lookup and insert. Converge by updating the winner.
	var appErr *types.AppError
	if errors.As(err, &appErr) && appErr.Code == types.ErrCodeConflictDuplicateInvoice {
		r.logger.InfoContext(ctx, "lost invoice insert race; updating existing row",
			"stripe_invoice_id", pinv.ID,
		)
		winner, findErr := r.invoices.FindByStripeID(ctx, pinv.ID)
		if findErr != nil {
			return nil, findErr
		}
		if winner == nil {
			return nil, err
		}
		return r.invoices.UpdateFromProvider(ctx, winner.ID, upd)
	}

	return nil, err
}

// resolveClient maps the provider customer to a local client: the Stripe
// customer linkage first, then a case-insensitive email match. An email match
// backfills the Stripe linkage for future events.
func (r *Reconciler) resolveClient(ctx context.Context, pinv *StripeInvoice) (*types.Client, error) {
	customerID := pinv.Customer.String()

	if customerID != "" {
		client, err := r.clients.GetByStripeCustomerID(ctx, customerID)
		if err != nil {
			return nil, err
		}
		if client != nil {
			return client, nil
		}
	}

	if email := pinv.EffectiveCustomerEmail(); email != "" {
		client, err := r.clients.GetByEmail(ctx, email)
		if err != nil {
			return nil, err
		}
		if client != nil {
			if customerID != "" {
				if linkErr := r.clients.LinkStripeCustomer(ctx, client.ID, customerID); linkErr != nil {
					r.logger.WarnContext(ctx, "failed to backfill stripe customer linkage",
						"client_id", client.ID,
						"error", linkErr,
					)
				}
			}
			return client, nil
		}
	}

	return nil, types.NewAppErrorWithDetails(
		types.ErrCodeNotFoundClient,
		"no client matches the provider customer",
		nil,
		map[string]any{
			"stripe_customer_id": customerID,
			"customer_email":     pinv.EffectiveCustomerEmail(),
		},
	)
}

// findExisting runs the two matching stages.
func (r *Reconciler) findExisting(ctx context.Context, pinv *StripeInvoice, clientID string) (*types.Invoice, error) {
	inv, err := r.invoices.FindByStripeID(ctx, pinv.ID)
	if err != nil {
		return nil, err
	}
	if inv != nil {
		return inv, nil
	}
	return r.invoices.FindOpenByHeuristic(ctx, clientID, pinv.DueDateUTC(), pinv.AmountMajor())
}

// buildUpdate maps the provider invoice and outcome onto a partial update.
func (r *Reconciler) buildUpdate(pinv *StripeInvoice, outcome Outcome) types.InvoiceProviderUpdate {
	status := types.InvoiceStatusPaymentFailed
	upd := types.InvoiceProviderUpdate{
		StripeInvoiceID:  strPtr(pinv.ID),
		StripeCustomerID: strPtrOrNil(pinv.Customer.String()),
		AmountPaidCents:  &pinv.AmountPaid,
	}

	if sub := pinv.Subscription.String(); sub != "" {
		upd.StripeSubscriptionID = strPtr(sub)
	}
	if pinv.Number != "" {
		upd.InvoiceNumber = strPtr(pinv.Number)
	}
	if pinv.CollectionMethod != "" {
		upd.PaymentMethod = strPtr(pinv.CollectionMethod)
	}
	if pinv.HostedInvoiceURL != "" {
		upd.HostedInvoiceURL = strPtr(pinv.HostedInvoiceURL)
	}

	if outcome == OutcomePaid {
		status = types.InvoiceStatusPaid
		now := time.Now().UTC()
		upd.PaidAt = &now
	}
	upd.Status = &status
	return upd
}

// createInvoice builds and inserts a new invoice from the provider event.
func (r *Reconciler) createInvoice(ctx context.Context, pinv *StripeInvoice, clientID string, outcome Outcome) (*types.Invoice, error) {
	inv := &types.Invoice{
		ClientID:         clientID,
		InvoiceNumber:    pinv.LocalInvoiceNumber(),
		Amount:           pinv.AmountMajor(),
		AmountPaidCents:  pinv.AmountPaid,
		Currency:         pinv.Currency,
		IssueDate:        pinv.IssueDateUTC(),
		DueDate:          pinv.DueDateUTC(),
		Status:           types.InvoiceStatusPaymentFailed,
		StripeInvoiceID:  strPtr(pinv.ID),
		StripeCustomerID: strPtrOrNil(pinv.Customer.String()),
	}

	if sub := pinv.Subscription.String(); sub != "" {
		inv.StripeSubscriptionID = strPtr(sub)
	}
	if pinv.CollectionMethod != "" {
		inv.PaymentMethod = strPtr(pinv.CollectionMethod)
	}
	if pinv.HostedInvoiceURL != "" {
		inv.HostedInvoiceURL = strPtr(pinv.HostedInvoiceURL)
	}

	if outcome == OutcomePaid {
		now := time.Now().UTC()
		inv.Status = types.InvoiceStatusPaid
		inv.PaidAt = &now
	}

	if err := r.invoices.Insert(ctx, inv); err != nil {
		return nil, err
	}
	return inv, nil
}

func strPtr(s string) *string {
	return &s
}

func strPtrOrNil(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
