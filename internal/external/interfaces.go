package external

import (
	"context"

	"agencydesk/internal/types"
)

// WebhookVerifier abstracts Stripe webhook signature checking.
type WebhookVerifier interface {
	// Verify validates a webhook payload against the provided signature header
	// and signing secret. Returns nil on success, an error on failure.
	Verify(payload []byte, header string, secret string) error
}

// EmailProvider abstracts the transactional email service (SendGrid).
// Settings are passed per send because the API key and sender identity are
// resolved at request time (integration config first, env fallback).
type EmailProvider interface {
	// Send transmits a rendered email and returns the provider's message ID
	// for tracking and correlation.
	Send(ctx context.Context, settings types.EmailSettings, msg types.EmailMessage) (providerMsgID string, err error)
}

// Stripe event type constants prevent magic strings in webhook handlers.
const (
	EventStripeCheckoutCompleted = "checkout.session.completed"
	EventStripePaymentSucceeded  = "payment_intent.succeeded"
	EventStripePaymentFailed     = "payment_intent.payment_failed"
	EventStripeSubCreated        = "customer.subscription.created"
	EventStripeSubUpdated        = "customer.subscription.updated"
	EventStripeSubDeleted        = "customer.subscription.deleted"
	EventStripeInvoicePaid       = "invoice.paid"
	EventStripeInvoiceFailed     = "invoice.payment_failed"
	EventStripeCustomerCreated   = "customer.created"
	EventStripeCustomerUpdated   = "customer.updated"
	EventStripeDisputeCreated    = "charge.dispute.created"
)
