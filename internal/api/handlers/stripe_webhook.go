// Package handlers contains the HTTP handler implementations for the
// AgencyDesk billing API.
//
// The Stripe webhook handler is NOT behind auth middleware -- it is called
// directly by Stripe. Security is provided by verifying the Stripe-Signature
// header against the configured signing secret.
package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"agencydesk/internal/billing"
	"agencydesk/internal/core"
	"agencydesk/internal/external"
	"agencydesk/internal/types"
)

// maxWebhookBodySize is the maximum allowed size of a Stripe webhook payload
// (64 KB). Stripe payloads are small; the limit protects against abuse.
const maxWebhookBodySize = 64 * 1024

// ---------------------------------------------------------------------------
// Interfaces for webhook handler dependencies
// ---------------------------------------------------------------------------

// WebhookSecrets resolves integration credentials at request time so that
// secrets rotated through the admin panel take effect without a restart.
// Implemented by config.SecretResolver.
type WebhookSecrets interface {
	StripeWebhookSecret(ctx context.Context) types.ResolvedSecret
	EmailSettings(ctx context.Context) types.EmailSettings
}

// InvoiceReconciler converges a provider invoice with the local invoices
// table. Implemented by billing.Reconciler.
type InvoiceReconciler interface {
	Reconcile(ctx context.Context, inv *billing.StripeInvoice, outcome billing.Outcome) (*types.Invoice, error)
}

// EventEmitter persists an internal event and attempts synchronous
// processing. Implemented by events.Emitter.
type EventEmitter interface {
	Emit(ctx context.Context, spec types.EventSpec) (*types.InternalEvent, bool, error)
}

// ProviderMirror maintains the local mirror of Stripe billing objects.
// Implemented by db.BillingRepo.
type ProviderMirror interface {
	UpsertSubscription(ctx context.Context, sub *types.Subscription) error
	UpsertPayment(ctx context.Context, p *types.Payment) error
	InsertDispute(ctx context.Context, d *types.PaymentDispute) error
}

// CustomerLinker maintains the client-to-Stripe-customer linkage.
// Implemented by db.ClientRepo.
type CustomerLinker interface {
	GetByStripeCustomerID(ctx context.Context, stripeCustomerID string) (*types.Client, error)
	LinkStripeCustomerByEmail(ctx context.Context, email string, stripeCustomerID string) (int64, error)
	TouchByStripeCustomerID(ctx context.Context, stripeCustomerID string) error
}

// AuditSink records one integration log row per webhook delivery.
// Implemented by db.IntegrationRepo.
type AuditSink interface {
	InsertLog(ctx context.Context, log *types.IntegrationLog) error
}

// AreaNotifier fans a notification out to the users of an operational area.
// Implemented by notify.Notifier.
type AreaNotifier interface {
	NotifyArea(ctx context.Context, notification types.AreaNotification) (int, error)
}

// ---------------------------------------------------------------------------
// Stripe Webhook Handler
// ---------------------------------------------------------------------------

// StripeWebhookHandler handles asynchronous events from Stripe. It is
// unauthenticated but verifies the provider signature on every delivery, and
// it always acknowledges verified deliveries with 200 so that Stripe does not
// retry events whose processing failed for internal reasons.
type StripeWebhookHandler struct {
	secrets       WebhookSecrets
	verifier      external.WebhookVerifier
	reconciler    InvoiceReconciler
	emitter       EventEmitter
	mirror        ProviderMirror
	clients       CustomerLinker
	audit         AuditSink
	notifier      AreaNotifier
	email         external.EmailProvider
	financeAlerts []string
	logger        *slog.Logger
}

// StripeWebhookDeps bundles the handler's dependencies.
type StripeWebhookDeps struct {
	Secrets    WebhookSecrets
	Verifier   external.WebhookVerifier
	Reconciler InvoiceReconciler
	Emitter    EventEmitter
	Mirror     ProviderMirror
	Clients    CustomerLinker
	Audit      AuditSink
	Notifier   AreaNotifier
	Email      external.EmailProvider

	// FinanceAlertEmails receives a plain-email copy of payment failure
	// alerts. Empty disables the email side-channel.
	FinanceAlertEmails []string
}

// NewStripeWebhookHandler creates a new StripeWebhookHandler with the
// provided dependencies.
func NewStripeWebhookHandler(deps StripeWebhookDeps, logger *slog.Logger) *StripeWebhookHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &StripeWebhookHandler{
		secrets:       deps.Secrets,
		verifier:      deps.Verifier,
		reconciler:    deps.Reconciler,
		emitter:       deps.Emitter,
		mirror:        deps.Mirror,
		clients:       deps.Clients,
		audit:         deps.Audit,
		notifier:      deps.Notifier,
		email:         deps.Email,
		financeAlerts: deps.FinanceAlertEmails,
		logger:        logger,
	}
}

// RegisterRoutes mounts the Stripe webhook endpoint. This is kept separate
// from authenticated route groups because webhook routes are public.
func (h *StripeWebhookHandler) RegisterRoutes(r chi.Router) {
	r.Post("/webhooks/stripe", h.Handle)
}

// webhookAck is the response body returned for every verified delivery.
type webhookAck struct {
	Received  bool `json:"received"`
	Processed bool `json:"processed"`
}

// Handle processes one Stripe webhook delivery:
//
//  1. Resolves the signing secret (admin-panel config first, env fallback).
//  2. Reads the raw body and verifies the Stripe-Signature header.
//  3. Dispatches by event type.
//  4. Records an integration log row with the processing outcome.
//  5. Returns 200 with {"received": true, "processed": <bool>}.
//
// Signature and configuration problems are the only request errors (400);
// internal processing failures are logged and acknowledged so Stripe does not
// retry into the same failure.
func (h *StripeWebhookHandler) Handle(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	secret := h.secrets.StripeWebhookSecret(ctx)
	if !secret.IsSet() {
		h.logger.ErrorContext(ctx, "stripe webhook secret not configured")
		core.Error(w, r, types.NewAppError(
			types.ErrCodeWebhookNotConfigured,
			"webhook signing secret is not configured",
			nil,
		))
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxWebhookBodySize)
	payload, err := io.ReadAll(r.Body)
	if err != nil {
		h.logger.WarnContext(ctx, "failed to read webhook body", "error", err)
		core.Error(w, r, types.NewAppError(
			types.ErrCodeWebhookPayloadInvalid,
			"failed to read request body",
			err,
		))
		return
	}

	sigHeader := r.Header.Get("Stripe-Signature")
	if sigHeader == "" {
		h.logger.WarnContext(ctx, "missing Stripe-Signature header")
		core.Error(w, r, types.NewAppError(
			types.ErrCodeWebhookSignatureMissing,
			"missing Stripe-Signature header",
			nil,
		))
		return
	}

	if err := h.verifier.Verify(payload, sigHeader, secret.Value.Unmask()); err != nil {
		h.logger.WarnContext(ctx, "webhook signature verification failed",
			"secret_source", secret.Source,
			"error", err,
		)
		core.Error(w, r, types.NewAppError(
			types.ErrCodeWebhookSignatureInvalid,
			"webhook signature verification failed",
			err,
		))
		return
	}

	var event stripeEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		h.logger.ErrorContext(ctx, "failed to parse webhook event JSON", "error", err)
		core.Error(w, r, types.NewAppError(
			types.ErrCodeWebhookPayloadInvalid,
			"invalid webhook event JSON",
			err,
		))
		return
	}

	h.logger.InfoContext(ctx, "processing stripe webhook event",
		"event_id", event.ID,
		"event_type", event.Type,
	)

	result := h.processEvent(ctx, &event)
	if !result.Success {
		h.logger.ErrorContext(ctx, "webhook event processing failed",
			"event_id", event.ID,
			"event_type", event.Type,
			"error", result.Error,
		)
	}

	h.writeAuditLog(ctx, &event, result)

	core.JSON(w, r, http.StatusOK, webhookAck{Received: true, Processed: result.Success})
}

// writeAuditLog records the delivery outcome. Failures are logged, never
// surfaced: the event itself was already handled.
func (h *StripeWebhookHandler) writeAuditLog(ctx context.Context, event *stripeEvent, result types.ProcessResult) {
	status := types.IntegrationLogSuccess
	if !result.Success {
		status = types.IntegrationLogError
	}

	logRow := &types.IntegrationLog{
		IntegrationID: "stripe",
		Action:        "webhook_" + event.Type,
		Status:        status,
		RequestData: types.JSONMap{
			"event_id":   event.ID,
			"event_type": event.Type,
		},
		ResponseData: types.JSONMap{
			"success": result.Success,
			"action":  result.Action,
			"error":   result.Error,
		},
		ErrorMessage: result.Error,
	}
	if err := h.audit.InsertLog(ctx, logRow); err != nil {
		h.logger.WarnContext(ctx, "failed to record integration log",
			"event_id", event.ID,
			"error", err,
		)
	}
}

// ---------------------------------------------------------------------------
// Event dispatch
// ---------------------------------------------------------------------------

// processEvent routes the event by type. Every branch converts internal
// errors into a failed ProcessResult instead of propagating them, so the
// delivery can still be acknowledged and audited.
func (h *StripeWebhookHandler) processEvent(ctx context.Context, event *stripeEvent) types.ProcessResult {
	switch event.Type {
	case external.EventStripeCheckoutCompleted:
		return h.handleCheckoutCompleted(ctx, event)

	case external.EventStripePaymentSucceeded:
		return h.handlePaymentIntent(ctx, event, "succeeded", "payment_succeeded")

	case external.EventStripePaymentFailed:
		return h.handlePaymentIntent(ctx, event, "failed", "payment_failed")

	case external.EventStripeSubCreated, external.EventStripeSubUpdated:
		return h.handleSubscriptionChanged(ctx, event)

	case external.EventStripeSubDeleted:
		return h.handleSubscriptionDeleted(ctx, event)

	case external.EventStripeInvoicePaid:
		return h.handleInvoicePaid(ctx, event)

	case external.EventStripeInvoiceFailed:
		return h.handleInvoicePaymentFailed(ctx, event)

	case external.EventStripeCustomerCreated:
		return h.handleCustomerCreated(ctx, event)

	case external.EventStripeCustomerUpdated:
		return h.handleCustomerUpdated(ctx, event)

	case external.EventStripeDisputeCreated:
		return h.handleDisputeCreated(ctx, event)

	default:
		h.logger.InfoContext(ctx, "ignoring unhandled webhook event type",
			"event_type", event.Type,
		)
		return types.ProcessResult{Success: true, Action: "ignored"}
	}
}

// handleCheckoutCompleted records the outcome of a completed Checkout
// session: a subscription mirror row for subscription mode, a payment mirror
// row otherwise.
func (h *StripeWebhookHandler) handleCheckoutCompleted(ctx context.Context, event *stripeEvent) types.ProcessResult {
	var session stripeCheckoutSession
	if err := json.Unmarshal(event.Data.Object, &session); err != nil {
		return failure(fmt.Errorf("checkout.session.completed: parse object: %w", err))
	}

	clientID := h.resolveClientID(ctx, session.Customer.String())

	if session.Mode == "subscription" {
		sub := &types.Subscription{
			ClientID:             clientID,
			StripeSubscriptionID: session.Subscription.String(),
			StripeCustomerID:     session.Customer.String(),
			Status:               "active",
		}
		if err := h.mirror.UpsertSubscription(ctx, sub); err != nil {
			return failure(err)
		}
	} else {
		p := &types.Payment{
			ClientID:              clientID,
			StripePaymentIntentID: session.PaymentIntent.String(),
			StripeCustomerID:      nilIfEmpty(session.Customer.String()),
			AmountCents:           session.AmountTotal,
			Currency:              session.Currency,
			Status:                "completed",
		}
		if err := h.mirror.UpsertPayment(ctx, p); err != nil {
			return failure(err)
		}
	}

	return types.ProcessResult{Success: true, Action: "checkout_completed"}
}

// handlePaymentIntent mirrors payment_intent.succeeded and
// payment_intent.payment_failed into the payments table.
func (h *StripeWebhookHandler) handlePaymentIntent(ctx context.Context, event *stripeEvent, status, action string) types.ProcessResult {
	var intent stripePaymentIntent
	if err := json.Unmarshal(event.Data.Object, &intent); err != nil {
		return failure(fmt.Errorf("%s: parse object: %w", event.Type, err))
	}

	p := &types.Payment{
		ClientID:              h.resolveClientID(ctx, intent.Customer.String()),
		StripePaymentIntentID: intent.ID,
		StripeCustomerID:      nilIfEmpty(intent.Customer.String()),
		AmountCents:           intent.Amount,
		Currency:              intent.Currency,
		Status:                status,
	}
	if intent.LastPaymentError != nil {
		p.Description = intent.LastPaymentError.Message
	}
	if err := h.mirror.UpsertPayment(ctx, p); err != nil {
		return failure(err)
	}

	return types.ProcessResult{Success: true, Action: action}
}

// handleSubscriptionChanged mirrors subscription create/update events.
func (h *StripeWebhookHandler) handleSubscriptionChanged(ctx context.Context, event *stripeEvent) types.ProcessResult {
	var sub stripeSubscription
	if err := json.Unmarshal(event.Data.Object, &sub); err != nil {
		return failure(fmt.Errorf("%s: parse object: %w", event.Type, err))
	}

	row := &types.Subscription{
		ClientID:             h.resolveClientID(ctx, sub.Customer.String()),
		StripeSubscriptionID: sub.ID,
		StripeCustomerID:     sub.Customer.String(),
		Status:               sub.Status,
		CurrentPeriodStart:   unixTimePtr(sub.CurrentPeriodStart),
		CurrentPeriodEnd:     unixTimePtr(sub.CurrentPeriodEnd),
		CancelAtPeriodEnd:    sub.CancelAtPeriodEnd,
	}
	if err := h.mirror.UpsertSubscription(ctx, row); err != nil {
		return failure(err)
	}

	action := "subscription_created"
	if event.Type == external.EventStripeSubUpdated {
		action = "subscription_updated"
	}
	return types.ProcessResult{Success: true, Action: action}
}

// handleSubscriptionDeleted marks the mirror row canceled.
func (h *StripeWebhookHandler) handleSubscriptionDeleted(ctx context.Context, event *stripeEvent) types.ProcessResult {
	var sub stripeSubscription
	if err := json.Unmarshal(event.Data.Object, &sub); err != nil {
		return failure(fmt.Errorf("%s: parse object: %w", event.Type, err))
	}

	now := time.Now().UTC()
	row := &types.Subscription{
		StripeSubscriptionID: sub.ID,
		StripeCustomerID:     sub.Customer.String(),
		Status:               "canceled",
		CanceledAt:           &now,
		CurrentPeriodStart:   unixTimePtr(sub.CurrentPeriodStart),
		CurrentPeriodEnd:     unixTimePtr(sub.CurrentPeriodEnd),
	}
	if err := h.mirror.UpsertSubscription(ctx, row); err != nil {
		return failure(err)
	}

	return types.ProcessResult{Success: true, Action: "subscription_canceled"}
}

// handleInvoicePaid reconciles the invoice, then emits invoice.paid on the
// internal bus. Downstream side-effects (transaction settlement, workflow
// transitions, admin notifications) run in the event processor, so a
// processing failure here leaves a pending event for the sweeper instead of
// failing the delivery.
func (h *StripeWebhookHandler) handleInvoicePaid(ctx context.Context, event *stripeEvent) types.ProcessResult {
	var pinv billing.StripeInvoice
	if err := json.Unmarshal(event.Data.Object, &pinv); err != nil {
		return failure(fmt.Errorf("invoice.paid: parse object: %w", err))
	}

	inv, err := h.reconciler.Reconcile(ctx, &pinv, billing.OutcomePaid)
	if err != nil {
		return failure(err)
	}

	if _, _, err := h.emitter.Emit(ctx, invoiceEventSpec(types.EventInvoicePaid, event, &pinv, inv)); err != nil {
		return failure(err)
	}

	return types.ProcessResult{Success: true, Action: "invoice_paid"}
}

// handleInvoicePaymentFailed reconciles the invoice as failed, emits
// invoice.payment_failed, and alerts the finance area in-app and by email.
// Both alerts are best-effort.
func (h *StripeWebhookHandler) handleInvoicePaymentFailed(ctx context.Context, event *stripeEvent) types.ProcessResult {
	var pinv billing.StripeInvoice
	if err := json.Unmarshal(event.Data.Object, &pinv); err != nil {
		return failure(fmt.Errorf("invoice.payment_failed: parse object: %w", err))
	}

	inv, err := h.reconciler.Reconcile(ctx, &pinv, billing.OutcomeFailed)
	if err != nil {
		return failure(err)
	}

	if _, _, err := h.emitter.Emit(ctx, invoiceEventSpec(types.EventInvoicePaymentFailed, event, &pinv, inv)); err != nil {
		return failure(err)
	}

	h.alertPaymentFailure(ctx, event, &pinv, inv)

	return types.ProcessResult{Success: true, Action: "invoice_payment_failed"}
}

// alertPaymentFailure sends the finance-area in-app notification and the
// finance alert email for a failed invoice payment. Failures are logged only.
func (h *StripeWebhookHandler) alertPaymentFailure(ctx context.Context, event *stripeEvent, pinv *billing.StripeInvoice, inv *types.Invoice) {
	title := "Pagamento falhou (Stripe)"
	dueDate := pinv.DueDateUTC().Format("2006-01-02")
	msg := fmt.Sprintf("Falha no pagamento da fatura %s (vencimento: %s).", pinv.LocalInvoiceNumber(), dueDate)

	notification := types.AreaNotification{
		Area:    types.AreaFinance,
		Title:   title,
		Message: msg,
		Link:    "/admin/dashboard",
		Type:    "stripe",
		Metadata: types.JSONMap{
			"stripe_invoice_id":  pinv.ID,
			"stripe_customer_id": pinv.Customer.String(),
			"client_id":          inv.ClientID,
			"invoice_id":         inv.ID,
			"invoice_number":     inv.InvoiceNumber,
			"hosted_invoice_url": pinv.HostedInvoiceURL,
		},
	}
	if _, err := h.notifier.NotifyArea(ctx, notification); err != nil {
		h.logger.WarnContext(ctx, "failed to notify finance area of payment failure",
			"event_id", event.ID,
			"error", err,
		)
	}

	if len(h.financeAlerts) == 0 || h.email == nil {
		return
	}

	actionText := ""
	if pinv.HostedInvoiceURL != "" {
		actionText = "Abrir fatura"
	}
	subject, body := external.NotificationEmail(title, msg, pinv.HostedInvoiceURL, actionText)

	settings := h.secrets.EmailSettings(ctx)
	_, err := h.email.Send(ctx, settings, types.EmailMessage{
		To:         h.financeAlerts,
		Subject:    subject,
		HTML:       body,
		Categories: []string{"agencydesk", "stripe"},
	})
	if err != nil {
		h.logger.WarnContext(ctx, "failed to send finance alert email",
			"event_id", event.ID,
			"error", err,
		)
	}
}

// handleCustomerCreated backfills the Stripe customer linkage onto clients
// matched by email.
func (h *StripeWebhookHandler) handleCustomerCreated(ctx context.Context, event *stripeEvent) types.ProcessResult {
	var customer stripeCustomer
	if err := json.Unmarshal(event.Data.Object, &customer); err != nil {
		return failure(fmt.Errorf("customer.created: parse object: %w", err))
	}

	if customer.Email != "" {
		linked, err := h.clients.LinkStripeCustomerByEmail(ctx, customer.Email, customer.ID)
		if err != nil {
			return failure(err)
		}
		if linked > 0 {
			h.logger.InfoContext(ctx, "linked stripe customer to clients",
				"stripe_customer_id", customer.ID,
				"clients", linked,
			)
		}
	}

	return types.ProcessResult{Success: true, Action: "customer_created"}
}

// handleCustomerUpdated bumps the linked client's updated_at.
func (h *StripeWebhookHandler) handleCustomerUpdated(ctx context.Context, event *stripeEvent) types.ProcessResult {
	var customer stripeCustomer
	if err := json.Unmarshal(event.Data.Object, &customer); err != nil {
		return failure(fmt.Errorf("customer.updated: parse object: %w", err))
	}

	if err := h.clients.TouchByStripeCustomerID(ctx, customer.ID); err != nil {
		return failure(err)
	}

	return types.ProcessResult{Success: true, Action: "customer_updated"}
}

// handleDisputeCreated records the dispute and alerts the finance area.
func (h *StripeWebhookHandler) handleDisputeCreated(ctx context.Context, event *stripeEvent) types.ProcessResult {
	var dispute stripeDispute
	if err := json.Unmarshal(event.Data.Object, &dispute); err != nil {
		return failure(fmt.Errorf("charge.dispute.created: parse object: %w", err))
	}

	row := &types.PaymentDispute{
		StripeDisputeID: dispute.ID,
		StripeChargeID:  dispute.Charge.String(),
		AmountCents:     dispute.Amount,
		Currency:        dispute.Currency,
		Reason:          dispute.Reason,
		Status:          dispute.Status,
	}
	if err := h.mirror.InsertDispute(ctx, row); err != nil {
		return failure(err)
	}

	notification := types.AreaNotification{
		Area:    types.AreaFinance,
		Title:   "Disputa de pagamento (Stripe)",
		Message: fmt.Sprintf("Nova disputa aberta para a cobrança %s. Motivo: %s.", dispute.Charge.String(), dispute.Reason),
		Link:    "/admin/dashboard",
		Type:    "stripe",
		Metadata: types.JSONMap{
			"stripe_dispute_id": dispute.ID,
			"stripe_charge_id":  dispute.Charge.String(),
		},
	}
	if _, err := h.notifier.NotifyArea(ctx, notification); err != nil {
		h.logger.WarnContext(ctx, "failed to notify finance area of dispute",
			"event_id", event.ID,
			"error", err,
		)
	}

	return types.ProcessResult{Success: true, Action: "dispute_created"}
}

// resolveClientID maps a Stripe customer to a local client ID, best-effort.
// Mirror rows are still written when no client is linked yet.
func (h *StripeWebhookHandler) resolveClientID(ctx context.Context, stripeCustomerID string) *string {
	if stripeCustomerID == "" {
		return nil
	}
	client, err := h.clients.GetByStripeCustomerID(ctx, stripeCustomerID)
	if err != nil {
		h.logger.WarnContext(ctx, "client lookup failed",
			"stripe_customer_id", stripeCustomerID,
			"error", err,
		)
		return nil
	}
	if client == nil {
		return nil
	}
	return &client.ID
}

// invoiceEventSpec builds the internal event for a reconciled invoice. The
// payload carries everything the event processor needs so that the sweeper
// can process the event later without refetching provider state.
func invoiceEventSpec(eventType string, event *stripeEvent, pinv *billing.StripeInvoice, inv *types.Invoice) types.EventSpec {
	return types.EventSpec{
		EventType:  eventType,
		EntityType: "invoice",
		EntityID:   inv.ID,
		Payload: types.JSONMap{
			"stripe_event_id":        event.ID,
			"stripe_invoice_id":      pinv.ID,
			"stripe_customer_id":     pinv.Customer.String(),
			"stripe_subscription_id": pinv.Subscription.String(),
			"client_id":              inv.ClientID,
			"contract_id":            inv.ContractID,
			"invoice_number":         inv.InvoiceNumber,
			"amount":                 pinv.AmountMajor(),
			"amount_paid":            pinv.AmountPaid,
			"currency":               pinv.Currency,
			"due_date":               pinv.DueDateUTC().Format("2006-01-02"),
			"customer_email":         pinv.EffectiveCustomerEmail(),
			"payment_method":         pinv.CollectionMethod,
			"hosted_invoice_url":     pinv.HostedInvoiceURL,
		},
	}
}

// failure wraps an internal error into a failed ProcessResult.
func failure(err error) types.ProcessResult {
	return types.ProcessResult{Success: false, Error: err.Error()}
}

func nilIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func unixTimePtr(sec int64) *time.Time {
	if sec == 0 {
		return nil
	}
	t := time.Unix(sec, 0).UTC()
	return &t
}

// ---------------------------------------------------------------------------
// Stripe event parsing
// ---------------------------------------------------------------------------

// stripeEvent is a minimal representation of a Stripe webhook event. The full
// stripe.Event type is deliberately not used here: it keeps the handler
// decoupled from the SDK's ever-growing surface and makes test fixtures
// trivial to build.
type stripeEvent struct {
	ID      string          `json:"id"`
	Type    string          `json:"type"`
	Created int64           `json:"created"`
	Data    stripeEventData `json:"data"`
}

type stripeEventData struct {
	Object json.RawMessage `json:"object"`
}

type stripeCheckoutSession struct {
	ID            string            `json:"id"`
	Mode          string            `json:"mode"`
	Customer      billing.StripeRef `json:"customer"`
	Subscription  billing.StripeRef `json:"subscription"`
	PaymentIntent billing.StripeRef `json:"payment_intent"`
	AmountTotal   int64             `json:"amount_total"`
	Currency      string            `json:"currency"`
}

type stripePaymentIntent struct {
	ID               string            `json:"id"`
	Customer         billing.StripeRef `json:"customer"`
	Amount           int64             `json:"amount"`
	Currency         string            `json:"currency"`
	LastPaymentError *struct {
		Message string `json:"message"`
	} `json:"last_payment_error"`
}

type stripeSubscription struct {
	ID                 string            `json:"id"`
	Customer           billing.StripeRef `json:"customer"`
	Status             string            `json:"status"`
	CurrentPeriodStart int64             `json:"current_period_start"`
	CurrentPeriodEnd   int64             `json:"current_period_end"`
	CancelAtPeriodEnd  bool              `json:"cancel_at_period_end"`
}

type stripeCustomer struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

type stripeDispute struct {
	ID       string            `json:"id"`
	Charge   billing.StripeRef `json:"charge"`
	Amount   int64             `json:"amount"`
	Currency string            `json:"currency"`
	Reason   string            `json:"reason"`
	Status   string            `json:"status"`
}
