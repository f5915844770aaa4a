// Package types defines the shared domain model for the AgencyDesk billing
// reconciliation service: invoices, clients, internal events, integration
// audit records, and the error/secret primitives used across layers.
package types

import (
	"time"
)

// ---------------------------------------------------------------------------
// Invoices
// ---------------------------------------------------------------------------

// InvoiceStatus is the lifecycle state of a local invoice.
type InvoiceStatus string

const (
	InvoiceStatusPending       InvoiceStatus = "pending"
	InvoiceStatusPaid          InvoiceStatus = "paid"
	InvoiceStatusPaymentFailed InvoiceStatus = "payment_failed"
	InvoiceStatusCancelled     InvoiceStatus = "cancelled"
)

// Invoice is the local financial record reconciled against Stripe invoice
// events.
//
// Monetary fields intentionally use two units: Amount is in major currency
// units (reais/dollars) because the invoices table predates the Stripe
// integration, while AmountPaidCents mirrors Stripe's minor-unit value
// verbatim so the provider figure is never lossy.
type Invoice struct {
	ID                   string        `json:"id"`
	ClientID             string        `json:"client_id"`
	ContractID           *string       `json:"contract_id,omitempty"`
	InvoiceNumber        string        `json:"invoice_number,omitempty"`
	Amount               float64       `json:"amount"`
	AmountPaidCents      int64         `json:"amount_paid_cents"`
	Currency             string        `json:"currency"`
	IssueDate            time.Time     `json:"issue_date"`
	DueDate              time.Time     `json:"due_date"`
	Status               InvoiceStatus `json:"status"`
	PaymentMethod        *string       `json:"payment_method,omitempty"`
	HostedInvoiceURL     *string       `json:"hosted_invoice_url,omitempty"`
	StripeInvoiceID      *string       `json:"stripe_invoice_id,omitempty"`
	StripeCustomerID     *string       `json:"stripe_customer_id,omitempty"`
	StripeSubscriptionID *string       `json:"stripe_subscription_id,omitempty"`
	PaidAt               *time.Time    `json:"paid_at,omitempty"`
	CreatedAt            time.Time     `json:"created_at"`
	UpdatedAt            time.Time     `json:"updated_at"`
}

// InvoiceProviderUpdate carries the fields the reconciler writes back onto an
// existing invoice from a provider event. Nil pointers leave the stored value
// untouched.
type InvoiceProviderUpdate struct {
	Status               *InvoiceStatus
	AmountPaidCents      *int64
	PaidAt               *time.Time
	PaymentMethod        *string
	HostedInvoiceURL     *string
	StripeInvoiceID      *string
	StripeCustomerID     *string
	StripeSubscriptionID *string
	InvoiceNumber        *string
}

// ---------------------------------------------------------------------------
// Clients
// ---------------------------------------------------------------------------

// Client is a customer of the agency platform. Stripe linkage is optional;
// clients created before the billing integration are matched by email.
type Client struct {
	ID               string  `json:"id"`
	CompanyName      string  `json:"company_name"`
	Email            string  `json:"email"`
	ContactEmail     string  `json:"contact_email,omitempty"`
	StripeCustomerID *string `json:"stripe_customer_id,omitempty"`
}

// ---------------------------------------------------------------------------
// Subscriptions / Payments / Disputes (provider mirrors)
// ---------------------------------------------------------------------------

// Subscription mirrors a Stripe subscription for local queries. Rows are
// upserted on every subscription lifecycle event.
type Subscription struct {
	ID                   string     `json:"id"`
	ClientID             *string    `json:"client_id,omitempty"`
	StripeSubscriptionID string     `json:"stripe_subscription_id"`
	StripeCustomerID     string     `json:"stripe_customer_id"`
	Status               string     `json:"status"`
	CurrentPeriodStart   *time.Time `json:"current_period_start,omitempty"`
	CurrentPeriodEnd     *time.Time `json:"current_period_end,omitempty"`
	CancelAtPeriodEnd    bool       `json:"cancel_at_period_end"`
	CanceledAt           *time.Time `json:"canceled_at,omitempty"`
	CreatedAt            time.Time  `json:"created_at"`
	UpdatedAt            time.Time  `json:"updated_at"`
}

// Payment mirrors a Stripe payment intent outcome.
type Payment struct {
	ID                    string    `json:"id"`
	ClientID              *string   `json:"client_id,omitempty"`
	StripePaymentIntentID string    `json:"stripe_payment_intent_id"`
	StripeCustomerID      *string   `json:"stripe_customer_id,omitempty"`
	AmountCents           int64     `json:"amount_cents"`
	Currency              string    `json:"currency"`
	Status                string    `json:"status"`
	Description           string    `json:"description,omitempty"`
	CreatedAt             time.Time `json:"created_at"`
}

// PaymentDispute records a charge.dispute.created event for manual follow-up.
type PaymentDispute struct {
	ID              string    `json:"id"`
	StripeDisputeID string    `json:"stripe_dispute_id"`
	StripeChargeID  string    `json:"stripe_charge_id"`
	AmountCents     int64     `json:"amount_cents"`
	Currency        string    `json:"currency"`
	Reason          string    `json:"reason,omitempty"`
	Status          string    `json:"status"`
	CreatedAt       time.Time `json:"created_at"`
}

// ---------------------------------------------------------------------------
// Internal event bus
// ---------------------------------------------------------------------------

// EventStatus is the processing state of a persisted internal event.
type EventStatus string

const (
	EventStatusPending   EventStatus = "pending"
	EventStatusProcessed EventStatus = "processed"
	EventStatusError     EventStatus = "error"
)

// InternalEvent is a durable record on the internal event bus. Events are
// persisted first, then processed; a processing failure marks the row 'error'
// for the sweeper to retry rather than failing the producing request.
type InternalEvent struct {
	ID           string      `json:"id"`
	EventType    string      `json:"event_type"`
	EntityType   string      `json:"entity_type"`
	EntityID     string      `json:"entity_id"`
	ActorUserID  *string     `json:"actor_user_id,omitempty"`
	Payload      JSONMap     `json:"payload,omitempty"`
	Status       EventStatus `json:"status"`
	ErrorMessage string      `json:"error_message,omitempty"`
	ProcessedAt  *time.Time  `json:"processed_at,omitempty"`
	CreatedAt    time.Time   `json:"created_at"`
}

// EventSpec is the producer-side description of an internal event before it
// is persisted.
type EventSpec struct {
	EventType   string
	EntityType  string
	EntityID    string
	ActorUserID *string
	Payload     JSONMap
}

// Internal event type constants prevent magic strings at emit and handle sites.
const (
	EventInvoicePaid          = "invoice.paid"
	EventInvoicePaymentFailed = "invoice.payment_failed"
)

// ---------------------------------------------------------------------------
// Integration configuration and audit
// ---------------------------------------------------------------------------

// IntegrationConfig is a per-integration settings row. The primary
// credentials live in dedicated columns; Config is a schemaless JSONB blob
// for the integration's remaining settings (e.g. from_email for the email
// provider).
type IntegrationConfig struct {
	ID            string    `json:"id"`
	IntegrationID string    `json:"integration_id"`
	Status        string    `json:"status"`
	WebhookSecret *string   `json:"-"`
	APIKey        *string   `json:"-"`
	Config        JSONMap   `json:"config,omitempty"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// IntegrationConfigStatusConnected marks an integration whose stored
// credentials are considered live.
const IntegrationConfigStatusConnected = "connected"

// IntegrationLog is an append-only audit record of one inbound or outbound
// integration interaction.
type IntegrationLog struct {
	ID            string    `json:"id"`
	IntegrationID string    `json:"integration_id"`
	Action        string    `json:"action"`
	Status        string    `json:"status"`
	RequestData   JSONMap   `json:"request_data,omitempty"`
	ResponseData  JSONMap   `json:"response_data,omitempty"`
	ErrorMessage  string    `json:"error_message,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// Integration log status values.
const (
	IntegrationLogSuccess = "success"
	IntegrationLogError   = "error"
)

// ProcessResult is the per-event outcome of webhook dispatch. It is stored in
// the integration log response snapshot and echoed in the webhook response.
type ProcessResult struct {
	Success bool   `json:"success"`
	Action  string `json:"action,omitempty"`
	Error   string `json:"error,omitempty"`
}

// ---------------------------------------------------------------------------
// Notifications and workflow
// ---------------------------------------------------------------------------

// AreaFinance is the operational area that receives billing notifications.
const AreaFinance = "Financeiro"

// AreaNotification is an in-app notification fanned out to all users of an
// operational area.
type AreaNotification struct {
	Area     string  `json:"area"`
	Title    string  `json:"title"`
	Message  string  `json:"message"`
	Link     string  `json:"link,omitempty"`
	Type     string  `json:"type"`
	Metadata JSONMap `json:"metadata,omitempty"`
}

// WorkflowTransition records work moving between operational areas in
// response to an internal event. Inserts are idempotent on
// (from_area, to_area, trigger_event, source_event_id) so a redelivered
// event never duplicates a pending demand.
type WorkflowTransition struct {
	ID            string    `json:"id"`
	FromArea      string    `json:"from_area"`
	ToArea        string    `json:"to_area"`
	Status        string    `json:"status"`
	TriggerEvent  string    `json:"trigger_event"`
	SourceEventID string    `json:"source_event_id"`
	Payload       JSONMap   `json:"payload,omitempty"`
	CreatedBy     *string   `json:"created_by,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// Operational areas involved in the billing workflow.
const (
	AreaOperations    = "Operacao"
	AreaCommercial    = "Comercial"
	AreaNotifications = "Notificacoes"
)

// OnboardingTask is a follow-up card placed on a client's onboarding Kanban
// board in response to a billing event.
type OnboardingTask struct {
	ClientID       string  `json:"client_id"`
	Title          string  `json:"title"`
	Description    string  `json:"description,omitempty"`
	Priority       string  `json:"priority"`
	Area           string  `json:"area"`
	ReferenceLinks JSONMap `json:"reference_links,omitempty"`
	CreatedBy      *string `json:"created_by,omitempty"`
}

// ---------------------------------------------------------------------------
// Email
// ---------------------------------------------------------------------------

// EmailSettings is the resolved email provider configuration for one send.
// Source records whether the API key came from the integration config row or
// the process environment.
type EmailSettings struct {
	APIKey    SecretString
	KeySource SecretSource
	FromEmail string
	FromName  string
}

// EmailMessage is a fully rendered email ready for provider dispatch.
type EmailMessage struct {
	To         []string
	Subject    string
	HTML       string
	Categories []string
}
