package events

import (
	"context"
	"log/slog"
	"net/url"
	"time"

	"agencydesk/internal/types"
)

// InvoiceStatusWriter applies event-driven invoice status changes.
// Implemented by db.WorkflowRepo.
type InvoiceStatusWriter interface {
	MarkInvoicePaid(ctx context.Context, invoiceID string, paidAt time.Time) error
	MarkInvoicePaymentFailed(ctx context.Context, invoiceID string) error
}

// TransactionWriter applies event-driven ledger updates.
// Implemented by db.WorkflowRepo.
type TransactionWriter interface {
	UpdateTransactionStatusByInvoice(ctx context.Context, invoiceID string, status string, referenceNumber string, paymentMethod string, paidAt *time.Time) (int64, error)
}

// TransitionWriter records area transitions. Implemented by db.WorkflowRepo.
type TransitionWriter interface {
	InsertTransition(ctx context.Context, t *types.WorkflowTransition) (inserted bool, err error)
}

// Notifier delivers in-app notifications. Implemented by notify.Notifier.
type Notifier interface {
	NotifyArea(ctx context.Context, n types.AreaNotification) (int, error)
	NotifyAdmins(ctx context.Context, title, message, link string, metadata types.JSONMap) (int, error)
}

// OnboardingTaskWriter places follow-up cards on a client's onboarding
// Kanban board. Implemented by db.KanbanRepo.
type OnboardingTaskWriter interface {
	AddOnboardingTask(ctx context.Context, task types.OnboardingTask) error
}

// Processor is the event bus consumer. It turns billing events into workflow
// transitions, ledger updates, and notifications. Every action is idempotent
// so a swept retry of a half-processed event converges rather than
// duplicating work.
type Processor struct {
	invoices     InvoiceStatusWriter
	transactions TransactionWriter
	transitions  TransitionWriter
	notifier     Notifier
	kanban       OnboardingTaskWriter
	logger       *slog.Logger
}

// NewProcessor creates a Processor with the given side-effect dependencies.
func NewProcessor(
	invoices InvoiceStatusWriter,
	transactions TransactionWriter,
	transitions TransitionWriter,
	notifier Notifier,
	kanban OnboardingTaskWriter,
	logger *slog.Logger,
) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{
		invoices:     invoices,
		transactions: transactions,
		transitions:  transitions,
		notifier:     notifier,
		kanban:       kanban,
		logger:       logger,
	}
}

// Process dispatches one persisted event to its handler. Unknown event types
// are a successful no-op: producers may emit event types this consumer does
// not act on.
func (p *Processor) Process(ctx context.Context, ev *types.InternalEvent) error {
	switch ev.EventType {
	case types.EventInvoicePaid:
		return p.handleInvoicePaid(ctx, ev)
	case types.EventInvoicePaymentFailed:
		return p.handleInvoicePaymentFailed(ctx, ev)
	default:
		p.logger.DebugContext(ctx, "no handler for event type",
			"event_id", ev.ID,
			"event_type", ev.EventType,
		)
		return nil
	}
}

// handleInvoicePaid confirms payment: the invoice and its ledger entries are
// marked settled, the work moves from Financeiro to Operacao, and admins are
// notified.
func (p *Processor) handleInvoicePaid(ctx context.Context, ev *types.InternalEvent) error {
	now := time.Now().UTC()
	ref := payloadString(ev.Payload, "stripe_invoice_id", "invoice_number")
	method := payloadString(ev.Payload, "payment_method", "collection_method")

	if ev.EntityID != "" {
		if err := p.invoices.MarkInvoicePaid(ctx, ev.EntityID, now); err != nil {
			return err
		}
		if _, err := p.transactions.UpdateTransactionStatusByInvoice(ctx, ev.EntityID, "completed", ref, method, &now); err != nil {
			return err
		}
	}

	if err := p.dispatchTransition(ctx, ev, types.AreaFinance, types.AreaOperations, types.EventInvoicePaid); err != nil {
		return err
	}
	if err := p.dispatchTransition(ctx, ev, types.AreaOperations, types.AreaNotifications, "notifications.required"); err != nil {
		return err
	}

	link := hubLink("transitions", "pending", firstNonEmpty(ev.EntityID, ref, ev.EventType))
	if _, err := p.notifier.NotifyAdmins(ctx,
		"Fatura paga (Stripe)",
		"Pagamento confirmado. Fluxo enviado para Operação.",
		link,
		types.JSONMap{
			"invoice_id":        ev.EntityID,
			"client_id":         payloadString(ev.Payload, "client_id"),
			"stripe_invoice_id": payloadString(ev.Payload, "stripe_invoice_id"),
		},
	); err != nil {
		return err
	}

	p.addOnboardingTask(ctx, ev, types.OnboardingTask{
		Title:       "Pagamento confirmado — iniciar operação",
		Description: "Stripe confirmou o pagamento. Iniciar onboarding operacional (integrações, kickoff, setup de campanhas).",
		Priority:    "high",
		Area:        types.AreaOperations,
	})

	return nil
}

// handleInvoicePaymentFailed records the failure and routes the client to
// Comercial for follow-up.
func (p *Processor) handleInvoicePaymentFailed(ctx context.Context, ev *types.InternalEvent) error {
	ref := payloadString(ev.Payload, "stripe_invoice_id", "invoice_number")

	if ev.EntityID != "" {
		if err := p.invoices.MarkInvoicePaymentFailed(ctx, ev.EntityID); err != nil {
			return err
		}
		if _, err := p.transactions.UpdateTransactionStatusByInvoice(ctx, ev.EntityID, "failed", ref, "", nil); err != nil {
			return err
		}
	}

	if err := p.dispatchTransition(ctx, ev, types.AreaFinance, types.AreaCommercial, types.EventInvoicePaymentFailed); err != nil {
		return err
	}
	if err := p.dispatchTransition(ctx, ev, types.AreaCommercial, types.AreaNotifications, "notifications.required"); err != nil {
		return err
	}

	link := hubLink("transitions", "pending", firstNonEmpty(ev.EntityID, ref, ev.EventType))
	if _, err := p.notifier.NotifyAdmins(ctx,
		"Falha de pagamento (Stripe)",
		"Pagamento falhou. Ação necessária do Financeiro/Comercial.",
		link,
		types.JSONMap{
			"invoice_id":        ev.EntityID,
			"client_id":         payloadString(ev.Payload, "client_id"),
			"stripe_invoice_id": payloadString(ev.Payload, "stripe_invoice_id"),
		},
	); err != nil {
		return err
	}

	p.addOnboardingTask(ctx, ev, types.OnboardingTask{
		Title:       "Falha no pagamento — acionar Financeiro/Comercial",
		Description: "Stripe informou falha no pagamento. Verificar motivo, contatar cliente e definir próximo passo.",
		Priority:    "urgent",
		Area:        types.AreaFinance,
	})

	return nil
}

// addOnboardingTask puts a billing follow-up card on the client's onboarding
// board. Events without a client linkage skip the card. The write is
// best-effort: a board failure is logged, not propagated, so a swept retry
// of the event cannot pile duplicate cards onto the board.
func (p *Processor) addOnboardingTask(ctx context.Context, ev *types.InternalEvent, task types.OnboardingTask) {
	clientID := payloadString(ev.Payload, "client_id")
	if clientID == "" {
		return
	}

	task.ClientID = clientID
	task.CreatedBy = ev.ActorUserID
	task.ReferenceLinks = types.JSONMap{
		"type":              "stripe",
		"stripe_invoice_id": payloadString(ev.Payload, "stripe_invoice_id"),
		"invoice_id":        ev.EntityID,
		"amount":            ev.Payload["amount"],
		"currency":          ev.Payload["currency"],
	}

	if err := p.kanban.AddOnboardingTask(ctx, task); err != nil {
		p.logger.WarnContext(ctx, "failed to add onboarding kanban task",
			"event_id", ev.ID,
			"client_id", clientID,
			"error", err,
		)
	}
}

// dispatchTransition inserts one workflow transition keyed to the source
// event and, when the row is new, alerts the destination area. The area
// alert is best-effort: its failure is logged, not propagated, so a flaky
// notification insert cannot fail an otherwise processed event.
func (p *Processor) dispatchTransition(ctx context.Context, ev *types.InternalEvent, fromArea, toArea, trigger string) error {
	t := &types.WorkflowTransition{
		FromArea:      fromArea,
		ToArea:        toArea,
		TriggerEvent:  trigger,
		SourceEventID: ev.ID,
		Payload:       ev.Payload,
		CreatedBy:     ev.ActorUserID,
	}

	inserted, err := p.transitions.InsertTransition(ctx, t)
	if err != nil {
		return err
	}
	if !inserted {
		p.logger.InfoContext(ctx, "workflow transition already recorded",
			"event_id", ev.ID,
			"transition_id", t.ID,
			"trigger_event", trigger,
		)
		return nil
	}

	if _, notifyErr := p.notifier.NotifyArea(ctx, types.AreaNotification{
		Area:    toArea,
		Title:   "Nova demanda (" + toArea + ")",
		Message: "Há uma nova transição pendente para a sua área. Evento: " + trigger + ".",
		Link:    "/colaborador/kanban",
		Type:    "workflow",
		Metadata: types.JSONMap{
			"workflow_transition_id": t.ID,
			"trigger_event":          trigger,
			"from_area":              fromArea,
			"to_area":                toArea,
			"source_event_id":        ev.ID,
		},
	}); notifyErr != nil {
		p.logger.WarnContext(ctx, "area notification failed for workflow transition",
			"event_id", ev.ID,
			"transition_id", t.ID,
			"to_area", toArea,
			"error", notifyErr,
		)
	}

	return nil
}

// hubLink builds an admin workflow hub deep link.
func hubLink(tab, status, q string) string {
	v := url.Values{}
	if tab != "" {
		v.Set("tab", tab)
	}
	if status != "" {
		v.Set("status", status)
	}
	if q != "" {
		v.Set("q", q)
	}
	if encoded := v.Encode(); encoded != "" {
		return "/admin/fluxos?" + encoded
	}
	return "/admin/fluxos"
}

// payloadString returns the first non-empty string value among the given
// payload keys.
func payloadString(payload types.JSONMap, keys ...string) string {
	for _, key := range keys {
		if s, ok := payload[key].(string); ok && s != "" {
			return s
		}
	}
	return ""
}

// firstNonEmpty returns the first non-empty string argument.
func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
