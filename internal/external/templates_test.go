package external

import (
	"strings"
	"testing"
)

func TestNotificationEmail_RendersTitleAndMessage(t *testing.T) {
	subject, body := NotificationEmail(
		"Pagamento falhou (Stripe)",
		"Falha no pagamento da fatura A-0042 (vencimento: 2026-08-15).",
		"", "",
	)

	if subject != "Pagamento falhou (Stripe)" {
		t.Errorf("unexpected subject %q", subject)
	}
	if !strings.Contains(body, "<h2") || !strings.Contains(body, "Pagamento falhou (Stripe)") {
		t.Errorf("expected the title in a heading, got %q", body)
	}
	if !strings.Contains(body, "Falha no pagamento da fatura A-0042") {
		t.Errorf("expected the message in the body, got %q", body)
	}
	if strings.Contains(body, "<a href") {
		t.Error("no action button expected without an action URL")
	}
}

func TestNotificationEmail_ActionButton(t *testing.T) {
	_, body := NotificationEmail("t", "m", "https://pay.stripe.com/invoice/abc", "Abrir fatura")

	if !strings.Contains(body, `href="https://pay.stripe.com/invoice/abc"`) {
		t.Errorf("expected the action URL in the button, got %q", body)
	}
	if !strings.Contains(body, "Abrir fatura") {
		t.Errorf("expected the action text, got %q", body)
	}
}

func TestNotificationEmail_DefaultActionText(t *testing.T) {
	_, body := NotificationEmail("t", "m", "https://example.com", "")
	if !strings.Contains(body, "Ver mais") {
		t.Errorf("expected the default action text, got %q", body)
	}
}

func TestNotificationEmail_EscapesHTML(t *testing.T) {
	_, body := NotificationEmail("<script>", "a & b", "", "")
	if strings.Contains(body, "<script>") {
		t.Error("title must be escaped")
	}
	if !strings.Contains(body, "a &amp; b") {
		t.Errorf("message must be escaped, got %q", body)
	}
}
