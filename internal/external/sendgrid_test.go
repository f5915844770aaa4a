package external

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"agencydesk/internal/types"
)

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func newTestSendGridClient(t *testing.T, serverURL string) *SendGridClient {
	t.Helper()
	base := NewBaseClient(
		&http.Client{Timeout: 5 * time.Second},
		"test-sendgrid",
		RetryPolicy{
			MaxRetries: 0, // No retries in tests for deterministic behavior
			MinWait:    1 * time.Millisecond,
			MaxWait:    10 * time.Millisecond,
		},
		"AgencyDesk-Test/1.0",
		WithSleepFunc(noopSleep),
	)

	return NewSendGridClientWithBase(base, SendGridClientConfig{
		BaseURL: serverURL,
	})
}

func testEmailSettings() types.EmailSettings {
	return types.EmailSettings{
		APIKey:    types.SecretString("SG.test_api_key"),
		KeySource: types.SecretSourceEnv,
		FromEmail: "noreply@agencydesk.io",
		FromName:  "AgencyDesk",
	}
}

func testEmailMessage() types.EmailMessage {
	return types.EmailMessage{
		To:         []string{"finance@agencydesk.io"},
		Subject:    "Pagamento falhou (Stripe)",
		HTML:       "<p>Falha no pagamento da fatura A-0042.</p>",
		Categories: []string{"agencydesk", "stripe"},
	}
}

func requireAppError(t *testing.T, err error, code types.ErrorCode) *types.AppError {
	t.Helper()
	var appErr *types.AppError
	if !errors.As(err, &appErr) {
		t.Fatalf("expected AppError, got %v", err)
	}
	if appErr.Code != code {
		t.Fatalf("expected code %q, got %q", code, appErr.Code)
	}
	return appErr
}

// ---------------------------------------------------------------------------
// Tests
// ---------------------------------------------------------------------------

func TestSendGridSend_Success(t *testing.T) {
	var receivedPayload sendGridMailPayload
	var receivedAuth string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if r.URL.Path != "/v3/mail/send" {
			t.Errorf("expected path /v3/mail/send, got %s", r.URL.Path)
		}
		receivedAuth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&receivedPayload); err != nil {
			t.Fatalf("failed to decode request body: %v", err)
		}
		w.Header().Set("X-Message-Id", "sg_msg_abc123")
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	client := newTestSendGridClient(t, server.URL)

	msgID, err := client.Send(context.Background(), testEmailSettings(), testEmailMessage())
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if msgID != "sg_msg_abc123" {
		t.Errorf("expected message ID sg_msg_abc123, got %s", msgID)
	}
	if receivedAuth != "Bearer SG.test_api_key" {
		t.Errorf("expected the resolved key in the bearer header, got %q", receivedAuth)
	}

	if len(receivedPayload.Personalizations) != 1 || len(receivedPayload.Personalizations[0].To) != 1 {
		t.Fatalf("unexpected personalizations: %+v", receivedPayload.Personalizations)
	}
	if got := receivedPayload.Personalizations[0].To[0].Email; got != "finance@agencydesk.io" {
		t.Errorf("unexpected recipient %q", got)
	}
	if receivedPayload.From.Email != "noreply@agencydesk.io" || receivedPayload.From.Name != "AgencyDesk" {
		t.Errorf("unexpected sender %+v", receivedPayload.From)
	}
	if receivedPayload.Subject != "Pagamento falhou (Stripe)" {
		t.Errorf("unexpected subject %q", receivedPayload.Subject)
	}
	if len(receivedPayload.Content) != 1 || receivedPayload.Content[0].Type != "text/html" {
		t.Errorf("unexpected content %+v", receivedPayload.Content)
	}
	if len(receivedPayload.Categories) != 2 || receivedPayload.Categories[1] != "stripe" {
		t.Errorf("unexpected categories %v", receivedPayload.Categories)
	}
}

func TestSendGridSend_MultipleRecipients(t *testing.T) {
	var receivedPayload sendGridMailPayload
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&receivedPayload)
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	client := newTestSendGridClient(t, server.URL)
	msg := testEmailMessage()
	msg.To = []string{"a@agencydesk.io", "b@agencydesk.io"}

	if _, err := client.Send(context.Background(), testEmailSettings(), msg); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(receivedPayload.Personalizations[0].To) != 2 {
		t.Errorf("expected 2 recipients, got %d", len(receivedPayload.Personalizations[0].To))
	}
}

func TestSendGridSend_NoAPIKeySkipsRequest(t *testing.T) {
	requests := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
	}))
	defer server.Close()

	client := newTestSendGridClient(t, server.URL)
	settings := testEmailSettings()
	settings.APIKey = ""
	settings.KeySource = types.SecretSourceNone

	_, err := client.Send(context.Background(), settings, testEmailMessage())
	requireAppError(t, err, types.ErrCodeInternalConfig)
	if requests != 0 {
		t.Error("no request expected without a resolved key")
	}
}

func TestSendGridSend_NoRecipients(t *testing.T) {
	client := newTestSendGridClient(t, "http://unused")
	msg := testEmailMessage()
	msg.To = nil

	_, err := client.Send(context.Background(), testEmailSettings(), msg)
	requireAppError(t, err, types.ErrCodeValidationMissingField)
}

func TestSendGridSend_ForbiddenMapsToEmailBlocked(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		json.NewEncoder(w).Encode(sendGridErrorResponse{
			Errors: []sendGridErrorDetail{{Message: "recipient address is suppressed"}},
		})
	}))
	defer server.Close()

	client := newTestSendGridClient(t, server.URL)

	_, err := client.Send(context.Background(), testEmailSettings(), testEmailMessage())
	requireAppError(t, err, types.ErrCodeEmailBlocked)
}

func TestSendGridSend_BadRequestMapsToProviderError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(sendGridErrorResponse{
			Errors: []sendGridErrorDetail{{Message: "invalid from address", Field: "from.email"}},
		})
	}))
	defer server.Close()

	client := newTestSendGridClient(t, server.URL)

	_, err := client.Send(context.Background(), testEmailSettings(), testEmailMessage())
	appErr := requireAppError(t, err, types.ErrCodeUpstreamEmailProvider)
	if got := appErr.Details["provider_error"]; got != "invalid from address" {
		t.Errorf("expected the provider message preserved, got %v", got)
	}
}

func TestSendGridSend_NonJSONErrorBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte("plain text error"))
	}))
	defer server.Close()

	client := newTestSendGridClient(t, server.URL)

	_, err := client.Send(context.Background(), testEmailSettings(), testEmailMessage())
	appErr := requireAppError(t, err, types.ErrCodeUpstreamEmailProvider)
	if got := appErr.Details["provider_error"]; got != "plain text error" {
		t.Errorf("expected the raw body preserved, got %v", got)
	}
}

func TestSendGridSend_ServerErrorMapsToUpstreamUnavailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := newTestSendGridClient(t, server.URL)

	_, err := client.Send(context.Background(), testEmailSettings(), testEmailMessage())
	requireAppError(t, err, types.ErrCodeUpstreamUnavailable)
}
