package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestRouter mounts the webhook handler the way cmd/api does.
func newTestRouter(env *testWebhookEnv) chi.Router {
	r := chi.NewRouter()
	env.handler.RegisterRoutes(r)
	return r
}

func TestRoutes_WebhookMountedAtStripePath(t *testing.T) {
	env := newTestWebhookEnv()
	router := newTestRouter(env)

	body := buildStripeEvent("invoice.paid", "evt_route_1", buildInvoiceObject())
	req := httptest.NewRequest(http.MethodPost, "/webhooks/stripe", bytes.NewReader(body))
	req.Header.Set("Stripe-Signature", "t=1,v1=valid")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)

	var ack webhookAck
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &ack))
	assert.True(t, ack.Received)
	assert.True(t, ack.Processed)
}

func TestRoutes_WebhookRejectsGet(t *testing.T) {
	env := newTestWebhookEnv()
	router := newTestRouter(env)

	req := httptest.NewRequest(http.MethodGet, "/webhooks/stripe", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
	assert.Empty(t, env.reconciler.calls, "no processing on rejected methods")
}

func TestRoutes_UnknownPathIs404(t *testing.T) {
	env := newTestWebhookEnv()
	router := newTestRouter(env)

	req := httptest.NewRequest(http.MethodPost, "/webhooks/unknown", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusNotFound, rr.Code)
}
