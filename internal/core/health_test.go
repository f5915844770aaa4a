package core

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"agencydesk/internal/types"
)

type mockBacklog struct {
	counts map[types.EventStatus]int64
	err    error
}

func (m *mockBacklog) CountByStatus(ctx context.Context) (map[types.EventStatus]int64, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.counts, nil
}

func decodeHealth(t *testing.T, rec *httptest.ResponseRecorder) healthResponse {
	t.Helper()
	var resp healthResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return resp
}

func healthRequest() *http.Request {
	return httptest.NewRequest(http.MethodGet, "/health", nil)
}

func TestHealthHandler_AllProbesHealthy(t *testing.T) {
	h := NewHealthHandler([]HealthProbe{
		PingProbe{ProbeName: "database", Ping: func(ctx context.Context) error { return nil }},
	}, nil, "1.4.2")

	rec := httptest.NewRecorder()
	h.Handle(rec, healthRequest())

	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
	resp := decodeHealth(t, rec)
	if resp.Status != "healthy" {
		t.Errorf("expected healthy, got %q", resp.Status)
	}
	if resp.Version != "1.4.2" {
		t.Errorf("expected the build version, got %q", resp.Version)
	}
	if resp.Components["database"].Status != "healthy" {
		t.Errorf("unexpected component state %+v", resp.Components["database"])
	}
}

func TestHealthHandler_FailingProbeReturns503(t *testing.T) {
	h := NewHealthHandler([]HealthProbe{
		PingProbe{ProbeName: "database", Ping: func(ctx context.Context) error {
			return errors.New("connection refused")
		}},
	}, nil, "")

	rec := httptest.NewRecorder()
	h.Handle(rec, healthRequest())

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503, got %d", rec.Code)
	}
	resp := decodeHealth(t, rec)
	if resp.Status != "unhealthy" {
		t.Errorf("expected unhealthy, got %q", resp.Status)
	}
	if resp.Components["database"].Message != "connection refused" {
		t.Errorf("expected the probe error surfaced, got %q", resp.Components["database"].Message)
	}
}

func TestHealthHandler_PanickingProbeIsUnhealthy(t *testing.T) {
	h := NewHealthHandler([]HealthProbe{
		PingProbe{ProbeName: "database", Ping: func(ctx context.Context) error { panic("driver bug") }},
	}, nil, "")

	rec := httptest.NewRecorder()
	h.Handle(rec, healthRequest())

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503, got %d", rec.Code)
	}
}

func TestHealthHandler_ReportsEventBacklog(t *testing.T) {
	backlog := &mockBacklog{counts: map[types.EventStatus]int64{
		types.EventStatusPending: 3,
		types.EventStatusError:   1,
	}}
	h := NewHealthHandler(nil, backlog, "")

	rec := httptest.NewRecorder()
	h.Handle(rec, healthRequest())

	resp := decodeHealth(t, rec)
	if resp.Events["pending"] != 3 || resp.Events["error"] != 1 {
		t.Errorf("unexpected backlog %v", resp.Events)
	}
}

func TestHealthHandler_BacklogFailureDoesNotFailHealth(t *testing.T) {
	backlog := &mockBacklog{err: errors.New("query failed")}
	h := NewHealthHandler(nil, backlog, "")

	rec := httptest.NewRecorder()
	h.Handle(rec, healthRequest())

	if rec.Code != http.StatusOK {
		t.Errorf("a backlog read failure must not fail the health check, got %d", rec.Code)
	}
	if resp := decodeHealth(t, rec); resp.Events != nil {
		t.Errorf("expected event counts omitted, got %v", resp.Events)
	}
}
