package core

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"agencydesk/internal/types"
)

// healthCheckTimeout is the maximum time allowed for all health probes to
// complete. If any probe exceeds this deadline the health check returns 503.
const healthCheckTimeout = 2 * time.Second

// HealthProbe defines the interface for a subsystem health check. Each probe
// represents a critical dependency (database, email provider) that must be
// operational for the service to function.
type HealthProbe interface {
	// Name returns a human-readable identifier for the probe (e.g. "database").
	Name() string

	// Check performs the health check. It should respect the context deadline
	// and return an error if the subsystem is unhealthy or unreachable.
	Check(ctx context.Context) error
}

// EventBacklogCounter reports the internal event bus backlog by status.
// Implemented by db.EventRepo.
type EventBacklogCounter interface {
	CountByStatus(ctx context.Context) (map[types.EventStatus]int64, error)
}

// componentStatus represents the health state of a single subsystem.
type componentStatus struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// healthResponse is the JSON response body for the health check endpoint.
type healthResponse struct {
	Status     string                     `json:"status"`
	Version    string                     `json:"version,omitempty"`
	Components map[string]componentStatus `json:"components,omitempty"`
	Events     map[string]int64           `json:"events,omitempty"`
}

// HealthHandler serves GET /health. It runs all registered probes
// concurrently with a short timeout and reports the event bus backlog so that
// a stuck sweeper is visible without querying the database directly.
type HealthHandler struct {
	probes  []HealthProbe
	backlog EventBacklogCounter
	version string
}

// NewHealthHandler creates a HealthHandler. backlog may be nil, in which case
// event counts are omitted from the response.
func NewHealthHandler(probes []HealthProbe, backlog EventBacklogCounter, version string) *HealthHandler {
	return &HealthHandler{probes: probes, backlog: backlog, version: version}
}

// Handle executes all registered health probes concurrently. Returns 200 if
// every probe reports healthy, 503 if any critical subsystem fails or the
// global timeout is exceeded. The endpoint is public.
func (h *HealthHandler) Handle(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
	defer cancel()

	resp := healthResponse{
		Status:  "healthy",
		Version: h.version,
	}

	if len(h.probes) > 0 {
		resp.Components = h.runProbes(ctx)
		for _, c := range resp.Components {
			if c.Status != "healthy" {
				resp.Status = "unhealthy"
			}
		}
	}

	if h.backlog != nil {
		if counts, err := h.backlog.CountByStatus(ctx); err == nil {
			resp.Events = make(map[string]int64, len(counts))
			for status, n := range counts {
				resp.Events[string(status)] = n
			}
		}
	}

	status := http.StatusOK
	if resp.Status != "healthy" {
		status = http.StatusServiceUnavailable
	}
	JSON(w, r, status, resp)
}

// runProbes executes every probe in its own goroutine and collects results
// until they all finish or the context expires. Probes that miss the deadline
// are reported as timed out.
func (h *HealthHandler) runProbes(ctx context.Context) map[string]componentStatus {
	type probeResult struct {
		name string
		err  error
	}

	var (
		mu      sync.Mutex
		results = make(map[string]probeResult, len(h.probes))
		wg      sync.WaitGroup
	)

	for _, probe := range h.probes {
		wg.Add(1)
		go func(p HealthProbe) {
			defer wg.Done()

			var err error
			func() {
				defer func() {
					if r := recover(); r != nil {
						err = fmt.Errorf("probe panicked: %v", r)
					}
				}()
				err = p.Check(ctx)
			}()

			mu.Lock()
			results[p.Name()] = probeResult{name: p.Name(), err: err}
			mu.Unlock()
		}(probe)
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
	}

	mu.Lock()
	defer mu.Unlock()

	components := make(map[string]componentStatus, len(h.probes))
	for _, probe := range h.probes {
		result, ok := results[probe.Name()]
		switch {
		case !ok:
			components[probe.Name()] = componentStatus{
				Status:  "unhealthy",
				Message: "health check timed out",
			}
		case result.err != nil:
			components[probe.Name()] = componentStatus{
				Status:  "unhealthy",
				Message: result.err.Error(),
			}
		default:
			components[probe.Name()] = componentStatus{Status: "healthy"}
		}
	}
	return components
}

// PingProbe adapts a ping function (e.g. pgxpool.Pool.Ping) into a
// HealthProbe.
type PingProbe struct {
	ProbeName string
	Ping      func(ctx context.Context) error
}

func (p PingProbe) Name() string                    { return p.ProbeName }
func (p PingProbe) Check(ctx context.Context) error { return p.Ping(ctx) }
