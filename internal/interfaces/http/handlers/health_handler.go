// Package handlers serves the operational HTTP endpoints of the sync process.
package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// Checker probes one dependency.
type Checker func(ctx context.Context) error

// HealthHandler provides health check endpoints for monitoring.
type HealthHandler struct {
	version string
	started time.Time
	checks  map[string]Checker
	timeout time.Duration
	logger  *zap.Logger
}

// NewHealthHandler creates a handler reporting the given dependency checks.
func NewHealthHandler(version string, checks map[string]Checker, logger *zap.Logger) *HealthHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HealthHandler{
		version: version,
		started: time.Now(),
		checks:  checks,
		timeout: 5 * time.Second,
		logger:  logger.Named("health"),
	}
}

// HealthResponse represents the health check response structure.
type HealthResponse struct {
	Status    string                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Version   string                 `json:"version,omitempty"`
	Uptime    string                 `json:"uptime,omitempty"`
	Checks    map[string]HealthCheck `json:"checks,omitempty"`
}

// HealthCheck represents an individual component health check.
type HealthCheck struct {
	Status   string `json:"status"`
	Duration string `json:"duration"`
	Error    string `json:"error,omitempty"`
}

const (
	StatusHealthy   = "healthy"
	StatusUnhealthy = "unhealthy"
)

// Live reports that the process responds.
func (h *HealthHandler) Live(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:    StatusHealthy,
		Timestamp: time.Now().UTC(),
		Version:   h.version,
		Uptime:    time.Since(h.started).Round(time.Second).String(),
	})
}

// Ready runs every dependency check and answers 503 if any fails.
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	resp := HealthResponse{
		Status:    StatusHealthy,
		Timestamp: time.Now().UTC(),
		Version:   h.version,
		Checks:    make(map[string]HealthCheck, len(h.checks)),
	}
	for name, check := range h.checks {
		start := time.Now()
		err := check(ctx)
		hc := HealthCheck{Status: StatusHealthy, Duration: time.Since(start).String()}
		if err != nil {
			hc.Status = StatusUnhealthy
			hc.Error = err.Error()
			resp.Status = StatusUnhealthy
			h.logger.Warn("readiness check failed", zap.String("check", name), zap.Error(err))
		}
		resp.Checks[name] = hc
	}

	status := http.StatusOK
	if resp.Status != StatusHealthy {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, resp)
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
