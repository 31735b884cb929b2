package handlers

import (
	"net/http"
	"time"

	"github.com/catalix/pim-api/internal/domain"
	"github.com/catalix/pim-api/internal/services"
)

// HealthHandlers serves the /healthz liveness and /readyz readiness probes.
type HealthHandlers struct {
	system  services.SystemService
	started time.Time
	clock   func() time.Time
}

// NewHealthHandlers constructs the probe handlers. A nil system service
// degrades /readyz to a liveness-only answer.
func NewHealthHandlers(system services.SystemService) *HealthHandlers {
	return &HealthHandlers{
		system:  system,
		started: time.Now(),
		clock:   time.Now,
	}
}

// Healthz reports process liveness without touching any dependency.
func (h *HealthHandlers) Healthz(w http.ResponseWriter, r *http.Request) {
	now := h.clock()
	writeJSONResponse(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"uptime":    now.Sub(h.started).String(),
		"timestamp": now.UTC().Format(time.RFC3339),
	})
}

// Readyz probes the wired dependencies and reports aggregated status.
func (h *HealthHandlers) Readyz(w http.ResponseWriter, r *http.Request) {
	if h.system == nil {
		h.Healthz(w, r)
		return
	}

	report, err := h.system.Health(r.Context())
	if err != nil {
		writeJSONResponse(w, http.StatusServiceUnavailable, map[string]any{
			"status": "error",
			"error":  err.Error(),
		})
		return
	}

	status := http.StatusOK
	if report.Status != "ok" {
		status = http.StatusServiceUnavailable
	}
	writeJSONResponse(w, status, buildHealthReportPayload(report))
}

type healthReportPayload struct {
	Status      string                        `json:"status"`
	Version     string                        `json:"version,omitempty"`
	CommitSHA   string                        `json:"commit_sha,omitempty"`
	Environment string                        `json:"environment,omitempty"`
	Uptime      string                        `json:"uptime,omitempty"`
	GeneratedAt string                        `json:"generated_at,omitempty"`
	Checks      map[string]healthCheckPayload `json:"checks,omitempty"`
}

type healthCheckPayload struct {
	Status    string `json:"status"`
	Detail    string `json:"detail,omitempty"`
	Error     string `json:"error,omitempty"`
	LatencyMS int64  `json:"latency_ms,omitempty"`
	CheckedAt string `json:"checked_at,omitempty"`
}

func buildHealthReportPayload(report domain.SystemHealthReport) healthReportPayload {
	payload := healthReportPayload{
		Status:      report.Status,
		Version:     report.Version,
		CommitSHA:   report.CommitSHA,
		Environment: report.Environment,
		GeneratedAt: formatTime(report.GeneratedAt),
	}
	if report.Uptime > 0 {
		payload.Uptime = report.Uptime.String()
	}
	if len(report.Checks) > 0 {
		payload.Checks = make(map[string]healthCheckPayload, len(report.Checks))
		for name, check := range report.Checks {
			payload.Checks[name] = healthCheckPayload{
				Status:    check.Status,
				Detail:    check.Detail,
				Error:     check.Error,
				LatencyMS: check.Latency.Milliseconds(),
				CheckedAt: formatTime(check.CheckedAt),
			}
		}
	}
	return payload
}
