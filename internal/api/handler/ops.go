// Package handler provides HTTP handlers for the envhealth API.
package handler

import (
	"net/http"
	"time"

	"github.com/breatheroute/envhealth/internal/api/models"
	"github.com/breatheroute/envhealth/internal/api/response"
	"github.com/breatheroute/envhealth/internal/provider/resilience"
)

// SessionCounter reports the number of open dashboard sessions.
type SessionCounter interface {
	Count() int
}

// OpsHandler handles operational endpoints.
type OpsHandler struct {
	version   string
	buildTime string
	registry  *resilience.Registry
	sessions  SessionCounter
}

// NewOpsHandler creates an OpsHandler. registry and sessions may be nil.
func NewOpsHandler(version, buildTime string, registry *resilience.Registry, sessions SessionCounter) *OpsHandler {
	return &OpsHandler{
		version:   version,
		buildTime: buildTime,
		registry:  registry,
		sessions:  sessions,
	}
}

// HealthCheck handles GET /v1/ops/health - liveness check.
func (h *OpsHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, r, http.StatusOK, models.Health{
		Status: models.HealthStatusOK,
		Time:   models.Timestamp(time.Now()),
		Details: map[string]any{
			"version":   h.version,
			"buildTime": h.buildTime,
		},
	})
}

// SystemStatus handles GET /v1/ops/status - upstream circuit health.
// The service stays OK while upstreams are down because every domain falls
// back to placeholder data; it reports DEGRADED instead.
func (h *OpsHandler) SystemStatus(w http.ResponseWriter, r *http.Request) {
	status := models.SystemStatus{
		Status:    models.HealthStatusOK,
		Time:      models.Timestamp(time.Now()),
		Upstreams: []models.UpstreamStatus{},
	}
	if h.sessions != nil {
		status.Sessions = h.sessions.Count()
	}

	if h.registry != nil {
		for _, u := range h.registry.GetAllHealth() {
			us := models.UpstreamStatus{
				Name:         u.Name,
				Status:       upstreamStatus(u.Status()),
				CircuitState: u.CircuitState.String(),
			}
			if u.LastSuccessAt != nil {
				us.LastSuccessAt = models.TimestampPtr(*u.LastSuccessAt)
			}
			if u.LastFailureAt != nil {
				us.LastFailureAt = models.TimestampPtr(*u.LastFailureAt)
			}
			if u.LastError != "" {
				msg := u.LastError
				us.Message = &msg
			}
			if us.Status != models.HealthStatusOK {
				status.Status = models.HealthStatusDegraded
			}
			status.Upstreams = append(status.Upstreams, us)
		}
	}

	response.JSON(w, r, http.StatusOK, status)
}

func upstreamStatus(s string) models.HealthStatus {
	switch s {
	case resilience.StatusDown:
		return models.HealthStatusFail
	case resilience.StatusDegraded:
		return models.HealthStatusDegraded
	default:
		return models.HealthStatusOK
	}
}
