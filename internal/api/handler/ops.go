// Package handler provides HTTP handlers for the Outly API.
package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/lucasmontegu/outly/internal/api/models"
	"github.com/lucasmontegu/outly/internal/api/response"
	"github.com/lucasmontegu/outly/internal/provider/resilience"
)

// OpsHandler handles operational endpoints.
type OpsHandler struct {
	version    string
	buildTime  string
	readyCheck func(ctx context.Context) error
}

// NewOpsHandler creates a new OpsHandler. readyCheck may be nil; readiness
// then reports OK unconditionally.
func NewOpsHandler(version, buildTime string, readyCheck func(ctx context.Context) error) *OpsHandler {
	return &OpsHandler{
		version:    version,
		buildTime:  buildTime,
		readyCheck: readyCheck,
	}
}

// HealthCheck handles GET /v1/ops/health - liveness check.
func (h *OpsHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	health := models.Health{
		Status: models.HealthStatusOK,
		Time:   models.Timestamp(time.Now()),
		Details: map[string]interface{}{
			"version":   h.version,
			"buildTime": h.buildTime,
		},
	}
	response.JSON(w, r, http.StatusOK, health)
}

// ReadinessCheck handles GET /v1/ops/ready - readiness check.
func (h *OpsHandler) ReadinessCheck(w http.ResponseWriter, r *http.Request) {
	health := models.Health{
		Status: models.HealthStatusOK,
		Time:   models.Timestamp(time.Now()),
	}

	if h.readyCheck != nil {
		if err := h.readyCheck(r.Context()); err != nil {
			health.Status = models.HealthStatusFail
			health.Details = map[string]interface{}{"error": err.Error()}
			response.JSON(w, r, http.StatusServiceUnavailable, health)
			return
		}
	}

	response.JSON(w, r, http.StatusOK, health)
}

// SystemStatus handles GET /v1/ops/status - provider and subsystem status.
func (h *OpsHandler) SystemStatus(w http.ResponseWriter, r *http.Request) {
	status := models.SystemStatus{
		Status:     models.HealthStatusOK,
		Time:       models.Timestamp(time.Now()),
		Subsystems: []models.SubsystemStatus{h.databaseStatus(r.Context())},
		Providers:  providerStatuses(),
	}

	for _, sub := range status.Subsystems {
		if sub.Status == models.HealthStatusFail {
			status.Status = models.HealthStatusFail
		}
	}
	if status.Status == models.HealthStatusOK {
		for _, p := range status.Providers {
			if p.Status != models.HealthStatusOK {
				status.Status = models.HealthStatusDegraded
				break
			}
		}
	}

	response.JSON(w, r, http.StatusOK, status)
}

func (h *OpsHandler) databaseStatus(ctx context.Context) models.SubsystemStatus {
	sub := models.SubsystemStatus{Name: "database", Status: models.HealthStatusOK}
	if h.readyCheck != nil {
		if err := h.readyCheck(ctx); err != nil {
			detail := err.Error()
			sub.Status = models.HealthStatusFail
			sub.Detail = &detail
		}
	}
	return sub
}

func providerStatuses() []models.ProviderStatus {
	all := resilience.GlobalRegistry.GetAllHealth()
	statuses := make([]models.ProviderStatus, 0, len(all))
	for _, health := range all {
		status := models.ProviderStatus{
			Provider: health.Name,
			Status:   models.HealthStatusOK,
		}
		switch {
		case health.IsUnhealthy():
			status.Status = models.HealthStatusFail
		case health.IsDegraded():
			status.Status = models.HealthStatusDegraded
		}
		if health.LastSuccessAt != nil {
			ts := models.Timestamp(*health.LastSuccessAt)
			status.LastSuccessAt = &ts
		}
		if health.LastFailureAt != nil {
			ts := models.Timestamp(*health.LastFailureAt)
			status.LastFailureAt = &ts
		}
		if health.LastError != "" {
			msg := health.LastError
			status.Message = &msg
		}
		statuses = append(statuses, status)
	}
	return statuses
}
