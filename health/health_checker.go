// Package health reports service health from the state of the reference
// tables: emptiness, age since the last reload and whether a reload is
// currently running.
package health

import (
	"math"
	"net/http"
	"time"

	"github.com/mediflux/assistant-api/interfaces"
)

// HealthCheckerImpl implements the interfaces.HealthChecker interface
type HealthCheckerImpl struct {
	dataStore interfaces.DataStore
}

// NewHealthChecker creates a new health checker with injected dependencies
func NewHealthChecker(dataStore interfaces.DataStore) interfaces.HealthChecker {
	return &HealthCheckerImpl{
		dataStore: dataStore,
	}
}

// HealthCheck returns HTTP-specific health data with stricter thresholds
// Used by /health HTTP endpoint
func (h *HealthCheckerImpl) HealthCheck() (status string, data map[string]any, httpStatus int) {
	ref := h.dataStore.GetReference()
	idx := h.dataStore.GetIndex()
	lastLoaded := h.dataStore.GetLastLoaded()
	isReloading := h.dataStore.IsReloading()

	referenceAge := time.Since(lastLoaded)

	// The reference tables reload daily at 06:00; anything past two missed
	// reloads means the scheduler is broken.
	switch {
	case len(ref.Conditions) == 0 || len(ref.Medications) == 0 || len(ref.Specialties) == 0:
		status = "unhealthy"
		httpStatus = http.StatusServiceUnavailable

	case referenceAge > 48*time.Hour:
		status = "unhealthy"
		httpStatus = http.StatusServiceUnavailable

	case referenceAge > 26*time.Hour:
		status = "degraded"
		httpStatus = http.StatusServiceUnavailable

	case isReloading && referenceAge > 6*time.Hour:
		status = "degraded"
		httpStatus = http.StatusServiceUnavailable

	default:
		status = "healthy"
		httpStatus = http.StatusOK
	}

	data = map[string]any{
		"last_loaded":         lastLoaded.Format(time.RFC3339),
		"reference_age_hours": math.Round(referenceAge.Hours()*10) / 10,
		"conditions":          len(ref.Conditions),
		"medications":         len(ref.Medications),
		"specialties":         len(ref.Specialties),
		"pathways":            len(ref.Pathways),
		"keywords":            len(idx.Keywords),
		"is_reloading":        isReloading,
	}

	return status, data, httpStatus
}

// CalculateNextReload returns the next scheduled reference reload time
func (h *HealthCheckerImpl) CalculateNextReload() time.Time {
	now := time.Now()

	sixAM := time.Date(now.Year(), now.Month(), now.Day(), 6, 0, 0, 0, now.Location())

	if now.Before(sixAM) {
		return sixAM
	}

	return sixAM.AddDate(0, 0, 1)
}
