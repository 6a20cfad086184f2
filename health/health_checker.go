// Package health evaluates whether the service can answer requests.
package health

import (
	"math"
	"net/http"
	"time"

	"github.com/giygas/drugsafe-api/interfaces"
)

const (
	StatusHealthy   = "healthy"
	StatusDegraded  = "degraded"
	StatusUnhealthy = "unhealthy"
)

// SessionCounter reports the number of live sessions.
type SessionCounter interface {
	Len() int
}

var _ interfaces.HealthChecker = (*HealthCheckerImpl)(nil)

// HealthCheckerImpl implements the interfaces.HealthChecker interface
type HealthCheckerImpl struct {
	store      interfaces.ReferenceStore
	sessions   SessionCounter
	staleAfter time.Duration
	now        func() time.Time
}

// NewHealthChecker creates a health checker. Reference data older than
// staleAfter degrades the service; 0 disables the age check, which suits the
// built-in dataset that never changes.
func NewHealthChecker(store interfaces.ReferenceStore, sessions SessionCounter, staleAfter time.Duration) *HealthCheckerImpl {
	return &HealthCheckerImpl{
		store:      store,
		sessions:   sessions,
		staleAfter: staleAfter,
		now:        time.Now,
	}
}

// HealthCheck returns the status, the details served on /health and the
// HTTP status to answer with.
func (h *HealthCheckerImpl) HealthCheck() (status string, data map[string]any, httpStatus int) {
	medications := len(h.store.GetMedications())
	lastUpdate := h.store.GetLastUpdated()
	isUpdating := h.store.IsUpdating()
	report := h.store.GetQualityReport()
	dataAge := h.now().Sub(lastUpdate)

	switch {
	case medications == 0 || lastUpdate.IsZero():
		status, httpStatus = StatusUnhealthy, http.StatusServiceUnavailable
	case h.staleAfter > 0 && dataAge > 2*h.staleAfter:
		status, httpStatus = StatusUnhealthy, http.StatusServiceUnavailable
	case h.staleAfter > 0 && dataAge > h.staleAfter:
		status, httpStatus = StatusDegraded, http.StatusServiceUnavailable
	default:
		status, httpStatus = StatusHealthy, http.StatusOK
	}

	data = map[string]any{
		"source":         h.store.GetSource(),
		"last_update":    lastUpdate.Format(time.RFC3339),
		"data_age_hours": math.Round(dataAge.Hours()*10) / 10,
		"medications":    medications,
		"conditions":     len(h.store.GetConditions()),
		"interactions":   len(h.store.GetAnalysis().Interactions),
		"is_updating":    isUpdating,
		"quality_issues": report != nil && report.HasIssues(),
	}
	if h.sessions != nil {
		data["sessions"] = h.sessions.Len()
	}
	if start := h.store.GetServerStartTime(); !start.IsZero() {
		data["uptime_seconds"] = math.Round(h.now().Sub(start).Seconds())
	}

	return status, data, httpStatus
}
