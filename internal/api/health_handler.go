package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/ignite/waitlist-api/internal/pkg/httputil"
)

// Pinger is implemented by the subscriber store.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthStatus represents the overall health of the service.
type HealthStatus struct {
	Status string                    `json:"status"` // "healthy", "degraded", "unhealthy"
	Uptime string                    `json:"uptime"`
	Checks map[string]ComponentCheck `json:"checks"`
}

// ComponentCheck represents the health of a single dependency.
type ComponentCheck struct {
	Status  string `json:"status"` // "up", "down", "degraded"
	Latency string `json:"latency,omitempty"`
	Message string `json:"message,omitempty"`
}

// HealthChecker reports on the subscriber store. A nil store is reported as
// down; the API still serves and answers 500 on data endpoints.
type HealthChecker struct {
	store     Pinger
	startTime time.Time
	slow      time.Duration
}

// NewHealthChecker creates a new HealthChecker.
func NewHealthChecker(store Pinger) *HealthChecker {
	return &HealthChecker{
		store:     store,
		startTime: time.Now(),
		slow:      time.Second,
	}
}

// HandleHealth always returns 200; the status field conveys health.
//
//	GET /health
func (hc *HealthChecker) HandleHealth(w http.ResponseWriter, r *http.Request) {
	check := hc.checkStore(r.Context())
	httputil.OK(w, HealthStatus{
		Status: overallStatus(check),
		Uptime: formatUptime(time.Since(hc.startTime)),
		Checks: map[string]ComponentCheck{"store": check},
	})
}

// HandleReadiness returns 503 while the store is unreachable.
//
//	GET /health/ready
func (hc *HealthChecker) HandleReadiness(w http.ResponseWriter, r *http.Request) {
	check := hc.checkStore(r.Context())
	overall := overallStatus(check)

	ready := overall != "unhealthy"
	httpStatus := http.StatusOK
	if !ready {
		httpStatus = http.StatusServiceUnavailable
	}

	httputil.JSON(w, httpStatus, map[string]interface{}{
		"ready":  ready,
		"status": overall,
		"checks": map[string]ComponentCheck{"store": check},
	})
}

// checkStore pings the store with a 3-second timeout.
func (hc *HealthChecker) checkStore(ctx context.Context) ComponentCheck {
	if hc.store == nil {
		return ComponentCheck{Status: "down", Message: "not configured"}
	}

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	start := time.Now()
	err := hc.store.Ping(pingCtx)
	latency := time.Since(start)

	if err != nil {
		return ComponentCheck{
			Status:  "down",
			Latency: latency.String(),
			Message: safeErrorMessage(err),
		}
	}
	if latency > hc.slow {
		return ComponentCheck{
			Status:  "degraded",
			Latency: latency.String(),
			Message: fmt.Sprintf("slow response (%s)", latency.Round(time.Millisecond)),
		}
	}
	return ComponentCheck{Status: "up", Latency: latency.String(), Message: "connected"}
}

func overallStatus(c ComponentCheck) string {
	switch c.Status {
	case "up":
		return "healthy"
	case "degraded":
		return "degraded"
	default:
		return "unhealthy"
	}
}

func formatUptime(d time.Duration) string {
	d = d.Round(time.Second)
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	if h > 0 {
		return fmt.Sprintf("%dh%dm%ds", h, m, s)
	}
	if m > 0 {
		return fmt.Sprintf("%dm%ds", m, s)
	}
	return fmt.Sprintf("%ds", s)
}
