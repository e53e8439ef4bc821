package api

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v5"

	"github.com/msaleh-12/Multi-Agent-System-BSE-7A-Backend/pkg/models"
	"github.com/msaleh-12/Multi-Agent-System-BSE-7A-Backend/pkg/version"
)

const (
	healthStatusHealthy   = "healthy"
	healthStatusUnhealthy = "unhealthy"
)

// healthHandler handles GET /health. Agent liveness is reported from the
// prober's cached sweep and never degrades the process status; only a
// failing persistence backend makes the supervisor unhealthy.
func (s *Server) healthHandler(c *echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	status := healthStatusHealthy
	checks := make(map[string]HealthCheck)

	if s.dbClient != nil {
		if _, err := s.dbClient.Health(ctx); err != nil {
			status = healthStatusUnhealthy
			checks["database"] = HealthCheck{Status: healthStatusUnhealthy, Message: err.Error()}
		} else {
			checks["database"] = HealthCheck{Status: healthStatusHealthy}
		}
	}

	var agents AgentStats
	for _, agent := range s.registry.List() {
		agents.Total++
		switch agent.Status {
		case models.AgentStatusHealthy:
			agents.Healthy++
		case models.AgentStatusOffline:
			agents.Offline++
		default:
			agents.Unknown++
		}
	}

	httpStatus := http.StatusOK
	if status == healthStatusUnhealthy {
		httpStatus = http.StatusServiceUnavailable
	}
	return c.JSON(httpStatus, &HealthResponse{
		Status:  status,
		Version: version.GitCommit,
		Agents:  agents,
		Checks:  checks,
	})
}
