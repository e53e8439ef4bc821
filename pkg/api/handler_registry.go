package api

import (
	"net/http"

	"github.com/labstack/echo/v5"
)

// registryHandler handles GET /api/supervisor/registry. Statuses reflect
// the prober's latest sweep, not a live check.
func (s *Server) registryHandler(c *echo.Context) error {
	agents := s.registry.List()
	return c.JSON(http.StatusOK, &RegistryResponse{
		Agents: agents,
		Count:  len(agents),
	})
}

// agentHealthHandler handles GET /api/supervisor/agent/:id/health with a
// forced live probe of the agent.
func (s *Server) agentHealthHandler(c *echo.Context) error {
	agentID := c.Param("id")
	if agentID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "agent id is required")
	}

	status, err := s.prober.Probe(c.Request().Context(), agentID)
	if err != nil {
		return mapServiceError(err)
	}

	resp := &AgentHealthResponse{AgentID: agentID, Status: status}
	if desc, ok := s.registry.Get(agentID); ok {
		resp.AgentID = desc.ID
		resp.LastChecked = desc.LastChecked
	}
	return c.JSON(http.StatusOK, resp)
}
