package api

import (
	"net/http"

	"github.com/labstack/echo/v5"
)

// debugResponseHandler handles GET /api/supervisor/debug/last-agent-response.
// With agent_id it returns the last raw response captured for that agent;
// without it, the full capture map. 404 while nothing has been captured.
func (s *Server) debugResponseHandler(c *echo.Context) error {
	if agentID := c.QueryParam("agent_id"); agentID != "" {
		entry, ok := s.debug.Get(agentID)
		if !ok {
			return echo.NewHTTPError(http.StatusNotFound, "no response captured for agent")
		}
		return c.JSON(http.StatusOK, entry)
	}

	all := s.debug.All()
	if len(all) == 0 {
		return echo.NewHTTPError(http.StatusNotFound, "no agent responses captured")
	}
	return c.JSON(http.StatusOK, all)
}
