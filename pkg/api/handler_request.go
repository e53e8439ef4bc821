package api

import (
	"net/http"

	"github.com/labstack/echo/v5"

	"github.com/msaleh-12/Multi-Agent-System-BSE-7A-Backend/pkg/supervisor"
)

// requestHandler handles POST /api/supervisor/request, the main chat
// entrypoint. Both the success and the clarification shape come back at
// HTTP 200; 4xx is reserved for malformed bodies.
func (s *Server) requestHandler(c *echo.Context) error {
	var req supervisor.Request
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	out, err := s.supervisor.HandleRequest(c.Request().Context(), requestUserID(c), &req)
	if err != nil {
		return mapServiceError(err)
	}
	if out.Clarification != nil {
		return c.JSON(http.StatusOK, out.Clarification)
	}
	return c.JSON(http.StatusOK, out.Response)
}
