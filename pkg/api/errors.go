package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v5"

	"github.com/msaleh-12/Multi-Agent-System-BSE-7A-Backend/pkg/health"
	"github.com/msaleh-12/Multi-Agent-System-BSE-7A-Backend/pkg/memory"
)

// mapServiceError converts infrastructure errors into HTTP error
// responses. Domain-level failures (agent errors, clarifications, agents
// offline) never reach this path; they travel in-band at HTTP 200.
func mapServiceError(err error) *echo.HTTPError {
	if errors.Is(err, memory.ErrEmptyUserID) {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if errors.Is(err, health.ErrAgentNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	}
	slog.Error("Unexpected service error", "error", err)
	return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
}
