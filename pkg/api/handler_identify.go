package api

import (
	"net/http"

	"github.com/labstack/echo/v5"

	"github.com/msaleh-12/Multi-Agent-System-BSE-7A-Backend/pkg/models"
)

// identifyIntentHandler handles POST /api/supervisor/identify-intent, a
// dry-run of intent identification. Nothing is dispatched and
// conversation memory is neither read nor written; history, if wanted,
// comes inline with the request.
func (s *Server) identifyIntentHandler(c *echo.Context) error {
	var req IdentifyIntentRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	history := make([]*models.ConversationMessage, 0, len(req.ConversationHistory))
	for _, turn := range req.ConversationHistory {
		role := models.Role(turn.Role)
		if role != models.RoleUser && role != models.RoleAssistant {
			continue
		}
		history = append(history, &models.ConversationMessage{
			Role:    role,
			Content: turn.Content,
		})
	}

	res := s.supervisor.Identify(c.Request().Context(), req.Request, history)
	return c.JSON(http.StatusOK, res)
}
