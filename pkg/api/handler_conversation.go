package api

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v5"

	"github.com/msaleh-12/Multi-Agent-System-BSE-7A-Backend/pkg/models"
)

const (
	defaultHistoryLimit = 10
	maxHistoryLimit     = 100
)

// conversationHistoryHandler handles GET /api/supervisor/conversation/history.
// limit defaults to 10 and is capped at 100.
func (s *Server) conversationHistoryHandler(c *echo.Context) error {
	limit := defaultHistoryLimit
	if v := c.QueryParam("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return echo.NewHTTPError(http.StatusBadRequest, "limit must be a positive integer")
		}
		if n > maxHistoryLimit {
			n = maxHistoryLimit
		}
		limit = n
	}

	userID := requestUserID(c)
	history, err := s.store.History(c.Request().Context(), userID, limit)
	if err != nil {
		return mapServiceError(err)
	}
	if history == nil {
		history = []*models.ConversationMessage{}
	}
	return c.JSON(http.StatusOK, &HistoryResponse{
		UserID:   userID,
		Messages: history,
		Count:    len(history),
	})
}

// conversationSummaryHandler handles GET /api/supervisor/conversation/summary.
func (s *Server) conversationSummaryHandler(c *echo.Context) error {
	summary, err := s.store.Summary(c.Request().Context(), requestUserID(c))
	if err != nil {
		return mapServiceError(err)
	}
	return c.JSON(http.StatusOK, summary)
}

// conversationClearHandler handles DELETE /api/supervisor/conversation/clear.
// Clearing also resets the user's sticky agent and accumulated parameters.
func (s *Server) conversationClearHandler(c *echo.Context) error {
	userID := requestUserID(c)
	if err := s.supervisor.ClearConversation(c.Request().Context(), userID); err != nil {
		return mapServiceError(err)
	}
	return c.JSON(http.StatusOK, &ClearResponse{
		UserID:  userID,
		Message: "Conversation history cleared",
	})
}
