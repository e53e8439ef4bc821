package api

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/msaleh-12/Multi-Agent-System-BSE-7A-Backend/pkg/models"
)

func seedConversation(t *testing.T, ts *testServer, userID string, turns int) {
	t.Helper()
	for i := 0; i < turns; i++ {
		role := models.RoleUser
		agentID := ""
		if i%2 == 1 {
			role = models.RoleAssistant
			agentID = "adaptive_quiz_master_agent"
		}
		require.NoError(t, ts.store.Append(t.Context(), &models.ConversationMessage{
			UserID:  userID,
			Role:    role,
			Content: "turn",
			AgentID: agentID,
		}))
	}
}

func TestConversationHistoryHandler(t *testing.T) {
	ts := newTestServer(t)
	seedConversation(t, ts, "student-7", 6)

	t.Run("default limit", func(t *testing.T) {
		rec := ts.do(t, http.MethodGet, "/api/supervisor/conversation/history", nil,
			map[string]string{"X-User-ID": "student-7"})

		require.Equal(t, http.StatusOK, rec.Code)

		var resp HistoryResponse
		decodeJSON(t, rec, &resp)
		assert.Equal(t, "student-7", resp.UserID)
		assert.Equal(t, 6, resp.Count)
		assert.Len(t, resp.Messages, 6)
	})

	t.Run("explicit limit returns most recent turns", func(t *testing.T) {
		rec := ts.do(t, http.MethodGet, "/api/supervisor/conversation/history?limit=2", nil,
			map[string]string{"X-User-ID": "student-7"})

		require.Equal(t, http.StatusOK, rec.Code)

		var resp HistoryResponse
		decodeJSON(t, rec, &resp)
		require.Len(t, resp.Messages, 2)
		assert.Equal(t, models.RoleAssistant, resp.Messages[1].Role)
	})

	t.Run("unknown user gets empty array", func(t *testing.T) {
		rec := ts.do(t, http.MethodGet, "/api/supervisor/conversation/history", nil,
			map[string]string{"X-User-ID": "nobody"})

		require.Equal(t, http.StatusOK, rec.Code)

		var resp HistoryResponse
		decodeJSON(t, rec, &resp)
		assert.Equal(t, 0, resp.Count)
		assert.NotNil(t, resp.Messages)
	})

	t.Run("rejects non-numeric limit", func(t *testing.T) {
		rec := ts.do(t, http.MethodGet, "/api/supervisor/conversation/history?limit=abc", nil, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("rejects non-positive limit", func(t *testing.T) {
		rec := ts.do(t, http.MethodGet, "/api/supervisor/conversation/history?limit=0", nil, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestConversationSummaryHandler(t *testing.T) {
	ts := newTestServer(t)
	seedConversation(t, ts, "student-7", 4)

	rec := ts.do(t, http.MethodGet, "/api/supervisor/conversation/summary", nil,
		map[string]string{"X-User-ID": "student-7"})

	require.Equal(t, http.StatusOK, rec.Code)

	var summary models.ConversationSummary
	decodeJSON(t, rec, &summary)
	assert.Equal(t, "student-7", summary.UserID)
	assert.Equal(t, 4, summary.MessageCount)
	assert.Equal(t, []string{"adaptive_quiz_master_agent"}, summary.AgentsUsed)
	assert.NotNil(t, summary.FirstMessage)
	assert.NotNil(t, summary.LastMessage)
}

func TestConversationClearHandler(t *testing.T) {
	ts := newTestServer(t)
	seedConversation(t, ts, "student-7", 4)

	rec := ts.do(t, http.MethodDelete, "/api/supervisor/conversation/clear", nil,
		map[string]string{"X-User-ID": "student-7"})

	require.Equal(t, http.StatusOK, rec.Code)

	var resp ClearResponse
	decodeJSON(t, rec, &resp)
	assert.Equal(t, "student-7", resp.UserID)
	assert.Equal(t, "Conversation history cleared", resp.Message)

	history, err := ts.store.History(t.Context(), "student-7", 0)
	require.NoError(t, err)
	assert.Empty(t, history)
}
