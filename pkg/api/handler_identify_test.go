package api

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/msaleh-12/Multi-Agent-System-BSE-7A-Backend/pkg/models"
)

func TestIdentifyIntentHandler(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/api/supervisor/identify-intent",
		map[string]any{
			"request": "Generate a quiz about Python",
			"conversation_history": []map[string]string{
				{"role": "user", "content": "I am studying for finals"},
				{"role": "assistant", "content": "What subject?"},
				{"role": "system", "content": "ignored"},
			},
		}, nil)

	require.Equal(t, http.StatusOK, rec.Code)

	var res models.IntentResult
	decodeJSON(t, rec, &res)
	assert.Equal(t, "adaptive_quiz_master_agent", res.AgentID)
	assert.InDelta(t, 0.93, res.Confidence, 1e-9)

	// Identification is a dry run: no memory writes for any user.
	history, err := ts.store.History(t.Context(), "default_user", 0)
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestIdentifyIntentHandlerRejectsMalformedBody(t *testing.T) {
	ts := newTestServer(t)

	req, rec := jsonRequest(http.MethodPost, "/api/supervisor/identify-intent", `{"request": 42`)
	ts.echo.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
