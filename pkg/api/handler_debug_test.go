package api

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/msaleh-12/Multi-Agent-System-BSE-7A-Backend/pkg/dispatch"
)

func TestDebugEndpointHiddenWithoutToken(t *testing.T) {
	ts := newTestServer(t)
	ts.debugStore.Record("adaptive_quiz_master_agent", http.StatusOK, []byte(`{"ok":true}`))

	// SUPERVISOR_DEBUG_TOKEN_TEST is unset, so the endpoint plays dead.
	rec := ts.do(t, http.MethodGet, "/api/supervisor/debug/last-agent-response", nil, nil)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDebugEndpointRequiresBearerToken(t *testing.T) {
	t.Setenv("SUPERVISOR_DEBUG_TOKEN_TEST", "s3cret")
	ts := newTestServer(t)
	ts.debugStore.Record("adaptive_quiz_master_agent", http.StatusOK, []byte(`{"ok":true}`))

	t.Run("missing token", func(t *testing.T) {
		rec := ts.do(t, http.MethodGet, "/api/supervisor/debug/last-agent-response", nil, nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("wrong token", func(t *testing.T) {
		rec := ts.do(t, http.MethodGet, "/api/supervisor/debug/last-agent-response", nil,
			map[string]string{"Authorization": "Bearer nope"})
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("valid token returns captures", func(t *testing.T) {
		rec := ts.do(t, http.MethodGet, "/api/supervisor/debug/last-agent-response", nil,
			map[string]string{"Authorization": "Bearer s3cret"})

		require.Equal(t, http.StatusOK, rec.Code)

		var all map[string]dispatch.DebugEntry
		decodeJSON(t, rec, &all)
		assert.Contains(t, all, "adaptive_quiz_master_agent")
	})
}

func TestDebugEndpointSingleAgent(t *testing.T) {
	t.Setenv("SUPERVISOR_DEBUG_TOKEN_TEST", "s3cret")
	ts := newTestServer(t)
	ts.debugStore.Record("research_scout_agent", http.StatusBadGateway, []byte("upstream blew up"))
	auth := map[string]string{"Authorization": "Bearer s3cret"}

	t.Run("captured agent", func(t *testing.T) {
		rec := ts.do(t, http.MethodGet,
			"/api/supervisor/debug/last-agent-response?agent_id=research_scout_agent", nil, auth)

		require.Equal(t, http.StatusOK, rec.Code)

		var entry dispatch.DebugEntry
		decodeJSON(t, rec, &entry)
		assert.Equal(t, http.StatusBadGateway, entry.StatusCode)
	})

	t.Run("uncaptured agent", func(t *testing.T) {
		rec := ts.do(t, http.MethodGet,
			"/api/supervisor/debug/last-agent-response?agent_id=assignment_coach_agent", nil, auth)

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestDebugEndpointEmptyStore(t *testing.T) {
	t.Setenv("SUPERVISOR_DEBUG_TOKEN_TEST", "s3cret")
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodGet, "/api/supervisor/debug/last-agent-response", nil,
		map[string]string{"Authorization": "Bearer s3cret"})

	assert.Equal(t, http.StatusNotFound, rec.Code)
}
