package health

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/msaleh-12/Multi-Agent-System-BSE-7A-Backend/pkg/config"
	"github.com/msaleh-12/Multi-Agent-System-BSE-7A-Backend/pkg/models"
	"github.com/msaleh-12/Multi-Agent-System-BSE-7A-Backend/pkg/registry"
)

func probeConfig() config.ProbeConfig {
	return config.ProbeConfig{
		Interval: 50 * time.Millisecond, // Fast for tests
		Timeout:  2 * time.Second,
	}
}

func registryWith(agents ...*models.AgentDescriptor) *registry.Registry {
	return registry.New(agents)
}

func TestProbeHealthyAgent(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/health", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status": "healthy"}`))
	}))
	defer ts.Close()

	reg := registryWith(&models.AgentDescriptor{
		ID: "adaptive_quiz_master_agent", Name: "Quiz", URL: ts.URL,
	})
	p := NewProber(reg, probeConfig(), nil)

	status, err := p.Probe(context.Background(), "adaptive_quiz_master_agent")
	require.NoError(t, err)
	assert.Equal(t, models.AgentStatusHealthy, status)
	assert.Equal(t, models.AgentStatusHealthy, reg.Status("adaptive_quiz_master_agent"))
}

func TestProbeOfflineVariants(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "non-200 status",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
			},
		},
		{
			name: "wrong body status",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`{"status": "degraded"}`))
			},
		},
		{
			name: "non-JSON body",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte("OK"))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := httptest.NewServer(tt.handler)
			defer ts.Close()

			reg := registryWith(&models.AgentDescriptor{
				ID: "research_scout_agent", Name: "Scout", URL: ts.URL,
			})
			p := NewProber(reg, probeConfig(), nil)

			status, err := p.Probe(context.Background(), "research_scout_agent")
			require.NoError(t, err)
			assert.Equal(t, models.AgentStatusOffline, status)
		})
	}
}

func TestProbeUnreachableAgent(t *testing.T) {
	// Closed server: connection refused.
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := ts.URL
	ts.Close()

	reg := registryWith(&models.AgentDescriptor{
		ID: "assignment_coach_agent", Name: "Coach", URL: url,
	})
	p := NewProber(reg, probeConfig(), nil)

	status, err := p.Probe(context.Background(), "assignment_coach_agent")
	require.NoError(t, err)
	assert.Equal(t, models.AgentStatusOffline, status)
}

func TestProbeTimeout(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(300 * time.Millisecond)
		_, _ = w.Write([]byte(`{"status": "healthy"}`))
	}))
	defer ts.Close()

	reg := registryWith(&models.AgentDescriptor{
		ID: "plagiarism_prevention_agent", Name: "Checker", URL: ts.URL,
	})
	cfg := probeConfig()
	cfg.Timeout = 50 * time.Millisecond
	p := NewProber(reg, cfg, nil)

	status, err := p.Probe(context.Background(), "plagiarism_prevention_agent")
	require.NoError(t, err)
	assert.Equal(t, models.AgentStatusOffline, status)
}

func TestProbeUnknownAgent(t *testing.T) {
	p := NewProber(registryWith(), probeConfig(), nil)

	_, err := p.Probe(context.Background(), "nonexistent_agent")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAgentNotFound)
}

func TestProbeAllUpdatesEveryAgent(t *testing.T) {
	healthy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status": "healthy"}`))
	}))
	defer healthy.Close()

	broken := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer broken.Close()

	reg := registryWith(
		&models.AgentDescriptor{ID: "adaptive_quiz_master_agent", Name: "Quiz", URL: healthy.URL},
		&models.AgentDescriptor{ID: "research_scout_agent", Name: "Scout", URL: broken.URL},
	)
	p := NewProber(reg, probeConfig(), nil)

	p.ProbeAll(context.Background())

	assert.Equal(t, models.AgentStatusHealthy, reg.Status("adaptive_quiz_master_agent"))
	assert.Equal(t, models.AgentStatusOffline, reg.Status("research_scout_agent"))
}

func TestProbeNotifiesOnStatusChange(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status": "healthy"}`))
	}))
	defer ts.Close()

	reg := registryWith(&models.AgentDescriptor{
		ID: "adaptive_quiz_master_agent", Name: "Quiz", URL: ts.URL,
	})

	var mu sync.Mutex
	type transition struct {
		agentID  string
		old, new models.AgentStatus
	}
	var transitions []transition

	p := NewProber(reg, probeConfig(), func(agentID string, oldStatus, newStatus models.AgentStatus) {
		mu.Lock()
		defer mu.Unlock()
		transitions = append(transitions, transition{agentID, oldStatus, newStatus})
	})

	// unknown -> healthy fires the callback.
	_, err := p.Probe(context.Background(), "adaptive_quiz_master_agent")
	require.NoError(t, err)

	// healthy -> healthy must not fire again.
	_, err = p.Probe(context.Background(), "adaptive_quiz_master_agent")
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, transitions, 1)
	assert.Equal(t, "adaptive_quiz_master_agent", transitions[0].agentID)
	assert.Equal(t, models.AgentStatusUnknown, transitions[0].old)
	assert.Equal(t, models.AgentStatusHealthy, transitions[0].new)
}

func TestProberStartStop(t *testing.T) {
	var mu sync.Mutex
	hits := 0
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		hits++
		mu.Unlock()
		_, _ = w.Write([]byte(`{"status": "healthy"}`))
	}))
	defer ts.Close()

	reg := registryWith(&models.AgentDescriptor{
		ID: "adaptive_quiz_master_agent", Name: "Quiz", URL: ts.URL,
	})
	p := NewProber(reg, probeConfig(), nil)

	p.Start(context.Background())
	// Second Start is a no-op.
	p.Start(context.Background())

	require.Eventually(t, func() bool {
		return reg.Status("adaptive_quiz_master_agent") == models.AgentStatusHealthy
	}, 2*time.Second, 10*time.Millisecond)

	p.Stop()

	mu.Lock()
	afterStop := hits
	mu.Unlock()

	// No more probes after Stop returns.
	time.Sleep(150 * time.Millisecond)
	mu.Lock()
	assert.Equal(t, afterStop, hits)
	mu.Unlock()

	// Prober is restartable after Stop.
	p.Start(context.Background())
	p.Stop()
}
