// Package e2e boots a complete supervisor instance against stub worker
// agents and exercises the public HTTP surface end to end.
package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/msaleh-12/Multi-Agent-System-BSE-7A-Backend/pkg/api"
	"github.com/msaleh-12/Multi-Agent-System-BSE-7A-Backend/pkg/config"
	"github.com/msaleh-12/Multi-Agent-System-BSE-7A-Backend/pkg/dispatch"
	"github.com/msaleh-12/Multi-Agent-System-BSE-7A-Backend/pkg/events"
	"github.com/msaleh-12/Multi-Agent-System-BSE-7A-Backend/pkg/health"
	"github.com/msaleh-12/Multi-Agent-System-BSE-7A-Backend/pkg/intent"
	"github.com/msaleh-12/Multi-Agent-System-BSE-7A-Backend/pkg/memory"
	"github.com/msaleh-12/Multi-Agent-System-BSE-7A-Backend/pkg/models"
	"github.com/msaleh-12/Multi-Agent-System-BSE-7A-Backend/pkg/registry"
	"github.com/msaleh-12/Multi-Agent-System-BSE-7A-Backend/pkg/slack"
	"github.com/msaleh-12/Multi-Agent-System-BSE-7A-Backend/pkg/supervisor"
)

// TestApp boots a complete supervisor instance for e2e testing. The
// oracle is scripted and the worker agents are httptest stubs; everything
// between them — registry, memory, identification, dispatch, the HTTP
// server — is the real thing.
type TestApp struct {
	Config     *config.Config
	Registry   *registry.Registry
	Store      memory.Store
	Oracle     *ScriptedOracle
	Prober     *health.Prober
	Dispatcher *dispatch.Dispatcher
	Supervisor *supervisor.Supervisor
	Server     *api.Server
	Workers    map[string]*WorkerStub

	BaseURL string // e.g. "http://127.0.0.1:54321"
	WSURL   string // e.g. "ws://127.0.0.1:54321/ws"

	t *testing.T
}

// testAppConfig holds options accumulated before creating the TestApp.
type testAppConfig struct {
	cfg          *config.Config
	oracle       *ScriptedOracle
	workers      []*WorkerStub
	slackService *slack.Service
	coldRegistry bool
}

// TestAppOption configures the test app.
type TestAppOption func(*testAppConfig)

// WithConfig sets a custom config.
func WithConfig(cfg *config.Config) TestAppOption {
	return func(c *testAppConfig) { c.cfg = cfg }
}

// WithOracle sets a pre-scripted routing oracle.
func WithOracle(oracle *ScriptedOracle) TestAppOption {
	return func(c *testAppConfig) { c.oracle = oracle }
}

// WithWorkers registers stub worker agents. Their descriptors become the
// registry contents.
func WithWorkers(workers ...*WorkerStub) TestAppOption {
	return func(c *testAppConfig) { c.workers = append(c.workers, workers...) }
}

// WithSlackService injects a Slack notification service into the status
// change path. Used for testing notifications with a mock API server.
func WithSlackService(svc *slack.Service) TestAppOption {
	return func(c *testAppConfig) { c.slackService = svc }
}

// WithColdRegistry skips the initial probe sweep, leaving every agent
// status "unknown" the way a freshly started process sees them.
func WithColdRegistry() TestAppOption {
	return func(c *testAppConfig) { c.coldRegistry = true }
}

// defaultTestConfig returns a config with short timeouts suitable for
// tests. The probe interval is long on purpose: statuses only move when
// a test asks for a probe, never behind its back.
func defaultTestConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{Host: "127.0.0.1", Port: 0},
		Probe: config.ProbeConfig{
			Interval: time.Hour,
			Timeout:  2 * time.Second,
		},
		Intent: config.IntentConfig{
			ConfidenceThreshold: 0.60,
			MinConfidence:       0.40,
			MaxClarifications:   3,
		},
		Memory: config.MemoryConfig{
			Backend:      "memory",
			HistoryLimit: 10,
		},
		Dispatch: config.DispatchConfig{
			Timeout:       5 * time.Second,
			RetryDelay:    10 * time.Millisecond,
			DebugTokenEnv: "SUPERVISOR_E2E_DEBUG_TOKEN",
		},
	}
}

// NewTestApp creates and starts a full supervisor test instance.
// Shutdown is registered via t.Cleanup automatically.
func NewTestApp(t *testing.T, opts ...TestAppOption) *TestApp {
	t.Helper()

	tc := &testAppConfig{}
	for _, opt := range opts {
		opt(tc)
	}
	if tc.cfg == nil {
		tc.cfg = defaultTestConfig()
	}
	if tc.oracle == nil {
		tc.oracle = NewScriptedOracle()
	}
	require.NotEmpty(t, tc.workers, "at least one worker stub is required")

	// 1. Registry from the stub workers' descriptors.
	descriptors := make([]*models.AgentDescriptor, 0, len(tc.workers))
	workers := make(map[string]*WorkerStub, len(tc.workers))
	for _, w := range tc.workers {
		descriptors = append(descriptors, w.Descriptor())
		workers[w.ID] = w
	}
	reg := registry.New(descriptors)

	// 2. Conversation memory.
	store := memory.NewInMemoryStore()

	// 3. Event publishing, wired exactly like production: every status
	// flip is broadcast, and Slack hears about offline/recovered edges.
	broker := events.NewBroker()
	publisher := events.NewPublisher(broker)
	connManager := events.NewConnectionManager(broker, 5*time.Second)

	onStatusChange := func(agentID string, oldStatus, newStatus models.AgentStatus) {
		publisher.PublishAgentStatus(agentID, oldStatus, newStatus)

		if tc.slackService == nil {
			return
		}
		name := agentID
		if desc, ok := reg.Get(agentID); ok {
			name = desc.Name
		}
		ctx := context.Background()
		switch {
		case newStatus == models.AgentStatusOffline:
			tc.slackService.NotifyAgentOffline(ctx, agentID, name)
		case oldStatus == models.AgentStatusOffline && newStatus == models.AgentStatusHealthy:
			tc.slackService.NotifyAgentRecovered(ctx, agentID, name)
		}
	}

	// 4. Health prober. Not started: the loop would race test-controlled
	// status flips, so probes happen on demand only.
	prober := health.NewProber(reg, tc.cfg.Probe, onStatusChange)

	// 5. Dispatcher, identifier, supervisor.
	dispatcher := dispatch.NewDispatcher(reg, prober, tc.cfg.Dispatch, onStatusChange)
	identifier := intent.NewIdentifier(reg, tc.oracle, tc.cfg.Intent)
	sup := supervisor.New(reg, store, identifier, dispatcher, prober, tc.cfg.Intent, tc.cfg.Memory.HistoryLimit)

	// 6. HTTP server on an OS-assigned port.
	server := api.NewServer(tc.cfg, sup, reg, prober, store, dispatcher.Debug(), connManager, nil)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	go func() {
		_ = server.StartWithListener(ln)
	}()
	t.Cleanup(func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	})

	addr := ln.Addr().String()
	app := &TestApp{
		Config:     tc.cfg,
		Registry:   reg,
		Store:      store,
		Oracle:     tc.oracle,
		Prober:     prober,
		Dispatcher: dispatcher,
		Supervisor: sup,
		Server:     server,
		Workers:    workers,
		BaseURL:    fmt.Sprintf("http://%s", addr),
		WSURL:      fmt.Sprintf("ws://%s/ws", addr),
		t:          t,
	}

	// 7. Settle initial health state so cached statuses mirror the stubs.
	if !tc.coldRegistry {
		for id := range workers {
			app.ProbeAgent(t, id)
		}
	}

	return app
}

// ProbeAgent runs one on-demand probe and returns the recorded status.
func (app *TestApp) ProbeAgent(t *testing.T, agentID string) models.AgentStatus {
	t.Helper()
	status, err := app.Prober.Probe(context.Background(), agentID)
	require.NoError(t, err)
	return status
}

// ────────────────────────────────────────────────────────────
// HTTP Client Helpers
// ────────────────────────────────────────────────────────────

// SendRequest posts one chat turn for userID and returns the parsed reply.
func (app *TestApp) SendRequest(t *testing.T, userID, text string) map[string]interface{} {
	t.Helper()
	return app.SendRequestBody(t, userID, map[string]interface{}{"request": text})
}

// SendRequestBody posts a raw request body for userID. Used for explicit
// agent pins and caller-supplied parameters.
func (app *TestApp) SendRequestBody(t *testing.T, userID string, body map[string]interface{}) map[string]interface{} {
	t.Helper()
	return app.postJSON(t, "/api/supervisor/request", userID, body, http.StatusOK)
}

// IdentifyIntent posts to the standalone identification endpoint.
func (app *TestApp) IdentifyIntent(t *testing.T, text string) map[string]interface{} {
	t.Helper()
	return app.postJSON(t, "/api/supervisor/identify-intent", "",
		map[string]interface{}{"request": text}, http.StatusOK)
}

// GetHistory calls GET /api/supervisor/conversation/history for userID.
func (app *TestApp) GetHistory(t *testing.T, userID string) map[string]interface{} {
	t.Helper()
	return app.getJSON(t, "/api/supervisor/conversation/history", userID, http.StatusOK)
}

// GetRegistry calls GET /api/supervisor/registry.
func (app *TestApp) GetRegistry(t *testing.T) map[string]interface{} {
	t.Helper()
	return app.getJSON(t, "/api/supervisor/registry", "", http.StatusOK)
}

// GetAgentHealth calls GET /api/supervisor/agent/:id/health, which runs a
// live probe and records the result.
func (app *TestApp) GetAgentHealth(t *testing.T, agentID string) map[string]interface{} {
	t.Helper()
	return app.getJSON(t, "/api/supervisor/agent/"+agentID+"/health", "", http.StatusOK)
}

func (app *TestApp) postJSON(t *testing.T, path, userID string, body interface{}, expectedStatus int) map[string]interface{} {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(context.Background(), http.MethodPost, app.BaseURL+path, reader)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if userID != "" {
		req.Header.Set("X-User-ID", userID)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	require.Equal(t, expectedStatus, resp.StatusCode, "POST %s: unexpected status", path)
	var result map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
	return result
}

func (app *TestApp) getJSON(t *testing.T, path, userID string, expectedStatus int) map[string]interface{} {
	t.Helper()
	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, app.BaseURL+path, nil)
	require.NoError(t, err)
	if userID != "" {
		req.Header.Set("X-User-ID", userID)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	require.Equal(t, expectedStatus, resp.StatusCode, "GET %s: unexpected status", path)
	var result map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
	return result
}

// sub returns m[key] as an object, failing the test when it is absent or
// of another type.
func sub(t *testing.T, m map[string]interface{}, key string) map[string]interface{} {
	t.Helper()
	child, ok := m[key].(map[string]interface{})
	require.True(t, ok, "key %q missing or not an object: %v", key, m[key])
	return child
}
