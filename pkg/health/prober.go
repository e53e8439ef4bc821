// Package health keeps the registry's agent statuses current by probing
// each worker's /health endpoint in the background and on demand.
package health

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/msaleh-12/Multi-Agent-System-BSE-7A-Backend/pkg/config"
	"github.com/msaleh-12/Multi-Agent-System-BSE-7A-Backend/pkg/models"
	"github.com/msaleh-12/Multi-Agent-System-BSE-7A-Backend/pkg/registry"
)

// ErrAgentNotFound is returned by Probe for ids missing from the registry.
var ErrAgentNotFound = errors.New("agent not found")

// maxHealthBody caps how much of a worker's health response is read.
const maxHealthBody = 64 * 1024

// StatusChangedFunc is invoked after a probe flips an agent's cached
// status. Callbacks must be fast; they run on the prober goroutine.
type StatusChangedFunc func(agentID string, oldStatus, newStatus models.AgentStatus)

// Prober periodically checks worker agent health.
// Runs a background goroutine that fans out GET /health probes on a fixed
// interval. Probe failures never surface to users; they only update the
// cached status in the registry.
type Prober struct {
	registry *registry.Registry
	client   *http.Client

	interval time.Duration
	timeout  time.Duration

	onChange StatusChangedFunc

	cancel context.CancelFunc
	done   chan struct{}
	logger *slog.Logger
}

// NewProber creates a health prober. onChange may be nil.
func NewProber(reg *registry.Registry, cfg config.ProbeConfig, onChange StatusChangedFunc) *Prober {
	return &Prober{
		registry: reg,
		client:   &http.Client{},
		interval: cfg.Interval,
		timeout:  cfg.Timeout,
		onChange: onChange,
		logger:   slog.Default(),
	}
}

// Start launches the background probe loop.
// Calling Start on an already-running prober is a no-op.
func (p *Prober) Start(ctx context.Context) {
	if p.cancel != nil {
		return // already started
	}
	ctx, p.cancel = context.WithCancel(ctx)
	p.done = make(chan struct{})

	go p.loop(ctx)
}

// Stop gracefully shuts down the prober.
// After Stop returns, Start may be called again.
func (p *Prober) Stop() {
	if p.cancel != nil {
		p.cancel()
	}
	if p.done != nil {
		<-p.done
	}

	// Reset so Start can be called again.
	p.cancel = nil
	p.done = nil
}

func (p *Prober) loop(ctx context.Context) {
	defer close(p.done)

	// Run first sweep immediately so statuses leave "unknown" fast.
	p.ProbeAll(ctx)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			// ProbeAll runs synchronously here, so a new tick never
			// overlaps a sweep still in flight.
			p.ProbeAll(ctx)
		}
	}
}

// ProbeAll probes every registered agent concurrently and updates the
// registry. The registry snapshot is taken up front; no lock is held
// while network I/O runs.
func (p *Prober) ProbeAll(ctx context.Context) {
	agents := p.registry.List()

	g, ctx := errgroup.WithContext(ctx)
	for _, agent := range agents {
		g.Go(func() error {
			status := p.probeOne(ctx, agent.ID, agent.URL)
			p.record(agent.ID, status)
			return nil
		})
	}
	// Probes never return errors; Wait is just the join point.
	_ = g.Wait()
}

// Probe issues an on-demand probe for a single agent and returns the
// fresh status. Used by the dispatcher before a call when the cached
// status is not healthy, and by the health API endpoint.
func (p *Prober) Probe(ctx context.Context, agentID string) (models.AgentStatus, error) {
	agent, ok := p.registry.Get(agentID)
	if !ok {
		return models.AgentStatusUnknown, fmt.Errorf("%w: %s", ErrAgentNotFound, agentID)
	}

	status := p.probeOne(ctx, agent.ID, agent.URL)
	p.record(agent.ID, status)
	return status, nil
}

// probeOne performs one GET {url}/health with the configured timeout.
// HTTP 200 with body {"status":"healthy"} means healthy; anything else,
// including transport errors, means offline.
func (p *Prober) probeOne(ctx context.Context, agentID, baseURL string) models.AgentStatus {
	probeCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	url := strings.TrimSuffix(baseURL, "/") + "/health"
	req, err := http.NewRequestWithContext(probeCtx, http.MethodGet, url, nil)
	if err != nil {
		p.logger.Debug("Health probe request build failed", "agent", agentID, "error", err)
		return models.AgentStatusOffline
	}

	resp, err := p.client.Do(req)
	if err != nil {
		p.logger.Debug("Health probe failed", "agent", agentID, "error", err)
		return models.AgentStatusOffline
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		p.logger.Debug("Health probe returned non-200", "agent", agentID, "status_code", resp.StatusCode)
		return models.AgentStatusOffline
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxHealthBody))
	if err != nil {
		p.logger.Debug("Health probe body read failed", "agent", agentID, "error", err)
		return models.AgentStatusOffline
	}

	var payload struct {
		Status string `json:"status"`
	}
	if err := json.Unmarshal(body, &payload); err != nil || payload.Status != "healthy" {
		return models.AgentStatusOffline
	}

	return models.AgentStatusHealthy
}

func (p *Prober) record(agentID string, status models.AgentStatus) {
	old, changed := p.registry.SetStatus(agentID, status)
	if !changed {
		return
	}

	p.logger.Info("Agent status changed",
		"agent", agentID,
		"old_status", old,
		"new_status", status)

	if p.onChange != nil {
		p.onChange(agentID, old, status)
	}
}
