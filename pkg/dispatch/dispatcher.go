// Package dispatch forwards shaped requests to worker agents over HTTP
// and normalizes whatever comes back into a RequestResponse. Workers
// answer in-band: transport failures, worker errors and clarification
// requests all surface as structured error codes, never as exceptions
// to the caller.
package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/msaleh-12/Multi-Agent-System-BSE-7A-Backend/pkg/config"
	"github.com/msaleh-12/Multi-Agent-System-BSE-7A-Backend/pkg/models"
	"github.com/msaleh-12/Multi-Agent-System-BSE-7A-Backend/pkg/registry"
)

// taskName is the operation requested from every worker.
const taskName = "process_request"

// researchAgentID gets structured paper rendering on success.
const researchAgentID = "research_scout_agent"

// maxReportBody caps how much of a worker response is read.
const maxReportBody = 4 << 20

// Prober re-checks an agent's liveness on demand. *health.Prober is the
// production implementation.
type Prober interface {
	Probe(ctx context.Context, agentID string) (models.AgentStatus, error)
}

// StatusChangedFunc is invoked when a dispatch failure changes an
// agent's cached status.
type StatusChangedFunc func(agentID string, oldStatus, newStatus models.AgentStatus)

// Dispatcher owns the supervisor side of the worker protocol: envelope
// construction, the single retry, response repair and normalization.
type Dispatcher struct {
	registry   *registry.Registry
	prober     Prober
	config     config.DispatchConfig
	debug      *DebugStore
	httpClient *http.Client
	onChange   StatusChangedFunc
	logger     *slog.Logger
}

// NewDispatcher creates a dispatcher. onChange may be nil.
func NewDispatcher(reg *registry.Registry, prober Prober, cfg config.DispatchConfig, onChange StatusChangedFunc) *Dispatcher {
	return &Dispatcher{
		registry:   reg,
		prober:     prober,
		config:     cfg,
		debug:      NewDebugStore(),
		httpClient: &http.Client{Timeout: cfg.Timeout},
		onChange:   onChange,
		logger:     slog.Default(),
	}
}

// Debug exposes the raw-response store for the debug endpoint.
func (d *Dispatcher) Debug() *DebugStore {
	return d.debug
}

// Forward sends a shaped request to agentID and returns the normalized
// outcome. It never returns an error: every failure mode becomes a
// RequestResponse with an error code and human-readable text.
func (d *Dispatcher) Forward(ctx context.Context, agentID, request string, shaped map[string]any) *models.RequestResponse {
	agent, ok := d.registry.Get(agentID)
	if !ok {
		return errorResponse(agentID, models.ErrCodeAgentNotFound,
			fmt.Sprintf("Agent %s is not registered.", agentID))
	}

	// A stale offline flag must not block a worker that just came back.
	if agent.Status != models.AgentStatusHealthy {
		d.logger.Warn("Agent not marked healthy, re-probing before dispatch",
			"agent", agent.ID, "cached_status", agent.Status)
		status, err := d.prober.Probe(ctx, agent.ID)
		if err != nil || status != models.AgentStatusHealthy {
			return errorResponse(agent.ID, models.ErrCodeAgentUnavailable,
				fmt.Sprintf("%s is offline right now. Please try again in a moment.", agent.Name))
		}
	}

	envelope := models.NewTaskEnvelope(agent.ID, taskName, envelopeParameters(request, shaped))

	started := time.Now()
	statusCode, body, err := d.send(ctx, agent.URL, envelope)
	if err != nil {
		d.logger.Error("Worker unreachable after retry, marking offline",
			"agent", agent.ID, "error", err)
		d.markOffline(agent.ID)
		return errorResponse(agent.ID, models.ErrCodeCommunicationError,
			fmt.Sprintf("Failed to communicate with agent %s.", agent.ID))
	}
	elapsed := time.Since(started)

	d.debug.Record(agent.ID, statusCode, body)

	report := decodeReport(statusCode, body)
	if report.RelatedMessageID != "" && report.RelatedMessageID != envelope.MessageID {
		d.logger.Warn("Completion report correlates to a different envelope",
			"agent", agent.ID,
			"expected", envelope.MessageID,
			"got", report.RelatedMessageID)
	}

	return d.normalize(agent, report, elapsed)
}

// envelopeParameters picks the body for task.parameters. Shapes that
// already carry the worker-native {agent_name, intent, payload} triple
// travel as-is; everything else is the raw request merged with the
// shaped fields.
func envelopeParameters(request string, shaped map[string]any) map[string]any {
	if hasEnvelopeTriple(shaped) {
		return shaped
	}

	params := map[string]any{"request": request}
	for key, value := range shaped {
		params[key] = value
	}
	return params
}

func hasEnvelopeTriple(shaped map[string]any) bool {
	for _, key := range []string{"agent_name", "intent", "payload"} {
		if _, ok := shaped[key]; !ok {
			return false
		}
	}
	return true
}

// send POSTs the envelope to the worker, retrying exactly once after a
// short pause on transport failure. Worker responses, including non-200
// ones, are returned for repair rather than retried.
func (d *Dispatcher) send(ctx context.Context, baseURL string, envelope *models.TaskEnvelope) (int, []byte, error) {
	payload, err := json.Marshal(envelope)
	if err != nil {
		return 0, nil, fmt.Errorf("encode envelope: %w", err)
	}

	statusCode, body, err := d.post(ctx, baseURL, payload)
	if err == nil {
		return statusCode, body, nil
	}

	d.logger.Warn("Worker call failed, retrying once", "url", baseURL, "error", err)
	select {
	case <-time.After(d.config.RetryDelay):
	case <-ctx.Done():
		return 0, nil, ctx.Err()
	}
	return d.post(ctx, baseURL, payload)
}

func (d *Dispatcher) post(ctx context.Context, baseURL string, payload []byte) (int, []byte, error) {
	url := strings.TrimSuffix(baseURL, "/") + "/process"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return 0, nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("post to %s: %w", url, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxReportBody))
	if err != nil {
		return 0, nil, fmt.Errorf("read worker response: %w", err)
	}
	return resp.StatusCode, body, nil
}

func (d *Dispatcher) markOffline(agentID string) {
	old, changed := d.registry.SetStatus(agentID, models.AgentStatusOffline)
	if changed && d.onChange != nil {
		d.onChange(agentID, old, models.AgentStatusOffline)
	}
}

// normalize maps a repaired completion report onto the response surface:
// clarification first, then success with optional paper rendering, then
// execution error.
func (d *Dispatcher) normalize(agent *models.AgentDescriptor, report *models.CompletionReport, elapsed time.Duration) *models.RequestResponse {
	results := report.Results

	if clarificationRequested(report) {
		return d.clarificationResponse(agent, results, elapsed)
	}

	if report.Status == models.ReportStatusSuccess {
		text := successText(results)
		if agent.ID == researchAgentID {
			if papers, ok := results["papers"].([]any); ok && len(papers) > 0 {
				text = strings.TrimSpace(text + "\n\n" + renderPapers(papers))
			}
		}
		if text == "" {
			text = "The request completed, but the agent returned no content."
		}

		cached, _ := results["cached"].(bool)
		return &models.RequestResponse{
			Response:  text,
			AgentID:   agent.ID,
			Timestamp: time.Now().UTC(),
			Metadata:  metadata(agent.ID, elapsed, cached),
		}
	}

	resp := errorResponse(agent.ID, models.ErrCodeAgentExecutionError, failureMessage(results))
	resp.Metadata = metadata(agent.ID, elapsed, false)
	return resp
}

func (d *Dispatcher) clarificationResponse(agent *models.AgentDescriptor, results map[string]any, elapsed time.Duration) *models.RequestResponse {
	message, _ := results["message"].(string)
	if message == "" {
		message = "I need more information to proceed."
	}

	details := map[string]any{}
	for _, key := range []string{"clarifying_questions", "example", "required_format"} {
		if v := results[key]; v != nil {
			details[key] = v
		}
	}

	return &models.RequestResponse{
		Response:  message,
		AgentID:   agent.ID,
		Timestamp: time.Now().UTC(),
		Error: &models.ErrorInfo{
			Code:    models.ErrCodeClarificationNeeded,
			Message: message,
			Details: details,
		},
		Metadata: metadata(agent.ID, elapsed, false),
	}
}

func metadata(agentID string, elapsed time.Duration, cached bool) map[string]any {
	return map[string]any{
		models.MetaExecutionTimeMS:     elapsed.Milliseconds(),
		models.MetaAgentTrace:          []string{agentID},
		models.MetaParticipatingAgents: []string{agentID},
		models.MetaCached:              cached,
	}
}

func errorResponse(agentID, code, message string) *models.RequestResponse {
	return &models.RequestResponse{
		Response:  message,
		AgentID:   agentID,
		Timestamp: time.Now().UTC(),
		Error: &models.ErrorInfo{
			Code:    code,
			Message: message,
		},
	}
}
