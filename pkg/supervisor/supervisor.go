// Package supervisor orchestrates one user turn end to end: conversation
// memory, the clarification gate with its livelock escape, intent
// identification, healthy-agent selection, payload shaping and dispatch.
// Requests from the same user are handled strictly in arrival order.
package supervisor

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/msaleh-12/Multi-Agent-System-BSE-7A-Backend/pkg/config"
	"github.com/msaleh-12/Multi-Agent-System-BSE-7A-Backend/pkg/memory"
	"github.com/msaleh-12/Multi-Agent-System-BSE-7A-Backend/pkg/models"
	"github.com/msaleh-12/Multi-Agent-System-BSE-7A-Backend/pkg/registry"
	"github.com/msaleh-12/Multi-Agent-System-BSE-7A-Backend/pkg/shaper"
)

// Identifier classifies a query against the registry. *intent.Identifier
// is the production implementation.
type Identifier interface {
	IdentifyWithParams(ctx context.Context, query string, history []*models.ConversationMessage, carried map[string]any) *models.IntentResult
}

// Forwarder delivers a shaped request to a worker agent and never returns
// an error: failures come back in-band. *dispatch.Dispatcher is the
// production implementation.
type Forwarder interface {
	Forward(ctx context.Context, agentID, request string, shaped map[string]any) *models.RequestResponse
}

// Prober runs an on-demand liveness probe. *health.Prober is the
// production implementation.
type Prober interface {
	Probe(ctx context.Context, agentID string) (models.AgentStatus, error)
}

// Supervisor is the request entry point of the service. It owns the
// per-user routing state; everything else is injected.
type Supervisor struct {
	registry     *registry.Registry
	store        memory.Store
	identifier   Identifier
	forwarder    Forwarder
	prober       Prober
	config       config.IntentConfig
	historyLimit int

	users *userStates
}

// New assembles the orchestrator around its collaborators. historyLimit
// bounds the turns handed to identification per request.
func New(reg *registry.Registry, store memory.Store, identifier Identifier, forwarder Forwarder, prober Prober, cfg config.IntentConfig, historyLimit int) *Supervisor {
	if historyLimit <= 0 {
		historyLimit = config.DefaultHistoryLimit
	}
	return &Supervisor{
		registry:     reg,
		store:        store,
		identifier:   identifier,
		forwarder:    forwarder,
		prober:       prober,
		config:       cfg,
		historyLimit: historyLimit,
		users:        newUserStates(),
	}
}

// HandleRequest runs the orchestration algorithm for one user message and
// returns the reply to send at HTTP 200. Domain failures (offline agents,
// worker errors, clarifications) come back in-band inside the Outcome; an
// error return means the supervisor itself could not complete the turn.
//
// Exactly one user turn and one assistant turn are appended to memory per
// completed call.
func (s *Supervisor) HandleRequest(ctx context.Context, userID string, req *Request) (*Outcome, error) {
	st := s.users.get(userID)
	st.mu.Lock()
	defer st.mu.Unlock()

	query := strings.TrimSpace(req.Request)

	// History is fetched before the user turn is appended: the
	// identification prompt replays it and then the query itself.
	var history []*models.ConversationMessage
	if req.includeHistory() {
		var err error
		history, err = s.store.History(ctx, userID, s.historyLimit)
		if err != nil {
			return nil, fmt.Errorf("loading conversation history: %w", err)
		}
	}

	if err := s.store.Append(ctx, &models.ConversationMessage{
		UserID:  userID,
		Role:    models.RoleUser,
		Content: req.Request,
	}); err != nil {
		return nil, fmt.Errorf("recording user message: %w", err)
	}

	clarifications := countClarifications(history)
	res := s.resolveIntent(ctx, userID, query, history, req, st, clarifications)

	if res.IsAmbiguous {
		slog.Info("Query is ambiguous, requesting clarification",
			"user_id", userID, "attempt", clarifications+1)
		envelope := s.clarificationEnvelope(res, clarifications)
		if err := s.appendAssistant(ctx, userID, clarificationContent(envelope.Message), "", clarificationInfo(res)); err != nil {
			return nil, err
		}
		st.params = res.ExtractedParams
		return &Outcome{Clarification: envelope}, nil
	}

	selected, primaryStatus := s.selectAgent(ctx, res)
	if selected == "" {
		slog.Warn("No healthy agent for request",
			"user_id", userID, "identified_agent", res.AgentID, "alternatives", len(res.AlternativeAgents))
		resp := s.offlineResponse(res, primaryStatus, len(history))
		if err := s.appendAssistant(ctx, userID, resp.Response, res.AgentID, intentInfo(res)); err != nil {
			return nil, err
		}
		st.params = res.ExtractedParams
		return &Outcome{Response: resp}, nil
	}
	if selected != res.AgentID {
		slog.Info("Primary agent not healthy, using alternative",
			"identified_agent", res.AgentID, "selected_agent", selected)
	}

	slog.Info("Forwarding request to agent",
		"user_id", userID, "agent_id", selected, "confidence", res.Confidence)
	shaped := shaper.Shape(selected, query, res.ExtractedParams)
	resp := s.forwarder.Forward(ctx, selected, query, shaped)

	if ctx.Err() != nil {
		// The caller is gone; a partial outcome must not become an
		// assistant turn.
		return nil, ctx.Err()
	}

	if resp.Error != nil && resp.Error.Code == models.ErrCodeClarificationNeeded {
		slog.Info("Agent requested clarification", "agent_id", selected, "user_id", userID)
		envelope := s.workerClarification(resp, res, clarifications)
		if err := s.appendAssistant(ctx, userID, clarificationContent(envelope.Message), selected, clarificationInfo(res)); err != nil {
			return nil, err
		}
		st.params = res.ExtractedParams
		return &Outcome{Clarification: envelope}, nil
	}

	s.mergeMetadata(resp, res, len(history))
	if err := s.appendAssistant(ctx, userID, resp.Response, resp.AgentID, intentInfo(res)); err != nil {
		return nil, err
	}

	st.currentAgentID = selected
	st.params = res.ExtractedParams
	return &Outcome{Response: resp}, nil
}

// resolveIntent produces the routing decision for the turn. The livelock
// escape and the explicit-agent pin both bypass the oracle; everything
// else goes through identification with the accumulated parameters as
// carried context.
func (s *Supervisor) resolveIntent(ctx context.Context, userID, query string, history []*models.ConversationMessage, req *Request, st *userState, clarifications int) *models.IntentResult {
	carried := mergeParams(st.params, req.Parameters)

	if clarifications >= s.config.MaxClarifications {
		slog.Warn("Clarification cap reached, forcing general assistant",
			"user_id", userID, "clarifications", clarifications)
		return &models.IntentResult{
			AgentID:         registry.FallbackAgentID,
			Confidence:      0.5,
			Reasoning:       "Query remains unclear after multiple clarification attempts. Using general assistant.",
			ExtractedParams: carried,
		}
	}

	if pinned := registry.NormalizeID(req.AgentID); pinned != "" && !req.autoRoute() {
		if _, ok := s.registry.Get(pinned); ok {
			slog.Info("Explicit agent requested", "user_id", userID, "agent_id", pinned)
			return &models.IntentResult{
				AgentID:         pinned,
				Confidence:      1.0,
				Reasoning:       "Explicit agent requested by caller.",
				ExtractedParams: carried,
			}
		}
		slog.Warn("Pinned agent not in registry, falling back to identification",
			"user_id", userID, "agent_id", req.AgentID)
	}

	return s.identifier.IdentifyWithParams(ctx, query, history, carried)
}

// selectAgent picks the agent to dispatch to: the identified primary when
// healthy, otherwise the first healthy alternative. When nothing is cached
// healthy each candidate gets one live probe, which covers the window
// right after startup while statuses are still unknown. Returns the empty
// string when every candidate is down, along with the primary's status
// for the offline message.
func (s *Supervisor) selectAgent(ctx context.Context, res *models.IntentResult) (string, models.AgentStatus) {
	candidates := make([]string, 0, 1+len(res.AlternativeAgents))
	seen := make(map[string]bool)
	for _, id := range append([]string{res.AgentID}, res.AlternativeAgents...) {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		candidates = append(candidates, id)
	}

	primaryStatus := models.AgentStatusUnknown
	for i, id := range candidates {
		desc, ok := s.registry.Get(id)
		if !ok {
			continue
		}
		if i == 0 {
			primaryStatus = desc.Status
		}
		if desc.Status == models.AgentStatusHealthy {
			return id, primaryStatus
		}
	}

	for _, id := range candidates {
		if status, err := s.prober.Probe(ctx, id); err == nil && status == models.AgentStatusHealthy {
			return id, primaryStatus
		}
	}
	return "", primaryStatus
}

// offlineResponse is the chat-style reply when no candidate agent is
// reachable. It is a normal assistant message with an in-band error, not
// an HTTP failure.
func (s *Supervisor) offlineResponse(res *models.IntentResult, status models.AgentStatus, historyLen int) *models.RequestResponse {
	message := fmt.Sprintf("Agent %s is currently %s. No healthy alternatives available.", res.AgentID, status)
	resp := &models.RequestResponse{
		Response:  message,
		AgentID:   res.AgentID,
		Timestamp: time.Now().UTC(),
		Error: &models.ErrorInfo{
			Code:    models.ErrCodeAgentOffline,
			Message: message,
		},
	}
	s.mergeMetadata(resp, res, historyLen)
	return resp
}

// mergeMetadata layers the identification outcome onto whatever the
// dispatcher reported. identified_agent is the agent the oracle picked;
// resp.AgentID is the one that actually served the request, and the two
// differ when an alternative stood in for an offline primary.
func (s *Supervisor) mergeMetadata(resp *models.RequestResponse, res *models.IntentResult, historyLen int) {
	if resp.Metadata == nil {
		resp.Metadata = map[string]any{}
	}
	var name string
	if desc, ok := s.registry.Get(res.AgentID); ok {
		name = desc.Name
	}
	resp.Metadata[models.MetaIdentifiedAgent] = res.AgentID
	resp.Metadata[models.MetaAgentName] = name
	resp.Metadata[models.MetaConfidence] = res.Confidence
	resp.Metadata[models.MetaReasoning] = res.Reasoning
	resp.Metadata[models.MetaExtractedParams] = res.ExtractedParams
	resp.Metadata[models.MetaConversationLength] = historyLen
}

func (s *Supervisor) appendAssistant(ctx context.Context, userID, content, agentID string, info map[string]any) error {
	err := s.store.Append(ctx, &models.ConversationMessage{
		UserID:     userID,
		Role:       models.RoleAssistant,
		Content:    content,
		AgentID:    agentID,
		IntentInfo: info,
	})
	if err != nil {
		return fmt.Errorf("recording assistant message: %w", err)
	}
	return nil
}

// Identify runs intent classification without touching memory and without
// dispatching. It backs the standalone identify-intent endpoint.
func (s *Supervisor) Identify(ctx context.Context, query string, history []*models.ConversationMessage) *models.IntentResult {
	return s.identifier.IdentifyWithParams(ctx, query, history, nil)
}

// ClearConversation wipes the user's stored history together with the
// cross-turn routing state, so the next request starts from scratch.
func (s *Supervisor) ClearConversation(ctx context.Context, userID string) error {
	if err := s.store.Clear(ctx, userID); err != nil {
		return err
	}
	s.users.reset(userID)
	return nil
}
