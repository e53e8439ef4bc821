// Package intent decides which worker agent should handle a user
// request. An LLM oracle does the classification; keyword matching
// against registry descriptors takes over whenever the oracle fails.
package intent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/msaleh-12/Multi-Agent-System-BSE-7A-Backend/pkg/config"
	"github.com/msaleh-12/Multi-Agent-System-BSE-7A-Backend/pkg/llm"
	"github.com/msaleh-12/Multi-Agent-System-BSE-7A-Backend/pkg/models"
	"github.com/msaleh-12/Multi-Agent-System-BSE-7A-Backend/pkg/registry"
)

// Generator produces a completion for a classification conversation.
// *llm.Client is the production implementation.
type Generator interface {
	Generate(ctx context.Context, messages []llm.Message) (string, error)
}

// Identifier maps user requests onto registry agents.
type Identifier struct {
	registry  *registry.Registry
	generator Generator
	config    config.IntentConfig
}

// NewIdentifier creates an identifier backed by the given oracle.
func NewIdentifier(reg *registry.Registry, gen Generator, cfg config.IntentConfig) *Identifier {
	return &Identifier{
		registry:  reg,
		generator: gen,
		config:    cfg,
	}
}

// Identify classifies one query against the registry. It never returns
// an error: oracle failures degrade to keyword routing, and an empty
// query becomes a clarification request.
func (i *Identifier) Identify(ctx context.Context, query string, history []*models.ConversationMessage) *models.IntentResult {
	return i.IdentifyWithParams(ctx, query, history, nil)
}

// IdentifyWithParams is Identify with parameters remembered from earlier
// turns of the same conversation. Carried values count toward the
// required-parameter check and travel on the result, so a topic named
// three turns ago keeps satisfying an agent that needs one. This turn's
// extractions win on conflict.
func (i *Identifier) IdentifyWithParams(ctx context.Context, query string, history []*models.ConversationMessage, carried map[string]any) *models.IntentResult {
	query = strings.TrimSpace(query)
	if query == "" {
		return &models.IntentResult{
			Reasoning:           "Empty request",
			IsAmbiguous:         true,
			ClarifyingQuestions: []string{"What would you like help with today?"},
			ExtractedParams:     mergeParams(carried, nil),
		}
	}

	raw, err := i.generator.Generate(ctx, i.buildMessages(query, history))
	if err != nil {
		if errors.Is(err, llm.ErrRateLimited) {
			slog.Warn("Intent oracle rate limited, using keyword routing", "error", err)
			return carryParams(i.keywordFallback(query, true), carried)
		}
		slog.Error("Intent oracle call failed, using keyword routing", "error", err)
		return carryParams(i.keywordFallback(query, false), carried)
	}

	reply, err := parseReply(raw)
	if err != nil {
		slog.Error("Unusable intent oracle reply, using keyword routing", "error", err)
		return carryParams(i.keywordFallback(query, false), carried)
	}

	return i.gate(reply, carried)
}

// gate validates a parsed oracle reply against the registry and applies
// the confidence thresholds. These thresholds and the required-parameter
// check are the only places a reply can be forced into clarification.
func (i *Identifier) gate(reply *oracleReply, carried map[string]any) *models.IntentResult {
	res := &models.IntentResult{
		AgentID:             registry.NormalizeID(reply.AgentID),
		Confidence:          clamp01(reply.Confidence),
		Reasoning:           reply.Reasoning,
		IsAmbiguous:         reply.Status == models.IntentStatusClarificationNeeded,
		ClarifyingQuestions: reply.questions,
		ExtractedParams:     mergeParams(carried, reply.ExtractedParams),
		AlternativeAgents:   i.knownAlternatives(reply.AlternativeAgents),
	}

	if res.AgentID == "" {
		res.IsAmbiguous = true
	} else if _, ok := i.registry.Get(res.AgentID); !ok {
		slog.Warn("Intent oracle picked an unregistered agent", "agent_id", res.AgentID)
		res.AgentID = registry.FallbackAgentID
		res.Confidence = 0.5
		res.Reasoning += " (Original agent not found in registry, using fallback)"
	}

	if missing := i.missingRequired(res.AgentID, res.ExtractedParams); len(missing) > 0 {
		res.IsAmbiguous = true
		if len(res.ClarifyingQuestions) == 0 {
			res.ClarifyingQuestions = missingParamQuestions(missing)
		}
	}

	if res.Confidence < i.config.MinConfidence {
		res.IsAmbiguous = true
		if len(res.ClarifyingQuestions) == 0 {
			res.ClarifyingQuestions = defaultClarifyingQuestions()
		}
	}

	return res
}

// missingRequired lists required parameters of agentID that are absent,
// null or blank in params.
func (i *Identifier) missingRequired(agentID string, params map[string]any) []string {
	desc, ok := i.registry.Get(agentID)
	if !ok {
		return nil
	}

	var missing []string
	for _, name := range desc.RequiredParams {
		if !paramPresent(params[name]) {
			missing = append(missing, name)
		}
	}
	return missing
}

// mergeParams overlays fresh onto a copy of carried. The result is a
// new, never-nil map; neither input is mutated.
func mergeParams(carried, fresh map[string]any) map[string]any {
	merged := make(map[string]any, len(carried)+len(fresh))
	for k, v := range carried {
		merged[k] = v
	}
	for k, v := range fresh {
		merged[k] = v
	}
	return merged
}

func carryParams(res *models.IntentResult, carried map[string]any) *models.IntentResult {
	res.ExtractedParams = mergeParams(carried, res.ExtractedParams)
	return res
}

// paramPresent treats absent keys, JSON null, blank strings and empty
// lists as missing.
func paramPresent(v any) bool {
	switch value := v.(type) {
	case nil:
		return false
	case string:
		return strings.TrimSpace(value) != ""
	case []any:
		return len(value) > 0
	default:
		return true
	}
}

// knownAlternatives normalizes suggested alternates and drops anything
// the registry does not know, preserving order and removing duplicates.
func (i *Identifier) knownAlternatives(ids []string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, id := range ids {
		id = registry.NormalizeID(id)
		if id == "" || seen[id] {
			continue
		}
		if _, ok := i.registry.Get(id); !ok {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

// oracleReply mirrors the JSON object the classification prompt demands.
// clarifying_questions is loosely typed because models sometimes emit
// {"question": "..."} objects instead of plain strings.
type oracleReply struct {
	Status              string         `json:"status"`
	AgentID             string         `json:"agent_id"`
	Confidence          float64        `json:"confidence"`
	Reasoning           string         `json:"reasoning"`
	ExtractedParams     map[string]any `json:"extracted_params"`
	ClarifyingQuestions []any          `json:"clarifying_questions"`
	AlternativeAgents   []string       `json:"alternative_agents"`

	questions []string
}

func parseReply(raw string) (*oracleReply, error) {
	var reply oracleReply
	if err := json.Unmarshal([]byte(stripFences(raw)), &reply); err != nil {
		return nil, fmt.Errorf("reply is not valid JSON: %w", err)
	}

	switch reply.Status {
	case models.IntentStatusReadyToRoute, models.IntentStatusClarificationNeeded:
	default:
		return nil, fmt.Errorf("invalid status %q", reply.Status)
	}

	if reply.ExtractedParams == nil {
		reply.ExtractedParams = map[string]any{}
	}
	reply.questions = normalizeQuestions(reply.ClarifyingQuestions)
	return &reply, nil
}

// stripFences unwraps a markdown code fence when the model ignores the
// JSON-only instruction.
func stripFences(raw string) string {
	raw = strings.TrimSpace(raw)
	if !strings.Contains(raw, "```") {
		return raw
	}

	parts := strings.SplitN(raw, "```", 3)
	if len(parts) < 2 {
		return raw
	}
	inner := strings.TrimPrefix(parts[1], "json")
	return strings.TrimSpace(inner)
}

// normalizeQuestions flattens the mixed string/object forms models emit
// into plain strings.
func normalizeQuestions(raw []any) []string {
	var out []string
	for _, item := range raw {
		switch q := item.(type) {
		case string:
			if q = strings.TrimSpace(q); q != "" {
				out = append(out, q)
			}
		case map[string]any:
			for _, key := range []string{"question", "text", "message"} {
				if s, ok := q[key].(string); ok && strings.TrimSpace(s) != "" {
					out = append(out, strings.TrimSpace(s))
					break
				}
			}
		default:
			if item != nil {
				out = append(out, fmt.Sprintf("%v", item))
			}
		}
	}
	return out
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// defaultClarifyingQuestions cover a low-confidence reply that arrived
// without questions of its own.
func defaultClarifyingQuestions() []string {
	return []string{
		"Could you provide more details about what you need help with?",
		"What subject or topic are you working on?",
		"What is your main goal right now?",
	}
}

// paramQuestions phrases a concrete question for each required
// parameter in the fleet.
var paramQuestions = map[string]string{
	"topic":            "What topic would you like me to focus on? (e.g., Python, Calculus, World History)",
	"num_questions":    "How many questions would you like?",
	"task_description": "Can you describe the assignment or task you need help with?",
	"text_content":     "Please paste the text you would like me to check.",
	"team_members":     "Who is on your team? Please list the member names.",
	"discussion_logs":  "Please share the team discussion messages you want analyzed.",
	"subject":          "What subject is this for?",
	"assessment_type":  "What kind of assessment do you want: a quiz, an exam, or an assignment?",
	"difficulty":       "What difficulty level would you like: easy, medium, or hard?",
	"question_count":   "How many questions should it have?",
}

func missingParamQuestions(missing []string) []string {
	out := make([]string, 0, len(missing))
	for _, name := range missing {
		if q, ok := paramQuestions[name]; ok {
			out = append(out, q)
			continue
		}
		out = append(out, fmt.Sprintf("Could you provide a value for %q?", name))
	}
	return out
}
