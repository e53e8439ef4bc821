package models

// Intent classification statuses returned by the routing oracle.
const (
	IntentStatusReadyToRoute        = "READY_TO_ROUTE"
	IntentStatusClarificationNeeded = "CLARIFICATION_NEEDED"
)

// IntentResult is the routing decision for one user query.
//
// AgentID is empty when no agent could be determined. When IsAmbiguous is
// set the orchestrator must ask the user the ClarifyingQuestions instead
// of dispatching. RateLimited records that the oracle rejected the call
// with a quota error so downstream components can relax their gating.
type IntentResult struct {
	AgentID             string         `json:"agent_id,omitempty"`
	Confidence          float64        `json:"confidence"`
	Reasoning           string         `json:"reasoning,omitempty"`
	IsAmbiguous         bool           `json:"is_ambiguous"`
	ClarifyingQuestions []string       `json:"clarifying_questions,omitempty"`
	ExtractedParams     map[string]any `json:"extracted_params,omitempty"`
	AlternativeAgents   []string       `json:"alternative_agents,omitempty"`
	RateLimited         bool           `json:"-"`
}
