package models

import "time"

// Error codes surfaced in RequestResponse.Error.Code. All of them travel
// in-band over HTTP 200; 4xx/5xx is reserved for auth failures and
// malformed top-level input.
const (
	ErrCodeAgentNotFound       = "AGENT_NOT_FOUND"
	ErrCodeAgentUnavailable    = "AGENT_UNAVAILABLE"
	ErrCodeAgentOffline        = "AGENT_OFFLINE"
	ErrCodeCommunicationError  = "COMMUNICATION_ERROR"
	ErrCodeAgentExecutionError = "AGENT_EXECUTION_ERROR"
	ErrCodeClarificationNeeded = "CLARIFICATION_NEEDED"
	ErrCodeUnexpectedError     = "UNEXPECTED_ERROR"
)

// Metadata keys populated on RequestResponse.Metadata.
const (
	MetaExecutionTimeMS     = "executionTime_ms"
	MetaAgentTrace          = "agentTrace"
	MetaParticipatingAgents = "participatingAgents"
	MetaCached              = "cached"
	MetaIdentifiedAgent     = "identified_agent"
	MetaAgentName           = "agent_name"
	MetaConfidence          = "confidence"
	MetaReasoning           = "reasoning"
	MetaExtractedParams     = "extracted_params"
	MetaConversationLength  = "conversation_length"
)

// ErrorInfo describes an in-band failure. Details is free-form JSON;
// for clarification errors it carries clarifying_questions, example and
// required_format from the worker.
type ErrorInfo struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// RequestResponse is the normalized reply to the caller for a routed
// request. Response always holds human-readable text, even on errors.
type RequestResponse struct {
	Response  string         `json:"response"`
	AgentID   string         `json:"agent_id,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
	Error     *ErrorInfo     `json:"error,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// ClarificationStatus is the status value of a clarification envelope.
const ClarificationStatus = "clarification_needed"

// ClarificationEnvelope is returned instead of a RequestResponse when the
// supervisor needs more information before it can route. HTTP status is
// still 200; the caller distinguishes the two shapes by Status.
//
// Response repeats Message, extended with the worker's example or required
// format when one was provided, so chat UIs can render it directly.
type ClarificationEnvelope struct {
	Status              string         `json:"status"`
	Message             string         `json:"message"`
	Response            string         `json:"response"`
	ClarifyingQuestions []string       `json:"clarifying_questions"`
	ExampleRequest      string         `json:"example_request,omitempty"`
	RequiredFormat      string         `json:"required_format,omitempty"`
	IntentInfo          map[string]any `json:"intent_info,omitempty"`
	Suggestions         []string       `json:"suggestions,omitempty"`
	ClarificationCount  int            `json:"clarification_count"`
	MaxClarifications   int            `json:"max_clarifications"`
}
