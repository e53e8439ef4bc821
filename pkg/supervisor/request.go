package supervisor

import "github.com/msaleh-12/Multi-Agent-System-BSE-7A-Backend/pkg/models"

// Request is one user message plus its routing options, as posted to the
// request endpoint. AgentID pins a specific agent, which only takes effect
// when AutoRoute is explicitly false; ConversationID is accepted for
// thread tracking by callers but does not change routing.
type Request struct {
	Request        string         `json:"request"`
	AgentID        string         `json:"agentId,omitempty"`
	AutoRoute      *bool          `json:"autoRoute,omitempty"`
	IncludeHistory *bool          `json:"includeHistory,omitempty"`
	ConversationID string         `json:"conversationId,omitempty"`
	Parameters     map[string]any `json:"parameters,omitempty"`
}

// autoRoute defaults to true when the field is absent.
func (r *Request) autoRoute() bool {
	return r.AutoRoute == nil || *r.AutoRoute
}

// includeHistory defaults to true when the field is absent.
func (r *Request) includeHistory() bool {
	return r.IncludeHistory == nil || *r.IncludeHistory
}

// Outcome is the reply for one orchestrated turn. Exactly one of Response
// and Clarification is non-nil; both serialize at HTTP 200 and callers
// tell them apart by the status field.
type Outcome struct {
	Response      *models.RequestResponse
	Clarification *models.ClarificationEnvelope
}
