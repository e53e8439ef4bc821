package api

// IdentifyIntentRequest is the body of POST /api/supervisor/identify-intent.
// History is supplied inline because standalone identification never
// touches conversation memory.
type IdentifyIntentRequest struct {
	Request             string        `json:"request"`
	ConversationHistory []HistoryTurn `json:"conversation_history,omitempty"`
}

// HistoryTurn is one prior conversation turn supplied by the caller.
type HistoryTurn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}
