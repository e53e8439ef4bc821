package models

import "time"

// Role identifies the author of a conversation turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ConversationMessage is a single turn in a user's conversation history.
// IntentInfo carries the routing decision that produced an assistant turn
// so clarification loops can be detected later.
type ConversationMessage struct {
	UserID     string         `json:"user_id"`
	Role       Role           `json:"role"`
	Content    string         `json:"content"`
	AgentID    string         `json:"agent_id,omitempty"`
	IntentInfo map[string]any `json:"intent_info,omitempty"`
	Timestamp  time.Time      `json:"timestamp"`
}

// ConversationSummary aggregates a user's stored history without
// returning the turns themselves.
type ConversationSummary struct {
	UserID       string     `json:"user_id"`
	MessageCount int        `json:"message_count"`
	AgentsUsed   []string   `json:"agents_used"`
	FirstMessage *time.Time `json:"first_message,omitempty"`
	LastMessage  *time.Time `json:"last_message,omitempty"`
}
