package events

// AgentStatusPayload is the payload for agent.status events.
// Published on the agents channel whenever a probe or a dispatch failure
// flips an agent's cached status.
type AgentStatusPayload struct {
	Type      string `json:"type"`       // always EventTypeAgentStatus
	AgentID   string `json:"agent_id"`   // registry agent id
	OldStatus string `json:"old_status"` // healthy, offline, unknown
	NewStatus string `json:"new_status"` // healthy, offline, unknown
	Timestamp string `json:"timestamp"`  // RFC3339Nano
}
