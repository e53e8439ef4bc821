package events

import (
	"encoding/json"
	"log/slog"
	"time"

	"github.com/msaleh-12/Multi-Agent-System-BSE-7A-Backend/pkg/models"
)

// Publisher builds typed event payloads and hands them to the broker.
// Publishing is fire-and-forget: marshal failures are logged, not returned.
type Publisher struct {
	broker *Broker
}

// NewPublisher creates a publisher backed by the given broker.
func NewPublisher(broker *Broker) *Publisher {
	return &Publisher{broker: broker}
}

// PublishAgentStatus broadcasts an agent.status event on the agents channel.
func (p *Publisher) PublishAgentStatus(agentID string, oldStatus, newStatus models.AgentStatus) {
	payload := AgentStatusPayload{
		Type:      EventTypeAgentStatus,
		AgentID:   agentID,
		OldStatus: string(oldStatus),
		NewStatus: string(newStatus),
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
	}
	data, err := json.Marshal(payload)
	if err != nil {
		slog.Warn("Failed to marshal agent status event",
			"agent_id", agentID, "error", err)
		return
	}
	p.broker.Publish(ChannelAgents, data)
}
