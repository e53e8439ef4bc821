// Package events provides real-time event delivery via WebSocket.
//
// Event flow: the health prober and the dispatcher report agent status
// transitions to the Publisher, which marshals a typed payload and hands
// it to the in-process Broker. The ConnectionManager bridges broker
// channels to WebSocket clients: the first subscriber on a channel opens
// a broker subscription whose relay goroutine fans payloads out to every
// connection on that channel; the last unsubscriber closes it again.
package events

// Event types delivered over the agents channel.
const (
	EventTypeAgentStatus = "agent.status"
)

// ChannelAgents is the channel for agent status transitions. Dashboards
// subscribe to this for live registry updates.
const ChannelAgents = "agents"

// ClientMessage is the JSON structure for client → server WebSocket messages.
type ClientMessage struct {
	Action  string `json:"action"`            // "subscribe", "unsubscribe", "ping"
	Channel string `json:"channel,omitempty"` // channel name (e.g. "agents")
}
