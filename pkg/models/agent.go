// Package models defines the shared data shapes exchanged between the
// supervisor's components and with worker agents over HTTP.
package models

import "time"

// AgentStatus is the cached liveness classification for a worker agent.
type AgentStatus string

const (
	// AgentStatusHealthy means the last probe returned 200 {"status":"healthy"}.
	AgentStatusHealthy AgentStatus = "healthy"

	// AgentStatusOffline means the last probe failed or returned anything else.
	AgentStatusOffline AgentStatus = "offline"

	// AgentStatusUnknown means the agent has never been probed.
	AgentStatusUnknown AgentStatus = "unknown"
)

// AgentDescriptor describes a single worker agent known to the supervisor.
// Descriptors are loaded from the registry file at startup; Status and
// LastChecked are maintained at runtime by the health prober.
type AgentDescriptor struct {
	ID             string      `json:"id"`
	Name           string      `json:"name"`
	Description    string      `json:"description"`
	Capabilities   []string    `json:"capabilities"`
	Keywords       []string    `json:"keywords"`
	RequiredParams []string    `json:"required_params,omitempty"`
	URL            string      `json:"url"`
	Status         AgentStatus `json:"status"`
	LastChecked    time.Time   `json:"last_checked"`
}

// Clone returns a deep copy so callers can't mutate registry state
// through shared slices.
func (d *AgentDescriptor) Clone() *AgentDescriptor {
	if d == nil {
		return nil
	}
	cp := *d
	cp.Capabilities = append([]string(nil), d.Capabilities...)
	cp.Keywords = append([]string(nil), d.Keywords...)
	cp.RequiredParams = append([]string(nil), d.RequiredParams...)
	return &cp
}
