package api

import (
	"time"

	"github.com/msaleh-12/Multi-Agent-System-BSE-7A-Backend/pkg/models"
)

// HealthResponse is returned by GET /health.
type HealthResponse struct {
	Status  string                 `json:"status"`
	Version string                 `json:"version"`
	Agents  AgentStats             `json:"agents"`
	Checks  map[string]HealthCheck `json:"checks,omitempty"`
}

// HealthCheck is the result of a single dependency check.
type HealthCheck struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// AgentStats summarizes registry liveness for the health endpoint.
type AgentStats struct {
	Total   int `json:"total"`
	Healthy int `json:"healthy"`
	Offline int `json:"offline"`
	Unknown int `json:"unknown"`
}

// RegistryResponse is returned by GET /api/supervisor/registry.
type RegistryResponse struct {
	Agents []*models.AgentDescriptor `json:"agents"`
	Count  int                       `json:"count"`
}

// AgentHealthResponse is returned by GET /api/supervisor/agent/:id/health
// after a forced live probe.
type AgentHealthResponse struct {
	AgentID     string             `json:"agent_id"`
	Status      models.AgentStatus `json:"status"`
	LastChecked time.Time          `json:"last_checked_at"`
}

// HistoryResponse is returned by GET /api/supervisor/conversation/history.
type HistoryResponse struct {
	UserID   string                        `json:"user_id"`
	Messages []*models.ConversationMessage `json:"messages"`
	Count    int                           `json:"count"`
}

// ClearResponse is returned by DELETE /api/supervisor/conversation/clear.
type ClearResponse struct {
	UserID  string `json:"user_id"`
	Message string `json:"message"`
}
