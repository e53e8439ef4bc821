// Package slack delivers agent availability notifications to a Slack
// channel. The supervisor posts when a worker agent stops answering
// health probes and again when it recovers, so operators hear about an
// outage before students do.
package slack

import (
	"context"
	"log/slog"
	"time"
)

// ServiceConfig holds the parameters needed to construct a Service.
type ServiceConfig struct {
	Token        string
	Channel      string
	DashboardURL string
}

// Service handles Slack notification delivery.
// Nil-safe: all methods are no-ops when service is nil.
type Service struct {
	client       *Client
	dashboardURL string
	logger       *slog.Logger
}

// NewService creates a new Slack notification service.
// Returns nil if Token or Channel is empty.
func NewService(cfg ServiceConfig) *Service {
	if cfg.Token == "" || cfg.Channel == "" {
		return nil
	}
	return &Service{
		client:       NewClient(cfg.Token, cfg.Channel),
		dashboardURL: cfg.DashboardURL,
		logger:       slog.Default().With("component", "slack-service"),
	}
}

// NewServiceWithClient creates a Service backed by a pre-built Client.
// Useful for testing with a mock API server.
func NewServiceWithClient(client *Client, dashboardURL string) *Service {
	return &Service{
		client:       client,
		dashboardURL: dashboardURL,
		logger:       slog.Default().With("component", "slack-service"),
	}
}

// NotifyAgentOffline sends an "agent went offline" notification.
// Fail-open: errors are logged, never returned.
func (s *Service) NotifyAgentOffline(ctx context.Context, agentID, agentName string) {
	if s == nil {
		return
	}

	blocks := BuildAgentOfflineMessage(agentID, agentName, time.Now().UTC(), s.dashboardURL)
	if err := s.client.PostMessage(ctx, blocks); err != nil {
		s.logger.Error("Failed to send Slack offline notification",
			"agent_id", agentID,
			"error", err)
	}
}

// NotifyAgentRecovered sends an "agent back online" notification.
// Fail-open: errors are logged, never returned.
func (s *Service) NotifyAgentRecovered(ctx context.Context, agentID, agentName string) {
	if s == nil {
		return
	}

	blocks := BuildAgentRecoveredMessage(agentID, agentName, time.Now().UTC(), s.dashboardURL)
	if err := s.client.PostMessage(ctx, blocks); err != nil {
		s.logger.Error("Failed to send Slack recovery notification",
			"agent_id", agentID,
			"error", err)
	}
}
