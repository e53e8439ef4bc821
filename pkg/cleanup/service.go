// Package cleanup provides conversation retention enforcement.
package cleanup

import (
	"context"
	"log/slog"
	"time"

	"github.com/msaleh-12/Multi-Agent-System-BSE-7A-Backend/pkg/config"
	"github.com/msaleh-12/Multi-Agent-System-BSE-7A-Backend/pkg/memory"
)

// Service periodically enforces the conversation retention policy:
//   - Deletes turns older than the configured TTL
//   - Trims each user's history to the configured per-user cap
//
// All operations are idempotent; a missed sweep is caught up on the next
// tick.
type Service struct {
	config config.RetentionConfig
	store  memory.Pruner

	cancel context.CancelFunc
	done   chan struct{}
}

// NewService creates a new cleanup service.
func NewService(cfg config.RetentionConfig, store memory.Pruner) *Service {
	return &Service{
		config: cfg,
		store:  store,
	}
}

// Start launches the background sweep loop.
func (s *Service) Start(ctx context.Context) {
	if s.cancel != nil {
		return
	}
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})

	go s.run(ctx)

	slog.Info("Cleanup service started",
		"ttl", s.config.TTL,
		"max_per_user", s.config.MaxPerUser,
		"interval", s.config.SweepInterval)
}

// Stop signals the sweep loop to exit and waits for it to finish.
func (s *Service) Stop() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	<-s.done
	slog.Info("Cleanup service stopped")
}

func (s *Service) run(ctx context.Context) {
	defer close(s.done)

	s.runAll(ctx)

	ticker := time.NewTicker(s.config.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runAll(ctx)
		}
	}
}

func (s *Service) runAll(ctx context.Context) {
	s.pruneExpired(ctx)
	s.pruneExcess(ctx)
}

func (s *Service) pruneExpired(ctx context.Context) {
	if s.config.TTL <= 0 {
		return
	}
	count, err := s.store.PruneExpired(ctx, time.Now().Add(-s.config.TTL))
	if err != nil {
		slog.Error("Retention: expired message cleanup failed", "error", err)
		return
	}
	if count > 0 {
		slog.Info("Retention: removed expired messages", "count", count)
	}
}

func (s *Service) pruneExcess(ctx context.Context) {
	if s.config.MaxPerUser <= 0 {
		return
	}
	count, err := s.store.PruneExcess(ctx, s.config.MaxPerUser)
	if err != nil {
		slog.Error("Retention: per-user cap enforcement failed", "error", err)
		return
	}
	if count > 0 {
		slog.Info("Retention: trimmed oversized histories", "count", count)
	}
}
