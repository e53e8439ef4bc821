// Supervisor server — routes user requests to worker agents, maintains
// conversation memory, and serves the supervisor HTTP API.
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/msaleh-12/Multi-Agent-System-BSE-7A-Backend/pkg/api"
	"github.com/msaleh-12/Multi-Agent-System-BSE-7A-Backend/pkg/cleanup"
	"github.com/msaleh-12/Multi-Agent-System-BSE-7A-Backend/pkg/config"
	"github.com/msaleh-12/Multi-Agent-System-BSE-7A-Backend/pkg/database"
	"github.com/msaleh-12/Multi-Agent-System-BSE-7A-Backend/pkg/dispatch"
	"github.com/msaleh-12/Multi-Agent-System-BSE-7A-Backend/pkg/events"
	"github.com/msaleh-12/Multi-Agent-System-BSE-7A-Backend/pkg/health"
	"github.com/msaleh-12/Multi-Agent-System-BSE-7A-Backend/pkg/intent"
	"github.com/msaleh-12/Multi-Agent-System-BSE-7A-Backend/pkg/llm"
	"github.com/msaleh-12/Multi-Agent-System-BSE-7A-Backend/pkg/memory"
	"github.com/msaleh-12/Multi-Agent-System-BSE-7A-Backend/pkg/models"
	"github.com/msaleh-12/Multi-Agent-System-BSE-7A-Backend/pkg/registry"
	"github.com/msaleh-12/Multi-Agent-System-BSE-7A-Backend/pkg/slack"
	"github.com/msaleh-12/Multi-Agent-System-BSE-7A-Backend/pkg/supervisor"
	"github.com/msaleh-12/Multi-Agent-System-BSE-7A-Backend/pkg/version"
)

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// setupLogging installs the process-wide slog handler per LOG_LEVEL and
// LOG_FORMAT (text or json).
func setupLogging() {
	level := slog.LevelInfo
	switch strings.ToLower(os.Getenv("LOG_LEVEL")) {
	case "debug":
		level = slog.LevelDebug
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if strings.ToLower(os.Getenv("LOG_FORMAT")) == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
}

func main() {
	configDir := flag.String("config-dir",
		getEnv("SUPERVISOR_CONFIG", "./config"),
		"Path to configuration directory")
	flag.Parse()

	// Load .env file from config directory
	envPath := filepath.Join(*configDir, ".env")
	if err := godotenv.Load(envPath); err != nil {
		slog.Warn("Could not load .env file, continuing with existing environment",
			"path", envPath, "error", err)
	} else {
		slog.Info("Loaded environment", "path", envPath)
	}

	setupLogging()

	slog.Info("Starting supervisor",
		"version", version.Full(),
		"config_dir", *configDir)

	ctx := context.Background()

	// 1. Initialize configuration
	cfg, err := config.Initialize(*configDir)
	if err != nil {
		slog.Error("Failed to initialize configuration", "error", err)
		os.Exit(1)
	}

	// 2. Load the agent registry
	descriptors, err := config.LoadAgentDescriptors(cfg.RegistryFile)
	if err != nil {
		slog.Error("Failed to load agent registry", "file", cfg.RegistryFile, "error", err)
		os.Exit(1)
	}
	reg := registry.New(descriptors)
	slog.Info("Agent registry loaded", "agents", reg.Len())

	// 3. Conversation memory backend
	var (
		store    memory.Store
		pruner   memory.Pruner
		dbClient *database.Client
	)
	switch cfg.Memory.Backend {
	case "sqlite":
		dbClient, err = database.NewClient(ctx, cfg.Memory.DatabasePath)
		if err != nil {
			slog.Error("Failed to open conversation database",
				"path", cfg.Memory.DatabasePath, "error", err)
			os.Exit(1)
		}
		defer func() {
			if err := dbClient.Close(); err != nil {
				slog.Error("Error closing database client", "error", err)
			}
		}()
		sqlStore := memory.NewSQLStore(dbClient.DB())
		store, pruner = sqlStore, sqlStore
		slog.Info("Using SQLite conversation memory", "path", cfg.Memory.DatabasePath)
	default:
		memStore := memory.NewInMemoryStore()
		store, pruner = memStore, memStore
		slog.Info("Using in-memory conversation memory")
	}

	// 4. Retention sweeper
	var cleanupService *cleanup.Service
	if cfg.Memory.Retention.Enabled {
		cleanupService = cleanup.NewService(cfg.Memory.Retention, pruner)
		cleanupService.Start(ctx)
		defer cleanupService.Stop()
	}

	// 5. Event streaming and Slack notifications
	broker := events.NewBroker()
	publisher := events.NewPublisher(broker)
	connManager := events.NewConnectionManager(broker, 10*time.Second)

	var slackService *slack.Service
	if cfg.Slack.Enabled {
		slackService = slack.NewService(slack.ServiceConfig{
			Token:        cfg.Slack.Token(),
			Channel:      cfg.Slack.Channel,
			DashboardURL: cfg.Slack.DashboardURL,
		})
		slog.Info("Slack notifications enabled", "channel", cfg.Slack.Channel)
	}

	// Status transitions fan out to the event stream and Slack, whether
	// they come from the probe loop or from a dispatch failure.
	onStatusChange := func(agentID string, oldStatus, newStatus models.AgentStatus) {
		publisher.PublishAgentStatus(agentID, oldStatus, newStatus)

		name := agentID
		if desc, ok := reg.Get(agentID); ok {
			name = desc.Name
		}
		switch {
		case newStatus == models.AgentStatusOffline:
			slackService.NotifyAgentOffline(ctx, agentID, name)
		case oldStatus == models.AgentStatusOffline && newStatus == models.AgentStatusHealthy:
			slackService.NotifyAgentRecovered(ctx, agentID, name)
		}
	}

	// 6. Health prober (background probe loop)
	prober := health.NewProber(reg, cfg.Probe, onStatusChange)
	prober.Start(ctx)
	defer prober.Stop()

	// 7. Worker dispatch and intent identification
	dispatcher := dispatch.NewDispatcher(reg, prober, cfg.Dispatch, onStatusChange)
	llmClient := llm.NewClient(cfg.LLM)
	identifier := intent.NewIdentifier(reg, llmClient, cfg.Intent)

	// 8. Supervisor orchestrator
	sup := supervisor.New(reg, store, identifier, dispatcher, prober, cfg.Intent, cfg.Memory.HistoryLimit)

	// 9. HTTP server
	httpServer := api.NewServer(cfg, sup, reg, prober, store, dispatcher.Debug(), connManager, dbClient)

	errCh := make(chan error, 1)
	go func() {
		addr := cfg.Server.Addr()
		slog.Info("HTTP server listening", "addr", addr)
		if err := httpServer.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("HTTP server error", "error", err)
			errCh <- err
		}
	}()

	slog.Info("Supervisor started successfully",
		"agents", reg.Len(),
		"memory_backend", cfg.Memory.Backend)

	// 10. Wait for shutdown signal or server error
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)

	select {
	case sig := <-sigCh:
		slog.Info("Shutdown signal received", "signal", sig)
	case err := <-errCh:
		slog.Error("Server error triggered shutdown", "error", err)
	}

	// 11. Graceful shutdown: stop accepting requests first, then halt the
	// background loops (deferred probe/cleanup stops run after this).
	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	}

	slog.Info("Shutdown complete")
}
