// Package api exposes the supervisor over HTTP: request routing, the
// agent registry, conversation memory, standalone intent identification,
// debug capture and the realtime WebSocket stream.
package api

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/labstack/echo/v5"

	"github.com/msaleh-12/Multi-Agent-System-BSE-7A-Backend/pkg/config"
	"github.com/msaleh-12/Multi-Agent-System-BSE-7A-Backend/pkg/database"
	"github.com/msaleh-12/Multi-Agent-System-BSE-7A-Backend/pkg/dispatch"
	"github.com/msaleh-12/Multi-Agent-System-BSE-7A-Backend/pkg/events"
	"github.com/msaleh-12/Multi-Agent-System-BSE-7A-Backend/pkg/memory"
	"github.com/msaleh-12/Multi-Agent-System-BSE-7A-Backend/pkg/models"
	"github.com/msaleh-12/Multi-Agent-System-BSE-7A-Backend/pkg/registry"
	"github.com/msaleh-12/Multi-Agent-System-BSE-7A-Backend/pkg/supervisor"
)

// AgentProber forces a live health probe of a single agent.
type AgentProber interface {
	Probe(ctx context.Context, agentID string) (models.AgentStatus, error)
}

// Server hosts the supervisor HTTP API.
type Server struct {
	cfg         *config.Config
	supervisor  *supervisor.Supervisor
	registry    *registry.Registry
	prober      AgentProber
	store       memory.Store
	debug       *dispatch.DebugStore
	connManager *events.ConnectionManager
	dbClient    *database.Client

	echo       *echo.Echo
	httpServer *http.Server
}

// NewServer wires the handlers and middleware. connManager and dbClient
// may be nil; the WebSocket endpoint and the database health check are
// disabled accordingly.
func NewServer(
	cfg *config.Config,
	sup *supervisor.Supervisor,
	reg *registry.Registry,
	prober AgentProber,
	store memory.Store,
	debug *dispatch.DebugStore,
	connManager *events.ConnectionManager,
	dbClient *database.Client,
) *Server {
	s := &Server{
		cfg:         cfg,
		supervisor:  sup,
		registry:    reg,
		prober:      prober,
		store:       store,
		debug:       debug,
		connManager: connManager,
		dbClient:    dbClient,
		echo:        echo.New(),
	}
	s.registerRoutes()
	s.httpServer = &http.Server{
		Handler:           s.echo,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

func (s *Server) registerRoutes() {
	s.echo.Use(securityHeaders())
	s.echo.Use(requestLogger())

	s.echo.GET("/health", s.healthHandler)
	s.echo.GET("/ws", s.wsHandler)

	g := s.echo.Group("/api/supervisor")
	g.POST("/request", s.requestHandler)
	g.GET("/registry", s.registryHandler)
	g.GET("/agent/:id/health", s.agentHealthHandler)
	g.GET("/conversation/history", s.conversationHistoryHandler)
	g.GET("/conversation/summary", s.conversationSummaryHandler)
	g.DELETE("/conversation/clear", s.conversationClearHandler)
	g.POST("/identify-intent", s.identifyIntentHandler)
	g.GET("/debug/last-agent-response", s.debugResponseHandler, s.debugToken())
}

// Start listens on addr and blocks until the listener fails or Shutdown
// is called. Callers should treat http.ErrServerClosed as a clean exit.
func (s *Server) Start(addr string) error {
	s.httpServer.Addr = addr
	return s.httpServer.ListenAndServe()
}

// StartWithListener serves on an existing listener. Tests use this to
// bind an OS-assigned port.
func (s *Server) StartWithListener(ln net.Listener) error {
	return s.httpServer.Serve(ln)
}

// Shutdown stops accepting new connections and waits for in-flight
// requests to finish or ctx to expire.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// Handler returns the routing tree, primarily for tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}
