package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/andrewsamuelsen/bowen/pkg/auth"
	"github.com/andrewsamuelsen/bowen/pkg/config"
	"github.com/andrewsamuelsen/bowen/pkg/event"
	"github.com/andrewsamuelsen/bowen/pkg/handler"
	"github.com/andrewsamuelsen/bowen/pkg/service"
	"github.com/andrewsamuelsen/bowen/pkg/utils"
)

// Deps are the services behind the HTTP routes.
type Deps struct {
	Documents *service.DocumentService
	Chat      *service.ChatService
	Provider  handler.ProviderSource
	Verifier  auth.Verifier
	Emitter   *event.Emitter
}

type Server struct {
	ginEngine *gin.Engine
	logger    *slog.Logger
	host      string
	port      int
	done      chan struct{}
}

func NewServer(cfg *config.AppConfig, deps Deps) *Server {
	logger := utils.GetLogger()
	if deps.Emitter == nil {
		deps.Emitter = event.Global()
	}

	ginEngine := gin.New()
	ginEngine.Use(handler.Recovery(logger))
	ginEngine.Use(handler.RequestLogger(logger))
	ginEngine.Use(handler.CORS(cfg.Server.CORSOrigins))

	server := &Server{
		ginEngine: ginEngine,
		logger:    logger,
		host:      cfg.Host(),
		port:      cfg.Port(),
		done:      make(chan struct{}),
	}
	server.SetupRoutes(deps)
	return server
}

// Handler exposes the router, mostly for tests.
func (s *Server) Handler() http.Handler {
	return s.ginEngine
}

// Port is the bound port once Start has returned.
func (s *Server) Port() int {
	return s.port
}

// Done is closed once the server has shut down.
func (s *Server) Done() <-chan struct{} {
	return s.done
}

// Start listens on the configured address and serves until ctx is
// cancelled. It returns as soon as the listener is bound.
func (s *Server) Start(ctx context.Context) error {
	addr := net.JoinHostPort(s.host, fmt.Sprint(s.port))
	srv := &http.Server{Addr: addr, Handler: s.ginEngine, ReadHeaderTimeout: 10 * time.Second}

	// Attempt to listen on port first; if occupied return error immediately
	ln, err := net.Listen("tcp", srv.Addr)
	if err != nil {
		return err
	}
	if tcpAddr, ok := ln.Addr().(*net.TCPAddr); ok {
		s.port = tcpAddr.Port
	}
	s.logger.Info("Server listening", "addr", ln.Addr().String())

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("Server stopped", "error", err)
		}
	}()

	// Listen for context cancellation for graceful shutdown
	go func() {
		defer close(s.done)
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Warn("Graceful shutdown failed", "error", err)
		}
	}()
	return nil
}

func (s *Server) SetupRoutes(deps Deps) {
	s.ginEngine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	s.ginEngine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API group
	// /api
	apiGroup := s.ginEngine.Group("/api", auth.Middleware(deps.Verifier))

	// Per-user documents and token usage
	// /api/graph, /api/cards, /api/chat/history, /api/synthesis, /api/user/metrics
	handler.NewDocumentHandler(deps.Documents, s.logger).RegisterRoutes(apiGroup)

	// Streaming chat proxy
	// /api/chat
	handler.NewChatHandler(deps.Chat, s.logger).RegisterRoutes(apiGroup)

	// Active provider and circuit state
	// /api/provider
	handler.NewProviderHandler(deps.Provider).RegisterRoutes(apiGroup)

	// Document change notifications
	// /api/events/ws
	wsHandler := event.NewWSHandler(deps.Emitter, auth.UserID)
	apiGroup.GET("/events/ws", wsHandler.Handle)
}
