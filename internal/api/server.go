// Package api exposes the control surface: start/stop endpoints, cached
// bot state, settings management and a WebSocket event stream. Handlers
// never call the exchange directly; everything they serve is state the
// worker already produced.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"blofin-trading-bot/config"
	"blofin-trading-bot/internal/botctl"
	"blofin-trading-bot/internal/events"
	"blofin-trading-bot/internal/scanner"
	"blofin-trading-bot/internal/settings"
	"blofin-trading-bot/internal/trading"
)

// Server represents the HTTP API server
type Server struct {
	router     *gin.Engine
	httpServer *http.Server
	config     config.ServerConfig
	controller *botctl.Controller
	bot        *trading.Bot
	scanner    *scanner.Scanner
	settings   settings.Store
	hub        *WSHub
	logger     zerolog.Logger
}

// NewServer creates a new API server wired to the lifecycle controller and
// the worker's cached state
func NewServer(
	cfg config.ServerConfig,
	production bool,
	controller *botctl.Controller,
	bot *trading.Bot,
	scan *scanner.Scanner,
	store settings.Store,
	bus *events.Bus,
	logger zerolog.Logger,
) *Server {
	if production {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowAllOrigins = true
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization"}
	router.Use(cors.New(corsConfig))

	server := &Server{
		router:     router,
		config:     cfg,
		controller: controller,
		bot:        bot,
		scanner:    scan,
		settings:   store,
		hub:        NewWSHub(logger),
		logger:     logger.With().Str("component", "api").Logger(),
	}

	server.setupRoutes()

	// Every bus event is mirrored onto the WebSocket stream
	go server.hub.Run()
	bus.SubscribeAll(server.hub.BroadcastEvent)

	return server
}

// setupRoutes configures all API routes
func (s *Server) setupRoutes() {
	s.router.GET("/health", s.handleHealth)

	apiGroup := s.router.Group("/api")
	{
		apiGroup.POST("/bot/start", s.handleStartBot)
		apiGroup.POST("/bot/stop", s.handleStopBot)
		apiGroup.GET("/bot/status", s.handleBotStatus)

		apiGroup.GET("/positions", s.handlePositions)
		apiGroup.GET("/scanner/opportunities", s.handleOpportunities)

		apiGroup.GET("/settings", s.handleGetSettings)
		apiGroup.PUT("/settings", s.handleUpdateSettings)
	}

	s.router.GET("/ws", s.handleWebSocket)
}

// Start begins serving in a background goroutine
func (s *Server) Start() {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		s.logger.Info().Str("addr", addr).Msg("api server listening")
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error().Err(err).Msg("api server failed")
		}
	}()
}

// Shutdown gracefully stops the server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}
