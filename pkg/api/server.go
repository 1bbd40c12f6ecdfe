package api

import (
	"context"
	"crypto/subtle"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/burrow-dns/burrow/pkg/arena"
	"github.com/burrow-dns/burrow/pkg/config"
	"github.com/burrow-dns/burrow/pkg/log"
	"github.com/burrow-dns/burrow/pkg/metrics"
	"github.com/burrow-dns/burrow/pkg/retention"
	"github.com/burrow-dns/burrow/pkg/types"
)

// MessageSource lists persisted operator notices. Implemented by the
// storage tier; nil when no store is attached.
type MessageSource interface {
	Messages() ([]types.Message, error)
}

// Server exposes the telemetry and control API over HTTP/JSON.
type Server struct {
	arena    *arena.Arena
	engine   *retention.Engine
	messages MessageSource
	cfg      *config.Store
	logger   zerolog.Logger
	srv      *http.Server
}

// NewServer creates the API server. messages may be nil.
func NewServer(a *arena.Arena, engine *retention.Engine, messages MessageSource, cfg *config.Store) *Server {
	s := &Server{
		arena:    a,
		engine:   engine,
		messages: messages,
		cfg:      cfg,
		logger:   log.WithComponent("api"),
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/health", s.handleHealth)
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	authed := router.Group("/api", s.auth())
	authed.GET("/stats/summary", s.handleSummary)
	authed.GET("/history", s.handleHistory)
	authed.GET("/stats/top_clients", s.handleTopClients)
	authed.GET("/stats/top_domains", s.handleTopDomains)
	authed.GET("/messages", s.handleMessages)
	authed.POST("/action/gc", s.handleGC)
	authed.POST("/action/flush", s.handleFlush)

	s.srv = &http.Server{
		Addr:         cfg.Snapshot().API.Addr,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	return s
}

// Start begins serving in a background goroutine.
func (s *Server) Start() {
	s.logger.Info().Str("addr", s.srv.Addr).Msg("Starting API server")
	go func() {
		if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error().Err(err).Msg("API server failed")
		}
	}()
}

// Stop shuts the server down gracefully.
func (s *Server) Stop(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

// Handler returns the HTTP handler, for tests.
func (s *Server) Handler() http.Handler {
	return s.srv.Handler
}

// auth enforces the configured API token. An empty token leaves the API
// open; the default bind address is loopback-only.
func (s *Server) auth() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := s.cfg.Snapshot().API.Token
		if token == "" {
			c.Next()
			return
		}
		got := c.GetHeader("X-API-Token")
		if subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or missing API token"})
			return
		}
		c.Next()
	}
}
