package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"studynotes/config"
	"studynotes/internal/handler"
	"studynotes/internal/middleware"
	"studynotes/internal/redis"
	"studynotes/internal/services"
	"studynotes/internal/transport/httpdto"
	"studynotes/internal/websocket"
	"studynotes/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

type Server struct {
	httpServer *http.Server
	engine     *gin.Engine
	config     *config.Config
	logger     *logger.Logger
}

var (
	ReleaseMode = "release"
	DebugMode   = "debug"
	TestMode    = "test"
)

type Handlers struct {
	Content    *handler.ContentHandler
	Engagement *handler.EngagementHandler
	Course     *handler.CourseHandler
	Summary    *handler.SummaryHandler
	Live       *websocket.Handler
}

// HealthCheck is one dependency checked by GET /health.
type HealthCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

func New(cfg *config.Config, l *logger.Logger) *Server {
	if cfg.AppMode == ReleaseMode {
		gin.SetMode(gin.ReleaseMode)
	} else if cfg.AppMode == TestMode {
		gin.SetMode(gin.TestMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	engine := gin.New()
	engine.Use(gin.Recovery())

	return &Server{
		httpServer: &http.Server{
			Addr:              fmt.Sprintf(":%s", cfg.AppPort),
			Handler:           engine,
			ReadHeaderTimeout: 10 * time.Second,
		},
		engine: engine,
		config: cfg,
		logger: l,
	}
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

// SetupRoutes registers every endpoint. limiter may be nil, which disables
// rate limiting.
func (s *Server) SetupRoutes(handlers *Handlers, authService *services.AuthService, limiter *redis.RateLimiter, checks ...HealthCheck) {
	if s.config.Tracing.Enabled {
		s.engine.Use(otelgin.Middleware(s.config.Tracing.ServiceName))
	}
	s.engine.Use(middleware.RequestIDMiddleware())
	s.engine.Use(middleware.CORSMiddleware(s.config.CORSOrigins))
	s.engine.Use(middleware.LoggingMiddleware(s.logger))
	s.engine.Use(middleware.ErrorHandler(s.logger))

	s.engine.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, httpdto.NewSuccessResponse(gin.H{"message": "pong"}))
	})

	s.engine.GET("/health", func(c *gin.Context) {
		for _, hc := range checks {
			if err := hc.Check(c.Request.Context()); err != nil {
				c.JSON(http.StatusServiceUnavailable, httpdto.NewErrorResponse(hc.Name+": "+err.Error(), "UNHEALTHY"))
				return
			}
		}
		c.JSON(http.StatusOK, httpdto.NewSuccessResponse(gin.H{"status": "healthy"}))
	})

	var uploadLimit, summaryLimit, voteLimit middleware.LimitFunc
	if limiter != nil {
		uploadLimit, summaryLimit, voteLimit = limiter.AllowUpload, limiter.AllowSummary, limiter.AllowVote
	}
	requireAuth := middleware.AuthMiddleware(authService)

	v1 := s.engine.Group("/v1")
	{
		v1.GET("/feed", middleware.OptionalAuthMiddleware(authService), handlers.Content.Feed)
		v1.GET("/feed/live", requireAuth, handlers.Live.Live)
		v1.GET("/courses/codes", handlers.Course.Codes)
	}

	authed := v1.Group("", requireAuth)
	{
		authed.POST("/items", middleware.UserRateLimitMiddleware(uploadLimit, "upload rate limit exceeded", s.logger), handlers.Content.Create)
		authed.POST("/items/text", middleware.UserRateLimitMiddleware(uploadLimit, "upload rate limit exceeded", s.logger), handlers.Content.CreateText)
		authed.GET("/me/items", handlers.Content.Mine)
		authed.PUT("/items/:id/upvote", middleware.UserRateLimitMiddleware(voteLimit, "vote rate limit exceeded", s.logger), handlers.Engagement.Upvote)
		authed.DELETE("/items/:id/upvote", middleware.UserRateLimitMiddleware(voteLimit, "vote rate limit exceeded", s.logger), handlers.Engagement.RemoveUpvote)
		authed.POST("/summaries", middleware.UserRateLimitMiddleware(summaryLimit, "summary rate limit exceeded", s.logger), handlers.Summary.Create)
	}
}

func (s *Server) Start() error {
	go func() {
		if s.logger != nil {
			s.logger.Infof("Starting the server on port %s...", s.config.AppPort)
		}
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			if s.logger != nil {
				s.logger.Errorf("Error in starting the server: %s", err)
			}
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGTERM, syscall.SIGINT)

	<-quit

	if s.logger != nil {
		s.logger.Infof("Quitting signal received.. Shutting down after 5 seconds")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		if s.logger != nil {
			s.logger.Infof("Error in the graceful shutdown of the server: %s", err)
		}
		return err
	}

	if s.logger != nil {
		s.logger.Infof("Server stopped gracefully")
	}

	return nil
}
