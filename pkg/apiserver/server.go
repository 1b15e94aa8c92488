package apiserver

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/uspace/uatrack/pkg/apiserver/handlers"
	"github.com/uspace/uatrack/pkg/apiserver/middleware"
	"github.com/uspace/uatrack/pkg/config"
	"github.com/uspace/uatrack/pkg/store/gormstore"
	redisclient "github.com/uspace/uatrack/pkg/store/redis"
)

const readyTimeout = 2 * time.Second

// Server is the operational HTTP surface: health checks, metrics and read-only
// execution reports. Redis is optional; without it readiness only checks
// the database.
type Server struct {
	router *gin.Engine
	db     *gormstore.Store
	redis  *redisclient.Client
	cfg    *config.Config
	logger *zap.Logger
}

func NewServer(db *gormstore.Store, redis *redisclient.Client, cfg *config.Config, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		db:     db,
		redis:  redis,
		cfg:    cfg,
		logger: logger,
	}
	s.setupRouter()
	return s
}

func (s *Server) setupRouter() {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	r.Use(gin.Recovery())
	r.Use(middleware.Logger(s.logger))
	r.Use(middleware.RequestID())
	r.Use(middleware.CORS())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/ready", s.ready)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api/v1")
	{
		runHandler := handlers.NewRunHandler(s.db, s.logger)
		api.GET("/campaign-runs/:id", runHandler.Get)
		api.GET("/campaign-runs/:id/summary", runHandler.Summary)

		bugHandler := handlers.NewBugHandler(s.db, s.logger)
		api.GET("/bugs/:id/history", bugHandler.History)
	}

	s.router = r
}

func (s *Server) ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), readyTimeout)
	defer cancel()

	if s.db == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": "database not configured"})
		return
	}
	if err := s.db.Ping(ctx); err != nil {
		s.logger.Warn("database not ready", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": "database unreachable"})
		return
	}
	if s.redis != nil {
		if err := s.redis.Ping(ctx); err != nil {
			s.logger.Warn("redis not ready", zap.Error(err))
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": "redis unreachable"})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}

func (s *Server) Router() *gin.Engine {
	return s.router
}
