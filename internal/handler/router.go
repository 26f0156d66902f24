package handler

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/noah-isme/shift-bots/internal/middleware"
	"github.com/noah-isme/shift-bots/internal/service"
	"github.com/noah-isme/shift-bots/pkg/config"
	"github.com/noah-isme/shift-bots/pkg/logger"
	"github.com/noah-isme/shift-bots/pkg/middleware/cors"
	"github.com/noah-isme/shift-bots/pkg/middleware/requestid"
)

// NewEngine builds the gin engine shared by both bots: recovery, request ids,
// access logs, CORS, metrics and the /health and /metrics probes.
func NewEngine(cfg *config.Config, logr *zap.Logger, metrics *service.MetricsService) *gin.Engine {
	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(requestid.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(cors.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metrics))

	probes := NewMetricsHandler(metrics)
	r.GET("/health", probes.Health)
	if metrics != nil {
		r.GET("/metrics", probes.Prometheus)
	}

	return r
}
