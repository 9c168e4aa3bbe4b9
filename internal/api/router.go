package api

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"joblink/internal/api/middleware"
	"joblink/internal/config"
	"joblink/internal/metrics"
)

// NewRouter 构建 Gin 路由引擎，挂好通用中间件与运维端点。
func NewRouter(cfg *config.Config, logger *slog.Logger) *gin.Engine {
	if !cfg.API.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(
		middleware.CorrelationIDMiddleware(),
		middleware.SlogLoggerMiddleware(logger),
		metrics.GinMiddleware(),
		gin.Recovery(),
	)

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return router
}
