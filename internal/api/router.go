// Package api exposes the HTTP and websocket surface of the service.
package api

import (
	"net/http"
	"slices"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jonesrussell/matterscout/internal/config"
	"github.com/jonesrussell/matterscout/internal/logger"
	"github.com/jonesrussell/matterscout/internal/metrics"
)

// NewRouter assembles the gin engine: REST API, health, metrics, websocket.
func NewRouter(
	cfg *config.Config,
	handlers *Handlers,
	ws *WSHandler,
	collectors *metrics.Collectors,
	log logger.Logger,
) *gin.Engine {
	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestLogger(log))
	router.Use(corsMiddleware(cfg.Server.CORSOrigins))

	router.GET("/health", handlers.Health)
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(collectors.Registry, promhttp.HandlerOpts{})))
	router.GET("/ws", ws.ServeWS)

	v1 := router.Group("/api/v1")
	{
		v1.POST("/communications", handlers.CreateCommunication)
		v1.GET("/communications", handlers.ListCommunications)
		v1.GET("/communications/:id", handlers.GetCommunication)
		v1.GET("/opportunities", handlers.ListOpportunities)
		v1.GET("/opportunities/:id", handlers.GetOpportunity)
		v1.PATCH("/opportunities/:id/status", handlers.UpdateOpportunityStatus)
		v1.GET("/stats", handlers.GetStats)
	}

	return router
}

// requestLogger logs each request with method, path, status, and latency.
func requestLogger(log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		log.Debug("Request handled",
			logger.String("method", c.Request.Method),
			logger.String("path", c.Request.URL.Path),
			logger.Int("status", c.Writer.Status()),
			logger.Duration("latency", time.Since(start)),
		)
	}
}

// corsMiddleware allows the configured origins.
func corsMiddleware(origins []string) gin.HandlerFunc {
	allowAll := slices.Contains(origins, "*")

	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if origin != "" && (allowAll || slices.Contains(origins, origin)) {
			c.Header("Access-Control-Allow-Origin", origin)
			c.Header("Access-Control-Allow-Credentials", "true")
			c.Header("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
			c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")
		}

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
