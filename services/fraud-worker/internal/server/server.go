package server

import (
	"net/http"

	"github.com/astroshop/fraud-detection/pkg/database"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// New builds the metrics/health HTTP server. This is the worker's only HTTP
// surface; order traffic arrives over the stream.
func New(logger *zap.Logger, addr string, db *database.DB) *http.Server {
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/healthz", func(c *gin.Context) {
		if err := db.Ping(c.Request.Context()); err != nil {
			logger.Error("health check failed", zap.Error(err))
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": "fraud-worker"})
	})

	return &http.Server{Addr: addr, Handler: r}
}
