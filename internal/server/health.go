package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/railzwaylabs/landedcost/pkg/db"
	"go.uber.org/zap"
)

func (s *Server) Healthz(c *gin.Context) {
	if err := db.HealthCheck(c.Request.Context(), s.db); err != nil {
		s.log.Warn("health check failed", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "database": "down"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "database": "up", "version": s.cfg.App.Version})
}

// Metrics exposes engine collectors together with the default registry,
// where the gorm pool collectors live.
func (s *Server) Metrics(c *gin.Context) {
	gatherers := prometheus.Gatherers{prometheus.DefaultGatherer}
	if s.metrics != nil {
		gatherers = append(gatherers, s.metrics.Registry)
	}
	promhttp.HandlerFor(gatherers, promhttp.HandlerOpts{}).ServeHTTP(c.Writer, c.Request)
}
