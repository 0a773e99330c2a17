package api

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/pitchey/ndagate/internal/app"
)

func registerMetricsRoutes(r *gin.Engine, cfg *app.Config) {
	prom := cfg.Monitoring.Prometheus
	if !prom.Enabled {
		return
	}

	endpoint := strings.TrimSpace(prom.Endpoint)
	if endpoint == "" {
		endpoint = "/metrics"
	}
	if !strings.HasPrefix(endpoint, "/") {
		endpoint = "/" + endpoint
	}
	r.GET(endpoint, gin.WrapH(promhttp.Handler()))
}
