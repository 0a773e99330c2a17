package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/require"

	"github.com/pitchey/ndagate/pkg/metrics"
)

func latencySamples(t *testing.T, method, path, status string) uint64 {
	t.Helper()
	observer, err := metrics.APILatency.GetMetricWithLabelValues(method, path, status)
	require.NoError(t, err)

	var out dto.Metric
	require.NoError(t, observer.(prometheus.Metric).Write(&out))
	return out.GetHistogram().GetSampleCount()
}

func TestMetricsMiddlewareUsesRoutePattern(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.Use(Metrics())
	r.GET("/api/ndas/:id/audit", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	before := latencySamples(t, http.MethodGet, "/api/ndas/:id/audit", "204")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/ndas/abc/audit", nil))
	require.Equal(t, http.StatusNoContent, w.Code)

	require.Equal(t, before+1, latencySamples(t, http.MethodGet, "/api/ndas/:id/audit", "204"))
}
