package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/pitchey/ndagate/internal/database"
)

// Health reports process liveness and database reachability for readiness checks.
func Health(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(requestContext(c), 2*time.Second)
		defer cancel()

		status := http.StatusOK
		checks := gin.H{"database": "ok"}
		if err := database.Ping(ctx, db); err != nil {
			status = http.StatusServiceUnavailable
			checks["database"] = "unavailable"
		}

		c.JSON(status, gin.H{
			"success":    status == http.StatusOK,
			"checks":     checks,
			"checked_at": time.Now().UTC(),
		})
	}
}
