package handlers

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	appErrors "github.com/pitchey/ndagate/pkg/errors"
	"github.com/pitchey/ndagate/pkg/response"
)

// bindJSON decodes the request body into dest. Field rules are enforced by the engine so
// every caller gets the same validation errors. An empty body is accepted as the zero value.
func bindJSON[T any](c *gin.Context, dest *T) bool {
	if c.Request.ContentLength == 0 {
		return true
	}
	if err := c.ShouldBindJSON(dest); err != nil {
		response.Error(c, appErrors.NewBadRequest("invalid JSON payload"))
		return false
	}
	return true
}

func parseIntQuery(c *gin.Context, key string, fallback int) int {
	value := strings.TrimSpace(c.Query(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}
