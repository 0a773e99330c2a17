package handlers

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/pitchey/ndagate/internal/middleware"
	"github.com/pitchey/ndagate/pkg/errors"
	"github.com/pitchey/ndagate/pkg/response"
)

// requestContext safely returns the request context with a background fallback for tests.
func requestContext(c *gin.Context) context.Context {
	if c == nil {
		return context.Background()
	}
	if req := c.Request; req != nil {
		return req.Context()
	}
	return context.Background()
}

// requireActor returns the authenticated caller, writing a 401 when there is none.
func requireActor(c *gin.Context) (string, bool) {
	actorID := middleware.ActorID(c)
	if actorID == "" {
		response.Error(c, errors.ErrUnauthorized)
		return "", false
	}
	return actorID, true
}
