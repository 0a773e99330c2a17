package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	iauth "github.com/pitchey/ndagate/internal/auth"
	"github.com/pitchey/ndagate/pkg/errors"
	"github.com/pitchey/ndagate/pkg/response"
)

const (
	CtxIdentityKey = "authIdentity"
	CtxUserIDKey   = "userID"
	CtxRoleKey     = "userRole"
)

// Auth enforces JWT authentication using the supplied JWT service.
func Auth(jwt *iauth.JWTService) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			c.Header("WWW-Authenticate", "Bearer")
			response.Error(c, errors.ErrUnauthorized)
			c.Abort()
			return
		}

		identity, err := jwt.Verify(token)
		if err != nil {
			// Normalise all validation failures to 401
			c.Header("WWW-Authenticate", "Bearer")
			response.Error(c, errors.ErrUnauthorized)
			c.Abort()
			return
		}

		c.Set(CtxIdentityKey, identity)
		c.Set(CtxUserIDKey, identity.ActorID)
		c.Set(CtxRoleKey, identity.Role)

		c.Next()
	}
}

// bearerToken reads the Authorization header. WebSocket upgrades cannot set headers
// from a browser, so GET requests may pass the token as ?access_token= instead.
func bearerToken(c *gin.Context) string {
	authz := c.GetHeader("Authorization")
	if len(authz) >= 8 && strings.EqualFold(authz[:7], "Bearer ") {
		return strings.TrimSpace(authz[7:])
	}
	if c.Request.Method == "GET" && strings.EqualFold(c.GetHeader("Upgrade"), "websocket") {
		return strings.TrimSpace(c.Query("access_token"))
	}
	return ""
}

// ActorID returns the authenticated caller recorded by Auth.
func ActorID(c *gin.Context) string {
	return c.GetString(CtxUserIDKey)
}
