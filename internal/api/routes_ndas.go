package api

import (
	"github.com/gin-gonic/gin"

	"github.com/pitchey/ndagate/internal/handlers"
)

func registerNDARoutes(api *gin.RouterGroup, handler *handlers.NDAHandler, events *handlers.RealtimeHandler) {
	group := api.Group("/ndas")
	{
		group.POST("/request", handler.Request)
		group.GET("/incoming", handler.Incoming)
		group.GET("/outgoing", handler.Outgoing)
		group.GET("/events", events.Stream)
		group.GET("/pitch/:itemId/status", handler.Status)

		group.POST("/:id/approve", handler.Approve)
		group.POST("/:id/reject", handler.Reject)
		group.POST("/:id/sign", handler.Sign)
		group.POST("/:id/revoke", handler.Revoke)
		group.GET("/:id/audit", handler.Audit)
	}
}
