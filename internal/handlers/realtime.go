package handlers

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/pitchey/ndagate/internal/realtime"
	"github.com/pitchey/ndagate/pkg/errors"
	"github.com/pitchey/ndagate/pkg/response"
)

// RealtimeHandler upgrades authenticated requests into websocket event streams.
type RealtimeHandler struct {
	hub *realtime.Hub
}

// NewRealtimeHandler constructs a realtime handler.
func NewRealtimeHandler(hub *realtime.Hub) *RealtimeHandler {
	return &RealtimeHandler{hub: hub}
}

// Stream handles GET /api/ndas/events. Streams are picked with ?stream=a&stream=b or
// ?streams=a,b and default to every NDA stream.
func (h *RealtimeHandler) Stream(c *gin.Context) {
	if h.hub == nil {
		response.Error(c, errors.ErrNotFound)
		return
	}

	actorID, ok := requireActor(c)
	if !ok {
		return
	}

	h.hub.Serve(actorID, gatherStreams(c), c.Writer, c.Request)
}

func gatherStreams(c *gin.Context) []string {
	streams := append([]string(nil), c.QueryArray("stream")...)
	if raw := c.Query("streams"); raw != "" {
		streams = append(streams, strings.Split(raw, ",")...)
	}

	out := streams[:0]
	for _, stream := range streams {
		if stream = strings.ToLower(strings.TrimSpace(stream)); stream != "" {
			out = append(out, stream)
		}
	}
	return out
}
