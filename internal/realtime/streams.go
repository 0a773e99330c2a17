package realtime

// Named realtime streams.
const (
	StreamNotifications = "notifications"
	StreamNDAs          = "ndas"
)

// DefaultStreams are subscribed when a client connects without naming any.
var DefaultStreams = []string{StreamNDAs, StreamNotifications}
