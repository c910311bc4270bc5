package handlers

import (
	"net/http"
	"time"

	"github.com/PopeYeahWine/MeterAI/internal/events"
	"github.com/gin-gonic/gin"
)

// heartbeatInterval keeps idle SSE connections from being reaped by proxies
const heartbeatInterval = 30 * time.Second

// EventsHandler serves the usage-updated event stream
type EventsHandler struct {
	broadcaster *events.Broadcaster
}

// NewEventsHandler creates a new events handler
func NewEventsHandler(b *events.Broadcaster) *EventsHandler {
	return &EventsHandler{broadcaster: b}
}

// Stream serves usage events over SSE
// GET /api/events
func (h *EventsHandler) Stream(c *gin.Context) {
	clientID, ch := h.broadcaster.Subscribe()
	if clientID == "" {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Too many event stream clients"})
		return
	}
	defer h.broadcaster.Unsubscribe(clientID)

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Writer.Flush()

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case ev, ok := <-ch:
			if !ok {
				return
			}
			c.SSEvent("usage-updated", ev)
			c.Writer.Flush()
		case <-heartbeat.C:
			c.SSEvent("heartbeat", gin.H{"time": time.Now().Unix()})
			c.Writer.Flush()
		case <-c.Request.Context().Done():
			return
		}
	}
}
