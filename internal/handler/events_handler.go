package handler

import (
	"io"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/weeklyworks-api/internal/events"
)

type eventSubscriber interface {
	Subscribe() (<-chan events.Event, func())
}

// EventsHandler streams change notifications as server-sent events.
type EventsHandler struct {
	broker    eventSubscriber
	keepAlive time.Duration
}

// NewEventsHandler constructs EventsHandler. keepAlive <= 0 means 25s.
func NewEventsHandler(broker eventSubscriber, keepAlive time.Duration) *EventsHandler {
	if keepAlive <= 0 {
		keepAlive = 25 * time.Second
	}
	return &EventsHandler{broker: broker, keepAlive: keepAlive}
}

// Stream godoc
// @Summary Subscribe to student and session changes
// @Tags Events
// @Produce text/event-stream
// @Success 200 {string} string "event stream"
// @Router /events [get]
func (h *EventsHandler) Stream(c *gin.Context) {
	ch, unsubscribe := h.broker.Subscribe()
	defer unsubscribe()

	ticker := time.NewTicker(h.keepAlive)
	defer ticker.Stop()

	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.SSEvent("ready", gin.H{"status": "subscribed"})
	c.Writer.Flush()

	ctx := c.Request.Context()
	c.Stream(func(io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case evt, ok := <-ch:
			if !ok {
				return false
			}
			c.SSEvent(string(evt.Type), evt)
			return true
		case <-ticker.C:
			c.SSEvent("ping", gin.H{"at": time.Now().UTC()})
			return true
		}
	})
}
