package handlers

import (
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-bloodlink-backend/internal/realtime"
)

// DonorEvents godoc
// @ID          donorEvents
// @Summary     Stream emergency requests to a donor
// @Description Server-sent events for new critical or urgent requests of the donor's blood type within the donor's radius. Nothing is sent while the donor is unavailable.
// @Tags        Events
// @Produce     text/event-stream
// @Param       id   path    string  true  "Donor ID"  format(uuid)
// @Success     200  {string} string "event stream"
// @Failure     404  {object} handlers.ErrorResponse "Donor not found"
// @Failure     503  {object} handlers.ErrorResponse "Realtime disabled"
// @Router      /events/donors/{id} [get]
func (h *Handlers) DonorEvents(c *gin.Context) {
	if h.hub == nil {
		fail(c, http.StatusServiceUnavailable, ErrCodeUnavailable, "realtime disabled")
		return
	}
	d, err := h.donors.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		failService(c, err)
		return
	}
	h.stream(c, realtime.DonorTopic(d.BloodType), realtime.DonorFilter(*d))
}

// RequesterEvents godoc
// @ID          requesterEvents
// @Summary     Stream donor responses to a requester
// @Description Server-sent events for response changes on every request owned by the requester.
// @Tags        Events
// @Produce     text/event-stream
// @Param       id   path    string  true  "Requester ID"
// @Success     200  {string} string "event stream"
// @Failure     503  {object} handlers.ErrorResponse "Realtime disabled"
// @Router      /events/requesters/{id} [get]
func (h *Handlers) RequesterEvents(c *gin.Context) {
	if h.hub == nil {
		fail(c, http.StatusServiceUnavailable, ErrCodeUnavailable, "realtime disabled")
		return
	}
	h.stream(c, realtime.RequesterTopic(c.Param("id")), realtime.ResponseFilter())
}

// stream relays one subscription until the client leaves or the hub closes.
func (h *Handlers) stream(c *gin.Context, topic string, filter realtime.Filter) {
	sub := h.hub.Subscribe(topic, filter)
	defer h.hub.Unsubscribe(sub.Handle())

	// The server write timeout would cut long-lived streams.
	_ = http.NewResponseController(c.Writer).SetWriteDeadline(time.Time{})

	hdr := c.Writer.Header()
	hdr.Set("Content-Type", "text/event-stream")
	hdr.Set("Cache-Control", "no-cache")
	hdr.Set("Connection", "keep-alive")
	hdr.Set("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)
	_, _ = io.WriteString(c.Writer, ": subscribed "+topic+"\n\n")
	c.Writer.Flush()

	ticker := time.NewTicker(h.keepAlive)
	defer ticker.Stop()
	ctx := c.Request.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, open := <-sub.Events():
			if !open {
				return
			}
			c.SSEvent(string(ev.Kind), ev)
			c.Writer.Flush()
		case <-ticker.C:
			_, _ = io.WriteString(c.Writer, ": keepalive\n\n")
			c.Writer.Flush()
		}
	}
}
