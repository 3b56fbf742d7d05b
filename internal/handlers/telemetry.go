package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"smartpot/internal/bridge"
	"smartpot/internal/models"
	"smartpot/internal/stream"
)

const (
	statusOK = "ok"

	errStream = "streaming unsupported by this connection"
)

// @Summary      Health check
// @Tags         system
// @Produce      json
// @Success      200  {object}  map[string]string
// @Router       /health [get]
func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": statusOK,
	})
}

// @Summary      Latest reading
// @Description  Returns the most recent device reading, or a waiting status if none arrived yet.
// @Tags         telemetry
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Router       /api/v1/telemetry/latest [get]
func (h *Handler) latestReading(c *gin.Context) {
	reading, ok := h.services.Telemetry.Latest()
	if !ok {
		c.JSON(http.StatusOK, stream.WaitingForData())
		return
	}
	c.JSON(http.StatusOK, reading)
}

// @Summary      Telemetry stream
// @Description  Long-lived SSE stream of device readings ("data: <json>" frames).
// @Tags         telemetry
// @Produce      text/event-stream
// @Success      200  {string}  string  "event stream"
// @Router       /api/v1/telemetry/stream [get]
func (h *Handler) streamTelemetry(c *gin.Context) {
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")

	if _, ok := c.Writer.(http.Flusher); !ok {
		c.String(http.StatusInternalServerError, errStream)
		return
	}

	// First frame confirms the attachment.
	if err := h.emit(c, stream.Connected()); err != nil {
		return
	}

	switch h.stream.Policy {
	case PolicyPush:
		h.streamPush(c)
	default:
		h.streamPoll(c)
	}
}

// streamPoll emits the current latest reading every poll interval, or a
// waiting frame while no data has arrived yet.
func (h *Handler) streamPoll(c *gin.Context) {
	ticker := time.NewTicker(h.stream.PollInterval)
	defer ticker.Stop()

	ctx := c.Request.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			var payload any
			if reading, ok := h.services.Telemetry.Latest(); ok {
				payload = reading
			} else {
				payload = stream.WaitingForData()
			}
			if err := h.emit(c, payload); err != nil {
				return
			}
		}
	}
}

// streamPush forwards each new reading as it arrives at the bridge. The
// per-client channel holds one outstanding emit; a slow client drops
// intermediate readings instead of blocking the bridge.
func (h *Handler) streamPush(c *gin.Context) {
	readings := make(chan models.Reading, 1)
	errs := make(chan string, 4)

	detach := h.services.Telemetry.Attach(bridge.Subscriber{
		OnReading: func(r models.Reading) {
			select {
			case readings <- r:
			default:
			}
		},
		OnError: func(err error) {
			select {
			case errs <- err.Error():
			default:
			}
		},
	})
	defer detach()

	ctx := c.Request.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case r := <-readings:
			if err := h.emit(c, r); err != nil {
				return
			}
		case msg := <-errs:
			// Non-fatal: report and keep the stream open.
			if err := h.emit(c, stream.Error(msg)); err != nil {
				return
			}
		}
	}
}

func (h *Handler) emit(c *gin.Context, payload any) error {
	if err := stream.WriteFrame(c.Writer, payload); err != nil {
		if h.log != nil {
			h.log.Infow("stream_write_failed", "err", err)
		}
		return err
	}
	c.Writer.Flush()
	return nil
}
