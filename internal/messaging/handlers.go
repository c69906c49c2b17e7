package messaging

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kosanku/kos-wa-service/internal/app"
)

// Handlers contains HTTP handlers for messaging.
type Handlers struct {
	app     *app.App
	service *Service
}

// NewHandlers creates a new messaging handlers instance.
func NewHandlers(app *app.App, service *Service) *Handlers {
	return &Handlers{
		app:     app,
		service: service,
	}
}

// SendMessageHandler delivers a message through a connected session. A
// not-connected session is a retryable condition reported in the body, not
// an HTTP failure.
func (h *Handlers) SendMessageHandler(c *gin.Context) {
	var req SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, SendResult{Success: false, Error: "Invalid request"})
		return
	}
	if req.Session == "" {
		req.Session = h.app.Config.DefaultSession
	}

	messageID, err := h.service.Send(c.Request.Context(), req.Session, req.PhoneNumber, req.Message, req.Attachment)
	if err != nil {
		if ncErr, ok := isNotConnectedError(err); ok {
			h.app.Log.Warn().Str("session", req.Session).Str("to", req.PhoneNumber).
				Msg("send rejected: session not connected")
			c.JSON(http.StatusOK, gin.H{
				"success":   false,
				"error":     ncErr.Error(),
				"retryable": true,
			})
			return
		}

		h.app.Log.Error().Err(err).Str("session", req.Session).Msg("message send error")
		c.JSON(http.StatusOK, SendResult{Success: false, Error: err.Error()})
		return
	}

	c.JSON(http.StatusOK, SendResult{Success: true, MessageID: messageID})
}
