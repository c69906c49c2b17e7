package session

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kosanku/kos-wa-service/internal/app"
)

// Handlers contains HTTP handlers for session management.
type Handlers struct {
	app     *app.App
	service *Service
}

// NewHandlers creates a new session handlers instance.
func NewHandlers(app *app.App, service *Service) *Handlers {
	return &Handlers{
		app:     app,
		service: service,
	}
}

// sessionID resolves the session id from the request, falling back to the
// configured default.
func (h *Handlers) sessionID(c *gin.Context) string {
	if id := c.Query("session"); id != "" {
		return id
	}
	return h.app.Config.DefaultSession
}

// ConnectHandler initiates a connection and returns the immediate status.
// The handshake continues in the background; callers poll /wa/status.
func (h *Handlers) ConnectHandler(c *gin.Context) {
	sessionID := h.sessionID(c)

	view, err := h.service.Connect(c.Request.Context(), sessionID)
	if err != nil {
		h.app.Log.Error().Err(err).Str("session", sessionID).Msg("connect failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to connect: " + err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"msg":          "Connection initiated. Poll /wa/status for the result.",
		"session":      view.SessionID,
		"status":       view.Status,
		"is_connected": view.IsConnected,
		"phone_number": view.PhoneNumber,
		"qr_code":      view.QRCode,
	})
}

// StatusHandler returns the merged live and persisted status of a session.
func (h *Handlers) StatusHandler(c *gin.Context) {
	sessionID := h.sessionID(c)

	view, err := h.service.Status(c.Request.Context(), sessionID)
	if err != nil {
		h.app.Log.Error().Err(err).Str("session", sessionID).Msg("status read failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read status: " + err.Error()})
		return
	}

	h.app.Log.Debug().Str("session", sessionID).Str("status", view.Status).
		Bool("connected", view.IsConnected).Msg("status check")

	c.JSON(http.StatusOK, gin.H{
		"session":           view.SessionID,
		"status":            view.Status,
		"is_connected":      view.IsConnected,
		"phone_number":      view.PhoneNumber,
		"qr_code":           view.QRCode,
		"qr_expires_at":     view.QRExpiresAt,
		"last_connected_at": view.LastConnectedAt,
		"auto_reconnect":    view.AutoReconnect,
		"stored_status":     view.StoredStatus,
		"timestamp":         time.Now().Format(time.RFC3339),
	})
}

// DisconnectHandler closes the live connection. Always succeeds on an
// already-disconnected session.
func (h *Handlers) DisconnectHandler(c *gin.Context) {
	sessionID := h.sessionID(c)

	if err := h.service.Disconnect(c.Request.Context(), sessionID); err != nil {
		h.app.Log.Error().Err(err).Str("session", sessionID).Msg("disconnect failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to disconnect: " + err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"msg": "Session disconnected"})
}

// ResetHandler clears all session state and cached credentials. This is the
// recovery path when credentials are corrupted or pairing is wedged.
func (h *Handlers) ResetHandler(c *gin.Context) {
	sessionID := h.sessionID(c)

	if err := h.service.Reset(c.Request.Context(), sessionID); err != nil {
		h.app.Log.Error().Err(err).Str("session", sessionID).Msg("reset failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to reset session: " + err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"msg": "Session reset. A fresh QR scan is required on the next connect."})
}
