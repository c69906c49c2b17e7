package auth

import (
	"encoding/base64"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/skip2/go-qrcode"

	"github.com/kosanku/kos-wa-service/internal/app"
	"github.com/kosanku/kos-wa-service/internal/session"
)

// Handlers contains HTTP handlers for QR pairing.
type Handlers struct {
	app     *app.App
	service *session.Service
}

// NewHandlers creates a new pairing handlers instance.
func NewHandlers(app *app.App, service *session.Service) *Handlers {
	return &Handlers{
		app:     app,
		service: service,
	}
}

// QRImageHandler renders the current pairing challenge as a base64 PNG data
// URL. It serves whatever code the socket last emitted; callers start the
// pairing with /wa/connect and poll here until a code appears.
func (h *Handlers) QRImageHandler(c *gin.Context) {
	sessionID := c.Query("session")
	if sessionID == "" {
		sessionID = h.app.Config.DefaultSession
	}

	view, err := h.service.Status(c.Request.Context(), sessionID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	if view.IsConnected {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Session is already connected. No QR code needed.",
			"status": map[string]interface{}{
				"session":      sessionID,
				"is_connected": true,
				"phone_number": view.PhoneNumber,
			},
		})
		return
	}

	if view.QRCode == "" {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "No QR code available. Call /wa/connect first and retry.",
			"status": map[string]interface{}{
				"session": sessionID,
				"status":  view.Status,
			},
		})
		return
	}

	qr, err := qrcode.New(view.QRCode, qrcode.Medium)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to generate QR code: " + err.Error()})
		return
	}
	png, err := qr.PNG(256)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to generate PNG: " + err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"qrcode":     "data:image/png;base64," + base64.StdEncoding.EncodeToString(png),
		"expires_at": view.QRExpiresAt,
	})
}
