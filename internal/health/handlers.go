package health

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kosanku/kos-wa-service/internal/app"
)

// Handlers contains HTTP handlers for health checks.
type Handlers struct {
	app *app.App
}

// NewHandlers creates a new health handlers instance.
func NewHandlers(app *app.App) *Handlers {
	return &Handlers{app: app}
}

// RootHandler handles the root endpoint for Docker health checks.
func (h *Handlers) RootHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":        "ok",
		"uptime":        time.Since(h.app.StartTime).String(),
		"session_count": h.app.Manager.Count(),
		"version":       "1.0.0",
	})
}

// HealthCheckHandler reports uptime and session counts. Always returns 200;
// the body carries the detail.
func (h *Handlers) HealthCheckHandler(c *gin.Context) {
	var connected int
	clients := h.app.Manager.All()
	for _, cl := range clients {
		if cl.GetConnectionStatus().IsConnected {
			connected++
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"status":             "ok",
		"uptime":             time.Since(h.app.StartTime).String(),
		"total_sessions":     len(clients),
		"connected_sessions": connected,
		"timestamp":          time.Now().Format(time.RFC3339),
	})
}

// HealthCheckHandlerWithSlash handles the health check endpoint with a
// trailing slash.
func (h *Handlers) HealthCheckHandlerWithSlash(c *gin.Context) {
	h.HealthCheckHandler(c)
}
