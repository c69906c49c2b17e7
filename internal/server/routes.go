package server

import (
	"github.com/kosanku/kos-wa-service/internal/auth"
	"github.com/kosanku/kos-wa-service/internal/health"
	"github.com/kosanku/kos-wa-service/internal/messaging"
	"github.com/kosanku/kos-wa-service/internal/session"
)

// SetupRoutes configures all the routes for the application.
func (s *Server) SetupRoutes(sessionService *session.Service) {
	// Health checks
	healthHandlers := health.NewHandlers(s.app)
	s.router.GET("/", healthHandlers.RootHandler)
	s.router.GET("/health", healthHandlers.HealthCheckHandler)
	s.router.GET("/health/", healthHandlers.HealthCheckHandlerWithSlash)

	// Session lifecycle
	sessionHandlers := session.NewHandlers(s.app, sessionService)
	s.router.POST("/wa/connect", sessionHandlers.ConnectHandler)
	s.router.GET("/wa/status", sessionHandlers.StatusHandler)
	s.router.POST("/wa/status", sessionHandlers.StatusHandler)
	s.router.POST("/wa/disconnect", sessionHandlers.DisconnectHandler)
	s.router.POST("/wa/reset", sessionHandlers.ResetHandler)

	// QR pairing
	authHandlers := auth.NewHandlers(s.app, sessionService)
	s.router.GET("/wa/qr-image", authHandlers.QRImageHandler)

	// Messaging
	messagingHandlers := messaging.NewHandlers(s.app, messaging.NewService(s.app))
	s.router.POST("/send", messagingHandlers.SendMessageHandler)
}
