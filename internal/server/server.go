package server

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/kosanku/kos-wa-service/internal/app"
	"github.com/kosanku/kos-wa-service/internal/config"
)

// Server represents the HTTP server.
type Server struct {
	router *gin.Engine
	app    *app.App
	config *config.Config
	srv    *http.Server
}

// NewServer creates a new server instance.
func NewServer(app *app.App, config *config.Config) *Server {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(cors.New(config.GetCorsConfig()))

	return &Server{
		router: r,
		app:    app,
		config: config,
	}
}

// Router returns the gin router.
func (s *Server) Router() *gin.Engine {
	return s.router
}

// Start starts the HTTP server in the background.
func (s *Server) Start() error {
	s.srv = &http.Server{
		Addr:    s.config.Addr(),
		Handler: s.router,
	}

	go func() {
		s.app.Log.Info().Str("addr", s.config.Addr()).Msg("WhatsApp session service listening")
		if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.app.Log.Error().Err(err).Msg("server error")
		}
	}()

	return nil
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.srv == nil {
		return nil
	}
	s.app.Log.Info().Msg("shutting down server")
	if err := s.srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	return nil
}
