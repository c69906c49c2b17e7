package app

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/kosanku/kos-wa-service/internal/client"
	"github.com/kosanku/kos-wa-service/internal/config"
)

// App holds shared application state and resources.
type App struct {
	Config    *config.Config
	Log       zerolog.Logger
	Manager   *client.Manager
	StartTime time.Time
}

// NewApp creates a new App instance.
func NewApp(cfg *config.Config, log zerolog.Logger, manager *client.Manager) *App {
	return &App{
		Config:    cfg,
		Log:       log,
		Manager:   manager,
		StartTime: time.Now(),
	}
}
