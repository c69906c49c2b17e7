package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog"

	_ "github.com/mattn/go-sqlite3"

	"github.com/kosanku/kos-wa-service/internal/app"
	"github.com/kosanku/kos-wa-service/internal/client"
	"github.com/kosanku/kos-wa-service/internal/config"
	"github.com/kosanku/kos-wa-service/internal/server"
	"github.com/kosanku/kos-wa-service/internal/session"
	"github.com/kosanku/kos-wa-service/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fallback := logger.SetupFallback()
		fallback.Fatal().Err(err).Msg("invalid configuration")
	}

	log, err := logger.Setup(cfg.LogDir, cfg.LogLevel)
	if err != nil {
		log = logger.SetupFallback()
	}
	defer logger.Close()

	if err := cfg.EnsureDataDir(); err != nil {
		log.Fatal().Err(err).Msg("failed to create data directory")
	}

	db, err := sqlx.Open("sqlite3", "file:"+cfg.SessionDBPath()+"?_foreign_keys=on")
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open session store")
	}
	defer db.Close()

	repo := session.NewRepository(db)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := repo.Migrate(ctx); err != nil {
		cancel()
		log.Fatal().Err(err).Msg("failed to migrate session store")
	}
	cancel()

	factory := func(id string) (client.Transport, error) {
		return client.NewWhatsmeowTransport(context.Background(), cfg.DataDir, id, log)
	}
	manager := client.NewManager(factory, log)

	application := app.NewApp(cfg, log, manager)
	sessionService := session.NewService(repo, manager, cfg.DataDir, log)

	restoreSessions(log, repo, sessionService, cfg.DataDir)

	srv := server.NewServer(application, cfg)
	srv.SetupRoutes(sessionService)
	if err := srv.Start(); err != nil {
		log.Fatal().Err(err).Msg("failed to start server")
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server shutdown failed")
	}
	manager.Shutdown()
}

// restoreSessions reconciles stale persisted state and reconnects every
// active session that still holds credentials. A row left "connected" by a
// crashed process has no live socket and must read as disconnected until
// the reconnect completes.
func restoreSessions(log zerolog.Logger, repo *session.Repository, svc *session.Service, dataDir string) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	reconciled, err := repo.ReconcileStartup(ctx)
	if err != nil {
		log.Error().Err(err).Msg("startup reconciliation failed")
	} else if reconciled > 0 {
		log.Info().Int64("rows", reconciled).Msg("reconciled stale session rows")
	}

	rows, err := repo.ListActive(ctx)
	if err != nil {
		log.Error().Err(err).Msg("failed to list sessions for restore")
		return
	}

	for _, row := range rows {
		if !row.AutoReconnect {
			continue
		}
		if !client.HasCredentials(dataDir, row.SessionID) {
			log.Info().Str("session", row.SessionID).Msg("no credentials cached, skipping restore")
			continue
		}
		if _, err := svc.Connect(ctx, row.SessionID); err != nil {
			log.Error().Err(err).Str("session", row.SessionID).Msg("failed to restore session")
		} else {
			log.Info().Str("session", row.SessionID).Msg("restoring session")
		}
	}
}
