package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"safeshe-backend-go/internal/config"
	"safeshe-backend-go/internal/db"
	httpapi "safeshe-backend-go/internal/http"
	"safeshe-backend-go/internal/logging"
	"safeshe-backend-go/internal/migrations"
	"safeshe-backend-go/internal/store"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"
)

func main() {
	_ = godotenv.Load()
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger, cleanupLogs, err := logging.Setup(cfg.Log)
	if err != nil {
		log.Fatalf("logger setup failed: %v", err)
	}
	defer cleanupLogs()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	st, database, err := openStore(ctx, cfg, logger)
	if err != nil {
		logger.Error("store setup failed", slog.String("driver", cfg.StoreDriver), slog.Any("err", err))
		os.Exit(1)
	}
	if database != nil {
		defer database.Close()
	}

	server := httpapi.NewServer(cfg, st, logger)
	httpServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           server.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		logger.Info("listening", slog.String("addr", httpServer.Addr), slog.String("store", cfg.StoreDriver))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		// Hijacked websockets are not tracked by Shutdown.
		server.Registry.Close()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil {
		logger.Error("server stopped", slog.Any("err", err))
		cleanupLogs()
		os.Exit(1)
	}
	logger.Info("shutdown complete")
}

// openStore returns the configured document store. The database handle is
// non-nil only for the postgres driver.
func openStore(ctx context.Context, cfg config.Config, logger *slog.Logger) (store.Store, *sqlx.DB, error) {
	if cfg.StoreDriver == config.StoreDriverMemory {
		logger.Warn("using in-memory store, data is lost on restart")
		return store.NewMemory(), nil, nil
	}
	database, err := db.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}
	if err := migrations.Apply(ctx, database, migrations.Files); err != nil {
		_ = database.Close()
		return nil, nil, err
	}
	return store.NewPostgres(database), database, nil
}
