// Package main provides the collaboration server binary: the HTTP session
// API and the websocket realtime channel in one process.
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/gridshare/gridshare/internal/config"
	"github.com/gridshare/gridshare/internal/directory"
	"github.com/gridshare/gridshare/internal/httpapi"
	"github.com/gridshare/gridshare/internal/observability"
	"github.com/gridshare/gridshare/internal/realtime"
	"github.com/gridshare/gridshare/internal/server"
	"github.com/gridshare/gridshare/internal/storage"
	"github.com/gridshare/gridshare/internal/storage/memory"
	"github.com/gridshare/gridshare/internal/storage/postgres"
)

func main() {
	configPath := flag.String("config", "configs/dev.yaml", "path to configuration file")
	flag.Parse()

	ctx := context.Background()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logging)
	if err != nil {
		log.Fatalf("initializing logger: %v", err)
	}
	defer logger.Sync()

	logger.Info("starting collaboration server",
		zap.String("addr", cfg.Server.Addr()),
		zap.String("allowed_origin", cfg.Server.AllowedOrigin),
	)

	var (
		store  storage.Store
		health httpapi.HealthChecker
		pool   *postgres.Pool
	)
	switch cfg.Database.Backend {
	case config.BackendMemory:
		logger.Warn("using in-memory session storage, sessions will not survive a restart")
		store = memory.New()
	default:
		dbStart := time.Now()
		pool, err = postgres.NewPool(ctx, cfg.Database)
		if err != nil {
			logger.Fatal("connecting to database", zap.Error(err))
		}
		logger.Info("database connected",
			zap.String("host", cfg.Database.Host),
			zap.Duration("elapsed", time.Since(dbStart)),
		)
		store = postgres.NewSessionRepository(pool.DB())
		health = pool
	}

	dir := directory.NewService(store, logger)

	rooms := realtime.NewRooms()
	syncHandler := realtime.NewHandler(store, dir, rooms, logger)
	transport := realtime.NewTransport(syncHandler, cfg.Realtime, cfg.Server.AllowedOrigin, logger)

	api := httpapi.NewHandler(dir, health, logger)
	router := api.Router(transport, cfg.Server.AllowedOrigin)

	httpSrv := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Stop order is the reverse of registration: the HTTP listener drains
	// before the pool closes. The lifecycle bounds each stop with
	// server.shutdown_timeout.
	lifecycle := server.NewLifecycle(logger, cfg.Server.ShutdownTimeout)
	if pool != nil {
		lifecycle.Add("database", &server.FuncService{
			StartFn: func() error { return nil },
			StopFn:  pool.Close,
		})
	}
	lifecycle.Add("http", &server.FuncService{
		StartFn: func() error {
			err := httpSrv.ListenAndServe()
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return err
		},
		StopFn: func() {
			if err := httpSrv.Shutdown(context.Background()); err != nil {
				logger.Warn("http shutdown", zap.Error(err))
			}
		},
	})

	if err := lifecycle.Run(ctx); err != nil {
		logger.Fatal("lifecycle error", zap.Error(err))
	}
}
