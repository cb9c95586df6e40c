package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"aquarium_dashboard/internal/config"
	"aquarium_dashboard/internal/dashboard"
	"aquarium_dashboard/internal/feeding"
	"aquarium_dashboard/internal/gateway"
	"aquarium_dashboard/internal/handlers"
	"aquarium_dashboard/internal/logger"
	"aquarium_dashboard/internal/prefs"
	"aquarium_dashboard/internal/render"
	"aquarium_dashboard/internal/scheduler"
	"aquarium_dashboard/internal/server"
	"aquarium_dashboard/internal/service"
	"aquarium_dashboard/internal/store"
)

const defaultPort = "8080"

func main() {
	// load configs/config.yml, .env and AQUA_* overrides
	cfg, err := config.Load("configs")
	if err != nil {
		logger.Get(logger.InfoLevel, logger.ConsoleFormat).Fatalw("error reading config", "err", err)
	}

	// init logger
	log := logger.Get(cfg.Log.Level, cfg.Log.Format)

	// context for background goroutines
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// open preferences store
	ps, err := openPrefs(ctx, cfg, log)
	if err != nil {
		log.Fatalw("failed to init preferences store", "backend", cfg.Prefs.Backend, "err", err)
	}
	defer func() {
		if cerr := ps.Close(); cerr != nil {
			log.Warnw("failed to close preferences store", "err", cerr)
		}
	}()

	// wire dependencies
	gw := gateway.New(cfg.API.BaseURL, cfg.API.PredictionURL, cfg.API.Timeout, log)
	st := store.New(cfg.Dashboard.Timeline, cfg.Dashboard.View, cfg.Feeding.HistoryLimit)
	hub := render.NewHub(log)
	sink := render.Multi{hub, render.NewLogSink(log)}

	fm := feeding.NewManager(cfg.TankID, gw, st, ps, sink, time.Local, scheduler.System, log)
	ctrl := dashboard.NewController(gw, st, sink, fm, dashboard.Options{
		TankID:          cfg.TankID,
		DeviceID:        cfg.DeviceID,
		RefreshInterval: cfg.Poll.RefreshInterval,
		RetryDelay:      cfg.Poll.RetryDelay,
		InitRetryDelay:  cfg.Poll.InitRetryDelay,
	}, log)

	services := service.NewService(ctrl, hub)
	apiHandler := handlers.NewHandler(services, log)

	// initial load, then the refresh interval
	go ctrl.Start(ctx)

	// start HTTP server
	srv := &server.Server{}
	runHTTPServer(srv, cfg.Port, apiHandler, log)

	log.Infow("dashboard started",
		"port", cfg.Port,
		"tank_id", cfg.TankID,
		"device_id", cfg.DeviceID,
		"api", cfg.API.BaseURL,
		"prefs", cfg.Prefs.Backend,
	)

	// graceful shutdown
	waitForShutdown(cancel, srv, log, func() {
		ctrl.Teardown()
		hub.Close()
	})
}

// openPrefs initializes the configured preferences backend.
func openPrefs(ctx context.Context, cfg *config.Config, log *logger.Logger) (prefs.Store, error) {
	if cfg.Prefs.Backend == config.PrefsRedis {
		client, err := prefs.NewRedisClient(ctx, cfg.Prefs.RedisAddr, cfg.Prefs.RedisPassword, cfg.Prefs.RedisDB)
		if err != nil {
			return nil, err
		}
		return prefs.NewRedisStore(client, cfg.Prefs.RedisPrefix), nil
	}

	dbPath := cfg.Prefs.SQLitePath
	if dbPath == "" {
		log.Infow("prefs.sqlite_path not set in config; using default file", "default", "prefs.db")
		dbPath = "prefs.db"
	}
	db, err := prefs.InitDB(dbPath)
	if err != nil {
		return nil, err
	}
	return prefs.NewSQLiteStore(db), nil
}

// runHTTPServer runs the HTTP server in a separate goroutine.
func runHTTPServer(srv *server.Server, port string, handler *handlers.Handler, log *logger.Logger) {
	go func() {
		if port == "" {
			port = defaultPort
		}
		if err := srv.Run(port, handler.InitRoutes()); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalw("error starting server", "err", err)
		}
	}()
}

// waitForShutdown listens for termination signals and performs graceful shutdown.
func waitForShutdown(cancel context.CancelFunc, srv *server.Server, log *logger.Logger, teardown func()) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Infow("shutting down server...")

	// stop timers and release the render stream before the listener closes
	teardown()
	cancel()

	// allow in-flight requests to complete
	ctx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Errorw("server forced to shutdown", "err", err)
	}
}
