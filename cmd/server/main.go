package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/vytor/snapword/internal/api"
	"github.com/vytor/snapword/internal/config"
	"github.com/vytor/snapword/internal/db"
	"github.com/vytor/snapword/internal/logger"
	"github.com/vytor/snapword/internal/reminder"
	"github.com/vytor/snapword/internal/repository/sqlite"
	"github.com/vytor/snapword/internal/services"
	"github.com/vytor/snapword/internal/worker"
)

func main() {
	cfg := config.Load()

	// Initialize logger
	log := logger.New(
		logger.WithLevel(logger.ParseLevel(cfg.LogLevel)),
		logger.WithColors(true),
	)
	logger.SetDefault(log)

	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration: %v", err)
		os.Exit(1)
	}

	log.Info("===========================================")
	log.Info("Snapword Server Starting")
	log.Info("===========================================")
	log.Info("configuration loaded")
	log.Debug("addr=%s", cfg.Addr)
	log.Debug("db_path=%s", cfg.DBPath)
	log.Debug("log_level=%s", cfg.LogLevel)
	log.Debug("timezone=%s", cfg.Timezone)
	log.Debug("import_worker_count=%d", cfg.ImportWorkerCount)
	log.Debug("import_queue_size=%d", cfg.ImportQueueSize)
	log.Debug("max_import_bytes=%d", cfg.MaxImportBytes)
	log.Debug("reminder_time=%q", cfg.ReminderTime)
	log.Debug("session_ttl=%s", cfg.SessionTTL)

	// Open database
	database, err := db.Open(cfg.DBPath)
	if err != nil {
		log.Error("failed to open database: %v", err)
		os.Exit(1)
	}
	defer func() {
		log.Debug("closing database connection")
		database.Close()
	}()

	// Initialize repositories and services
	cardRepo := sqlite.NewCardRepository(database.DB)
	reviewLogRepo := sqlite.NewReviewLogRepository(database.DB)

	clock := services.SystemClock(cfg.Location())
	cardService := services.NewCardService(cardRepo, clock)
	reviewService := services.NewReviewService(cardRepo, reviewLogRepo, clock, cfg.SessionTTL)
	importService := services.NewImportService(cardRepo, cardService, clock)

	importPool := worker.NewPool(cfg.ImportWorkerCount, cfg.ImportQueueSize)

	sched, err := reminder.New(reviewService, importService, reminder.LogNotifier{Log: log.WithPrefix("digest")}, reminder.Options{
		DigestAt: cfg.ReminderTime,
		Location: cfg.Location(),
	})
	if err != nil {
		log.Error("failed to configure scheduler: %v", err)
		os.Exit(1)
	}

	srv := &api.Server{
		CardService:    cardService,
		ReviewService:  reviewService,
		ImportService:  importService,
		ImportPool:     importPool,
		DB:             database,
		MaxImportBytes: cfg.MaxImportBytes,
		RequestTimeout: 30 * time.Second,
	}

	ctx, cancel := context.WithCancel(context.Background())
	importPool.Start(ctx)
	sched.Start()

	// Configure HTTP server
	httpServer := &http.Server{
		Addr:         cfg.Addr,
		Handler:      srv.Routes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 45 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start HTTP server
	go func() {
		log.Info("HTTP server listening on %s", cfg.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("HTTP server error: %v", err)
			os.Exit(1)
		}
	}()

	// Wait for shutdown signal
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	sig := <-stop

	log.Info("received signal %v, initiating graceful shutdown", sig)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	log.Debug("shutting down HTTP server")
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown error: %v", err)
	}

	log.Debug("stopping scheduler")
	sched.Stop()

	log.Debug("stopping import pool")
	cancel()
	importPool.Stop()

	log.Info("===========================================")
	log.Info("Snapword Server Stopped")
	log.Info("===========================================")
}
