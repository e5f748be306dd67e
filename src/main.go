package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"

	"chorale/src/features/auth"
	"chorale/src/features/config"
	"chorale/src/features/hosting"
	"chorale/src/features/library"
	"chorale/src/features/logging"
	"chorale/src/features/metrics"
	"chorale/src/features/scanning"
	"chorale/src/infra/database"
	"chorale/src/infra/scan"
	"chorale/src/infra/watcher"
	"chorale/src/music"
)

func main() {
	// Load configuration
	cfgManager, err := config.Load("config.yaml")
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	// Setup default logger with slog
	logger := logging.SetupLogger(cfgManager)
	slog.SetDefault(logger)

	// Create the database store
	releaseMatch := music.ReleaseMatch(cfgManager.Get().Library.ReleaseMatch)
	if releaseMatch == "" {
		releaseMatch = music.ReleaseMatchExact
	}
	db, err := database.NewStore(cfgManager.Get().Database.Path, releaseMatch)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	libraryService := library.NewService(db, cfgManager)

	// Create the auth service
	authService := auth.NewService(db, cfgManager)

	// Create the scan coordinator
	walker := scan.NewWalker(db, cfgManager)
	scanService := scanning.NewService(walker, db, cfgManager)
	scanService.Start()
	defer scanService.Stop()

	// Wire the metrics
	metricsService := metrics.NewService(db)
	scanService.SetCounters(metricsService.ScansTotal, metricsService.ScanErrorsTotal)
	authService.SetCounters(metricsService.LoginsTotal, metricsService.LoginErrorsTotal)

	// Start the filesystem watcher if enabled
	if cfgManager.Get().Scanner.WatchFilesystem {
		fsWatcher, err := watcher.NewWatcher(scanService, cfgManager)
		if err != nil {
			slog.Error("Failed to create file watcher", "error", err)
		} else {
			dirs, err := db.ListDirectories(context.Background())
			if err != nil {
				slog.Error("Failed to list directories for watcher", "error", err)
			} else {
				paths := make([]string, 0, len(dirs))
				for _, dir := range dirs {
					paths = append(paths, dir.Path)
				}
				if err := fsWatcher.Start(context.Background(), paths); err != nil {
					slog.Error("Failed to start file watcher", "error", err)
				} else {
					defer fsWatcher.Stop()
				}
			}
		}
	}

	// Create and start the Telegram bot if enabled
	var telegramBot *hosting.TelegramBot
	if cfgManager.Get().Telegram.Enabled {
		var err error
		telegramBot, err = hosting.NewTelegramBot(cfgManager, libraryService, scanService)
		if err != nil {
			slog.Error("Failed to initialize Telegram bot", "error", err)
		} else {
			go telegramBot.Start()
			slog.Info("Telegram bot started")
		}
	}

	// Create and start the HTTP server
	server := hosting.NewServer(cfgManager, libraryService, authService, scanService, metricsService)
	go func() {
		if err := server.Start(); err != nil {
			slog.Error("server stopped", "error", err)
		}
	}()
	slog.Info("Server started. Press Ctrl+C to shut down.", "port", cfgManager.Get().Server.Port)

	// Wait for a shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt)
	<-quit
	slog.Info("Shutting down server...")

	if telegramBot != nil {
		telegramBot.Stop()
		slog.Info("Telegram bot stopped")
	}

	if err := server.Shutdown(); err != nil {
		log.Fatalf("failed to shutdown server: %v", err)
	}
	slog.Info("Server gracefully shut down.")
}
