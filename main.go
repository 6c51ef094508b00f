package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"opencat/pkg/config"
	"opencat/pkg/db"
	"opencat/pkg/external"
	"opencat/pkg/handlers"
	"opencat/pkg/logging"
	"opencat/pkg/repositories"
	"opencat/pkg/seeds"
	"opencat/pkg/server"
	"opencat/pkg/services"
	"opencat/pkg/stores"
	"opencat/pkg/version"
	"opencat/pkg/workers"
)

func main() {
	// Load Config
	cfg, err := config.LoadConfig()
	if err != nil {
		slog.Error("Failed to load config", "err", err)
		os.Exit(1)
	}

	// Setup Logging
	slog.SetDefault(logging.Setup(os.Stdout, cfg.IsProduction()))
	slog.Info("Starting OpenCat", "build", version.Human(), "run_mode", cfg.RunMode)

	// Initialize database (returns GORM DB)
	gormDB, err := db.InitializeDatabase(cfg)
	if err != nil {
		slog.Error("Failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer db.CloseDatabase()

	// Run migrations
	if err := db.RunMigrations(gormDB); err != nil {
		slog.Error("Problem running migrations", "err", err)
		os.Exit(1)
	}

	// Seed a demo app/entitlement/product in development so the HTTP
	// surface can be exercised without first driving the admin bootstrap
	// routes by hand. Never runs in production.
	if cfg.IsDevelopment() {
		if err := seeds.InitializeSeedData(gormDB); err != nil {
			slog.Warn("Failed to seed development data", "error", err)
		}
	}

	// Initialize Repositories
	repositoriesCollection, err := repositories.InitializeRepositories(gormDB)
	if err != nil {
		slog.Error("Failed to initialize repositories", "error", err)
		os.Exit(1)
	}

	// Initialize the fail-open cache layer
	storesCollection, err := stores.InitializeStores(cfg)
	if err != nil {
		slog.Error("Failed to initialize stores", "error", err)
		os.Exit(1)
	}

	// Per-App store-adapter factory (Apple/Google, built lazily per request)
	factory := external.NewFactory(cfg.IsProduction())

	// Initialize Services
	servicesCollection, err := services.InitializeServices(repositoriesCollection, factory, storesCollection, gormDB, cfg)
	if err != nil {
		slog.Error("Failed to initialize services", "err", err)
		os.Exit(1)
	}

	// Initialize Workers (webhook delivery, catalog sync)
	workersCollection, err := workers.InitializeWorkers(cfg, repositoriesCollection, servicesCollection)
	if err != nil {
		slog.Error("Failed to initialize workers", "error", err)
		os.Exit(1)
	}
	workersCollection.StartAll()
	defer workersCollection.StopAll()

	// Initialize Handlers
	handlersCollection, err := handlers.InitializeHandlers(servicesCollection, repositoriesCollection, cfg)
	if err != nil {
		slog.Error("Failed to initialize handlers", "error", err)
		os.Exit(1)
	}

	// Create and Start Server
	s := server.CreateServer(cfg, gormDB, handlersCollection, servicesCollection.APIKey)

	// Channel to listen for OS signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	// Run server in a goroutine
	errChan := make(chan error, 1)
	go func() {
		port := fmt.Sprintf(":%d", cfg.ServerPort)
		if err := s.Start(port); err != nil {
			errChan <- err
		}
	}()

	// Wait for signal or server error
	select {
	case <-sigChan:
		slog.Info("Received shutdown signal")
		workersCollection.StopAll()
		if err := s.Shutdown(); err != nil {
			slog.Error("Failed to shutdown server", "error", err)
		}
	case err := <-errChan:
		slog.Error("Server error", "error", err)
		workersCollection.StopAll()
		os.Exit(1)
	}

	slog.Info("Main exiting")
}
