package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	_ "time/tzdata"

	"github.com/soltixdb/airaudit/internal/config"
	"github.com/soltixdb/airaudit/internal/handlers"
	"github.com/soltixdb/airaudit/internal/logging"
	"github.com/soltixdb/airaudit/internal/metrics"
	"github.com/soltixdb/airaudit/internal/queue"
	"github.com/soltixdb/airaudit/internal/router"
	"github.com/soltixdb/airaudit/internal/services"
	"github.com/soltixdb/airaudit/internal/sessionstore"
)

var (
	Version   = "dev"     // Injected via ldflags during build
	GitCommit = "unknown" // Injected via ldflags during build
	BuildTime = "unknown" // Injected via ldflags during build
)

func main() {
	configPath := flag.String("config", "", "Path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.NewFromConfig(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	logging.SetGlobal(logger)
	logger.Info("Audit service starting...",
		"version", Version, "commit", GitCommit, "build time", BuildTime,
		"timezone", cfg.Audit.Timezone, "compound", cfg.Audit.Compound)

	logger.Info("Opening session store", "backend", cfg.Session.Backend, "ttl", cfg.Session.TTL)
	store, err := sessionstore.New(cfg.Session, logger)
	if err != nil {
		logger.Fatal("Failed to open session store", "error", err)
	}
	defer func() { _ = store.Close() }()

	logger.Info("Connecting to Queue", "type", cfg.Queue.Type, "url", cfg.Queue.URL)
	queueClient, err := queue.NewQueue(cfg.Queue)
	if err != nil {
		logger.Fatal("Failed to connect to Queue", "error", err)
	}
	events := queue.NewEventPublisher(queueClient, cfg.Queue.Subject, logger)
	defer func() { _ = events.Close() }()

	if cfg.Auth.Enabled {
		logger.Info("API key authentication enabled", "num_keys", len(cfg.Auth.APIKeys))
	} else {
		logger.Warn("API key authentication DISABLED - all requests will be allowed")
	}

	m := metrics.New()
	audit, err := services.NewAuditService(logger, cfg.Audit, store, events, m)
	if err != nil {
		logger.Fatal("Failed to create audit service", "error", err)
	}

	handlers.Version = Version
	h := handlers.New(logger, audit, m, handlers.Options{
		SessionBackend: cfg.Session.Backend,
		EventBackend:   cfg.Queue.Type,
	})
	app := router.New(logger, h, *cfg)

	go func() {
		addr := cfg.GetServerAddress()
		logger.Info("Server listening", "address", addr)
		if err := app.Listen(addr); err != nil {
			logger.Fatal("Failed to start server", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...", "budget", cfg.Server.ShutdownWait)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownWait)
	defer shutdownCancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", "error", err)
	}

	logger.Info("Server exited")
}
