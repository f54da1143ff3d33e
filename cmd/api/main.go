package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/volt-protocol/ethereum-credit-guild-sub003/internal/adapter"
	"github.com/volt-protocol/ethereum-credit-guild-sub003/internal/api/middleware"
	"github.com/volt-protocol/ethereum-credit-guild-sub003/internal/api/server"
	"github.com/volt-protocol/ethereum-credit-guild-sub003/internal/config"
	"github.com/volt-protocol/ethereum-credit-guild-sub003/internal/core"
	"github.com/volt-protocol/ethereum-credit-guild-sub003/internal/journal"
	"github.com/volt-protocol/ethereum-credit-guild-sub003/internal/logger"
	"github.com/volt-protocol/ethereum-credit-guild-sub003/internal/messaging"
	"github.com/volt-protocol/ethereum-credit-guild-sub003/internal/providers/jetstream"
	"github.com/volt-protocol/ethereum-credit-guild-sub003/internal/store"
)

var (
	configFile = flag.String("config", "", "Path to configuration file")
	envPath    = flag.String("env", "config/", "Path to environment files")
)

func main() {
	flag.Parse()

	// Load configuration
	config.ChdirRepoRoot()
	cfg, err := config.LoadAPIConfig(*configFile, *envPath)
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize logger with sentry integration
	err = logger.Initialize(logger.Config{
		Debug:     cfg.Debug,
		SentryDSN: cfg.SentryDSN,
		Tags: map[string]string{
			"service": "api-server",
		},
	})
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer logger.Flush(2 * time.Second)
	logger.Info("Starting Credit Guild gauge API")

	// Connect to database
	db, err := gorm.Open(postgres.Open(cfg.Database.DSN()), &gorm.Config{})
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}

	// Configure connection pool
	if err := store.ConfigureConnectionPool(db, cfg.Database.MaxOpenConns, cfg.Database.MaxIdleConns, cfg.Database.ConnMaxLifetime, cfg.Database.ConnMaxIdleTime); err != nil {
		logger.Fatal("Failed to configure connection pool", zap.Error(err))
	}
	logger.Info("Connected to database",
		zap.Int("max_open_conns", cfg.Database.MaxOpenConns),
		zap.Int("max_idle_conns", cfg.Database.MaxIdleConns),
	)

	// Initialize store and schema
	dataStore := store.NewPGStore(db)
	if err := dataStore.Migrate(ctx); err != nil {
		logger.Fatal("Failed to migrate database schema", zap.Error(err))
	}

	// Build the in-memory ledger
	guild, err := core.New(core.Config{
		CycleLength:   cfg.Ledger.CycleLength,
		FreezeWindow:  cfg.Ledger.FreezeWindow,
		MaxGauges:     cfg.Ledger.MaxGauges,
		MaxLiveGauges: cfg.Ledger.MaxLiveGauges,
	}, adapter.NewClock())
	if err != nil {
		logger.Fatal("Failed to build ledger", zap.Error(err))
	}

	// Rehydrate from persisted state
	state, err := dataStore.LoadLedgerState(ctx)
	if err != nil {
		logger.Fatal("Failed to load ledger state", zap.Error(err))
	}
	snapshots, err := dataStore.LatestSnapshots(ctx)
	if err != nil {
		logger.Fatal("Failed to load snapshots", zap.Error(err))
	}
	guild.Restore(*state, snapshots)
	logger.Info("Ledger state restored",
		zap.Int("gauges", len(state.Gauges)),
		zap.Int("users", len(state.Users)),
		zap.Int("weight_entries", len(state.Entries)),
	)

	// Connect the event publisher. NATS is optional; without it events are
	// only journaled to the database.
	var publisher messaging.Publisher
	if cfg.NATS.URL != "" {
		publisher, err = jetstream.NewPublisher(jetstream.Config{
			URL:            cfg.NATS.URL,
			StreamName:     cfg.NATS.StreamName,
			MaxReconnects:  cfg.NATS.MaxReconnects,
			ReconnectWait:  cfg.NATS.ReconnectWait,
			ConnectionName: cfg.NATS.ConnectionName,
		}, adapter.NewNatsJetStream(), adapter.NewJSON())
		if err != nil {
			logger.Fatal("Failed to connect to NATS", zap.Error(err))
		}
		defer publisher.Close()
		logger.Info("Connected to NATS", zap.String("url", cfg.NATS.URL))
	} else {
		logger.Warn("NATS URL not configured, events will not be published")
	}

	// Wire the write-behind journal
	jrnl := journal.New(ctx, dataStore, publisher, journal.Config{
		QueueSize:    cfg.Journal.QueueSize,
		WriteTimeout: cfg.Journal.WriteTimeout,
		MaxRetries:   cfg.Journal.MaxRetries,
	})
	defer jrnl.Close()
	guild.SetEventSink(jrnl)

	// Create server config
	serverConfig := server.Config{
		Debug:        cfg.Debug,
		Host:         cfg.Server.Host,
		Port:         cfg.Server.Port,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
		Auth: middleware.AuthConfig{
			JWTPublicKey: cfg.Auth.JWTPublicKey,
			APIKeys:      cfg.Auth.APIKeys,
		},
	}

	// Create and start server
	srv := server.New(serverConfig, guild)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil {
			errCh <- err
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-sigCh:
		logger.Info("Received shutdown signal", zap.String("signal", sig.String()))
		cancel()
	case err := <-errCh:
		logger.Error(err, zap.String("component", "server"))
		cancel()
	}

	// Create shutdown context with timeout (don't use canceled ctx)
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	logger.Info("Shutting down server...")

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Fatal("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("API server stopped")
}
