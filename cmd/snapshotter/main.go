package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/volt-protocol/ethereum-credit-guild-sub003/internal/adapter"
	"github.com/volt-protocol/ethereum-credit-guild-sub003/internal/config"
	"github.com/volt-protocol/ethereum-credit-guild-sub003/internal/core"
	"github.com/volt-protocol/ethereum-credit-guild-sub003/internal/logger"
	"github.com/volt-protocol/ethereum-credit-guild-sub003/internal/store"
)

var (
	configFile = flag.String("config", "", "Path to configuration file")
	envPath    = flag.String("env", "config/", "Path to environment files")
	runOnce    = flag.Bool("once", false, "Take one snapshot pass and exit")
)

func main() {
	flag.Parse()

	// Load configuration
	config.ChdirRepoRoot()
	cfg, err := config.LoadSnapshotterConfig(*configFile, *envPath)
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
			"service": "snapshotter",
		},
	})
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer logger.Flush(2 * time.Second)
	logger.Info("Starting gauge weight snapshotter",
		zap.String("schedule", cfg.Snapshotter.Schedule),
	)

	// Connect to database
	db, err := gorm.Open(postgres.Open(cfg.Database.DSN()), &gorm.Config{})
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	if err := store.ConfigureConnectionPool(db, cfg.Database.MaxOpenConns, cfg.Database.MaxIdleConns, cfg.Database.ConnMaxLifetime, cfg.Database.ConnMaxIdleTime); err != nil {
		logger.Fatal("Failed to configure connection pool", zap.Error(err))
	}

	dataStore := store.NewPGStore(db)
	if err := dataStore.Migrate(ctx); err != nil {
		logger.Fatal("Failed to migrate database schema", zap.Error(err))
	}

	take := func() {
		if err := takeSnapshots(ctx, dataStore, cfg.Ledger); err != nil {
			logger.Error(err, zap.String("task", "snapshot"))
		}
	}

	if *runOnce {
		take()
		return
	}

	// Schedule the snapshot pass. The stored aggregates roll lazily inside
	// the ledger, so the cadence only bounds how stale persisted rows get.
	c := cron.New()
	if _, err := c.AddFunc(cfg.Snapshotter.Schedule, take); err != nil {
		logger.Fatal("Failed to register snapshot schedule", zap.Error(err))
	}
	c.Start()

	// Wait for interrupt signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logger.Info("Received shutdown signal", zap.String("signal", sig.String()))

	stopCtx := c.Stop()
	<-stopCtx.Done()
	logger.Info("Snapshotter stopped")
}

// takeSnapshots rebuilds the ledger from the persisted state and appends a
// checkpoint row per aggregate
func takeSnapshots(ctx context.Context, dataStore store.Store, ledgerCfg config.LedgerConfig) error {
	state, err := dataStore.LoadLedgerState(ctx)
	if err != nil {
		return fmt.Errorf("load ledger state: %w", err)
	}
	snapshots, err := dataStore.LatestSnapshots(ctx)
	if err != nil {
		return fmt.Errorf("load snapshots: %w", err)
	}

	guild, err := core.New(core.Config{
		CycleLength:   ledgerCfg.CycleLength,
		FreezeWindow:  ledgerCfg.FreezeWindow,
		MaxGauges:     ledgerCfg.MaxGauges,
		MaxLiveGauges: ledgerCfg.MaxLiveGauges,
	}, adapter.NewClock())
	if err != nil {
		return fmt.Errorf("build ledger: %w", err)
	}
	guild.Restore(*state, snapshots)

	current := guild.Snapshots()
	if err := dataStore.AppendSnapshots(ctx, current); err != nil {
		return fmt.Errorf("append snapshots: %w", err)
	}

	logger.Info("Snapshots persisted", zap.Int("count", len(current)))
	return nil
}
