package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"inventory-ledger/config"
	"inventory-ledger/internal/durability"
	"inventory-ledger/internal/projection"
	"inventory-ledger/internal/service"
	"inventory-ledger/internal/store"
	"inventory-ledger/internal/util"

	"go.uber.org/zap"
)

const appName = "inventory-ledger"

func main() {

	cfg := config.Load()

	if err := util.InitLogger(cfg.Env); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer util.SyncLogger()

	logger := util.GetLogger()
	logger.Info("Starting inventory ledger")

	if cfg.Observ.JaegerEndpoint != "" {
		tp, err := util.InitTracer(appName, cfg.Observ.JaegerEndpoint)
		if err != nil {
			log.Fatalf("Failed to initialize tracer: %v", err)
		}
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := tp.Shutdown(ctx); err != nil {
				log.Printf("Error shutting down tracer: %v", err)
			}
		}()
	}

	dbPath := cfg.Store.Path
	backupDir := cfg.Store.BackupDir
	if dbPath == "" {
		dataDir, err := config.ChooseDataDir(config.DefaultDataCandidates(appName))
		if err != nil {
			log.Fatalf("No writable data directory: %v", err)
		}
		dbPath = filepath.Join(dataDir, "inventory.db")
		if backupDir == "" {
			backupDir = filepath.Join(dataDir, "backups")
		}
	}

	db, err := store.NewStore(dbPath)
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}
	defer db.Close()
	logger.Info("Store opened", zap.String("path", dbPath))

	manager := durability.NewManager(db,
		cfg.Durability.CheckpointThreshold,
		cfg.Durability.CheckpointInterval,
		backupDir)
	go manager.Start(context.Background())

	projections := projection.New(db)
	inventory := service.NewInventoryService(db, projections, manager)

	startupSummary(inventory, logger)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	manager.Stop()
	if err := manager.Shutdown(shutdownCtx); err != nil {
		logger.Error("Final checkpoint failed", zap.Error(err))
	}

	logger.Info("Ledger closed")
}

func startupSummary(inventory *service.InventoryService, logger *zap.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	overview, err := inventory.Overview(ctx)
	if err != nil {
		logger.Warn("Could not read catalog", zap.Error(err))
		return
	}
	sales, err := inventory.DailyReport(ctx)
	if err != nil {
		logger.Warn("Could not read daily sales", zap.Error(err))
		return
	}
	logger.Info("Catalog loaded",
		zap.Int("products", len(overview)),
		zap.Int("products_sold_today", len(sales)))
}
