package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"trade-terminal-go/internal/actions"
	"trade-terminal-go/internal/config"
	"trade-terminal-go/internal/feed"
	"trade-terminal-go/internal/history"
	"trade-terminal-go/internal/logger"
	"trade-terminal-go/internal/platform"
	"trade-terminal-go/internal/positions"
	sig "trade-terminal-go/internal/signal"
	"trade-terminal-go/internal/view"
	"trade-terminal-go/internal/wallet"
	"go.uber.org/zap"
)

func main() {
	// Load application configuration
	cfg, err := config.LoadConfig("./configs")
	if err != nil {
		// We can't use the logger here because it's not initialized yet.
		panic(fmt.Sprintf("could not load config: %v", err))
	}

	// Initialize logger
	log, err := logger.NewLogger(cfg.Logger)
	if err != nil {
		panic(err)
	}
	defer log.Sync()
	log.Info("Configuration loaded")

	// Initialize the local history archive, if configured
	var archive *history.Archive
	if cfg.Database.DSN != "" {
		archive, err = history.NewArchive(cfg.Database.DSN, log)
		if err != nil {
			log.Fatal("Failed to open history archive", zap.Error(err))
		}
		log.Info("History archive ready", zap.String("dsn", cfg.Database.DSN))
	}

	// Platform API client
	client := platform.NewClient(&cfg.Platform, log)

	// Broadcast bus for cross-component trade events
	bus := sig.NewBus()

	// Read-side pollers
	priceFeed := feed.New(client, bus, time.Duration(cfg.Polling.PriceInterval)*time.Second, log)
	var archiver positions.Archiver
	if archive != nil {
		archiver = archive
	}
	store := positions.New(client, bus, time.Duration(cfg.Polling.TradeInterval)*time.Second, cfg.Polling.TradeLimit, archiver, log)

	// Actions and projection. The terminal frontend runs its own
	// confirmation dialog, so the gateway confirmer always passes.
	gateway := actions.NewGateway(client, store, bus, actions.ConfirmAlways, log)
	positionView := view.New(store, priceFeed, gateway)
	walletSvc := wallet.NewService(client, log)

	// Setup context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		sigchan := make(chan os.Signal, 1)
		signal.Notify(sigchan, syscall.SIGINT, syscall.SIGTERM)
		<-sigchan
		log.Info("Shutdown signal received, gracefully shutting down...")
		cancel()
	}()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		priceFeed.Run(ctx)
	}()
	go func() {
		defer wg.Done()
		store.Run(ctx)
	}()

	apiServer := view.NewAPIServer(cfg.Server.Port, positionView, gateway, walletSvc, archive, log)
	apiServer.Start()

	<-ctx.Done()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := apiServer.Stop(shutdownCtx); err != nil {
		log.Error("Failed to stop API server cleanly", zap.Error(err))
	}

	wg.Wait()
	log.Info("Terminal has been shut down.")
}
