package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"market-flipper/src/config"
	"market-flipper/src/logger"
)

func main() {
	// 1. Parse command line flags
	configPath := flag.String("config", "config/default.yaml", "path to config file")
	flag.Parse()

	// 2. Load config
	conf, err := config.NewConfig(*configPath)
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		os.Exit(1)
	}

	// 3. Setup Logger
	appLogger := logger.NewLogger(conf, conf.Name)

	// 4. Setup Components
	collector := setupMetrics()
	networkManager := setupNetwork(conf.MConfig)
	source := setupDataSource(conf.MConfig, networkManager, collector)
	analyzer := setupAnalysis(conf.MConfig, collector)

	journal, err := setupJournal(conf.MConfig, appLogger)
	if err != nil {
		appLogger.Critical("Failed to init journal: %v", err)
	}
	sink := setupRedis(conf.MConfig, appLogger)

	// 5. Start Servers
	servers := startServers(conf.MConfig, analyzer, collector, appLogger)

	// 6. Start the feed
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	var wg sync.WaitGroup
	if err := source.Start(ctx, &wg); err != nil {
		appLogger.Critical("Failed to start data source: %v", err)
	}

	// 7. Run Main Processing Loop (blocking)
	appLogger.Info("Starting tick loop every %dms", conf.TickIntervalMs)
	loop := &tickLoop{
		Config:    conf.MConfig,
		Logger:    appLogger.With("TickLoop"),
		Source:    source,
		Analyzer:  analyzer,
		Exchanger: servers.API,
		Journal:   journal,
		Sink:      sink,
		Metrics:   collector,
	}
	loop.Run(ctx)

	// 8. Shutdown
	appLogger.Info("Shutting down...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	servers.Stop(shutdownCtx)
	wg.Wait()

	if journal != nil {
		if err := journal.DB.Close(); err != nil {
			appLogger.Error("Failed to close journal: %v", err)
		}
	}
	if sink != nil {
		if err := sink.Close(); err != nil {
			appLogger.Error("Failed to close redis: %v", err)
		}
	}
	appLogger.Info("Shutdown complete.")
}
