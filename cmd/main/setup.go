package main

import (
	"context"
	"time"

	"market-flipper/src/analysis"
	"market-flipper/src/cache"
	"market-flipper/src/data_source/wiki"
	"market-flipper/src/interfaces"
	"market-flipper/src/logger"
	"market-flipper/src/metrics"
	"market-flipper/src/models"
	"market-flipper/src/network"
	"market-flipper/src/storage"
)

// -----------------------------------------------------------------------------

func setupMetrics() *metrics.Collector {
	return metrics.NewCollector("flipper")
}

// -----------------------------------------------------------------------------

// setupJournal opens the signal journal; nil when storage is disabled.
func setupJournal(config *models.MConfig, appLogger *logger.Logger) (*storage.Journal, error) {
	db, err := storage.NewDatabase(config, logger.NewLogger(config, "Journal"))
	if err != nil {
		return nil, err
	}
	if db == nil {
		appLogger.Info("Signal journal disabled")
		return nil, nil
	}
	if err := db.Initialize(); err != nil {
		db.Close()
		return nil, err
	}

	journal := storage.NewJournal(db, logger.NewLogger(config, "Journal"))
	appLogger.Info("Signal journal on %s (run %s)", config.Storage.DBType, journal.RunID)
	return journal, nil
}

// -----------------------------------------------------------------------------

// setupRedis returns nil when Redis is disabled or unreachable.
func setupRedis(config *models.MConfig, appLogger *logger.Logger) *cache.RedisSink {
	sink := cache.NewRedisSink(config, logger.NewLogger(config, "Redis"))
	if sink == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := sink.Ping(ctx); err != nil {
		appLogger.Error("Redis unreachable at %s, snapshot sink disabled: %v", config.Redis.Addr, err)
		sink.Close()
		return nil
	}
	appLogger.Info("Mirroring snapshots to redis %s", config.Redis.Addr)
	return sink
}

// -----------------------------------------------------------------------------

// setupNetwork initializes the network manager
func setupNetwork(config *models.MConfig) interfaces.INetworkManager {
	return network.NewAsyncNetworkManager(config, logger.NewLogger(config, "NetworkManager"))
}

// -----------------------------------------------------------------------------

// setupDataSource builds the wiki price feed.
func setupDataSource(config *models.MConfig, nm interfaces.INetworkManager, collector *metrics.Collector) *wiki.WikiPriceSource {
	source := wiki.NewWikiPriceSource(config, nm, logger.NewLogger(config, "WikiSource"))
	source.OnRefreshError = func(error) { collector.ObserveFeedError() }
	return source
}

// -----------------------------------------------------------------------------

// setupAnalysis initializes the analysis facade
func setupAnalysis(config *models.MConfig, collector *metrics.Collector) *analysis.AnalysisFacade {
	analyzer := analysis.NewAnalysisFacade(config, logger.NewLogger(config, "Analysis"))
	analyzer.AddObserver(collector)
	return analyzer
}
