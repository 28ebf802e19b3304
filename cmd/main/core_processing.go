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
	"market-flipper/src/storage"
)

// -----------------------------------------------------------------------------
// tickLoop drives the engines at the configured cadence and fans the
// published state out to the server, journal and Redis.
// -----------------------------------------------------------------------------

type tickLoop struct {
	Config    *models.MConfig
	Logger    *logger.Logger
	Source    *wiki.WikiPriceSource
	Analyzer  *analysis.AnalysisFacade
	Exchanger interfaces.IDataExchanger
	Journal   *storage.Journal
	Sink      *cache.RedisSink
	Metrics   *metrics.Collector
}

// -----------------------------------------------------------------------------

// Run blocks until ctx is cancelled.
func (l *tickLoop) Run(ctx context.Context) {
	ticker := time.NewTicker(time.Duration(l.Config.TickIntervalMs) * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			l.Logger.Info("Tick loop stopped")
			return
		case <-ticker.C:
			l.tick(ctx)
		}
	}
}

// -----------------------------------------------------------------------------

func (l *tickLoop) tick(ctx context.Context) {
	var data interfaces.IMarketData
	if snap := l.Source.Snapshot(); snap != nil {
		data = snap
	}

	report := l.Analyzer.RunTick(data)
	if !report.FeedReady {
		l.Logger.Debug("Tick %d skipped: feed not ready", report.Tick)
		return
	}

	state := l.Analyzer.LatestData("UPDATE")
	l.Exchanger.Broadcast(state)

	if l.Journal != nil {
		err := l.Journal.Record(ctx, state)
		l.Metrics.ObserveJournal(err)
		if err != nil {
			l.Logger.Error("Journal write failed: %v", err)
		}
	}

	if l.Sink != nil {
		if err := l.Sink.PublishState(ctx, state); err != nil {
			l.Logger.Warning("Redis publish failed: %v", err)
		}
	}

	for _, er := range report.Engines {
		if er.Error != "" {
			l.Logger.Warning("Engine %s kept its previous snapshot: %s", er.Engine, er.Error)
		}
	}
}
