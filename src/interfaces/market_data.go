package interfaces

import (
	"context"
	"market-flipper/src/models"
	"sync"
)

// -----------------------------------------------------------------------------
// IMarketData is the read-only market view consumed by the strategy engines.
// All maps are snapshots; a missing key means "unknown", not an error.
// -----------------------------------------------------------------------------

type IMarketData interface {
	IsReady() bool
	InstrumentIDs() []int
	Instruments() map[int]models.MInstrument
	LatestQuotes() map[int]models.MQuote
	DailyVolumes() map[int]int
	IntervalStats(window string) map[int]models.MIntervalStat
}

// -----------------------------------------------------------------------------
// IMarketFeed refreshes market data on its own cadence and publishes snapshots.
// -----------------------------------------------------------------------------

type IMarketFeed interface {

	// Name returns the unique identifier of the feed
	Name() string

	// -----------------------------------------------------------------------------

	// Snapshot returns the latest published snapshot (never partially built).
	Snapshot() *models.MMarketSnapshot

	// -----------------------------------------------------------------------------

	// Refresh pulls whatever is due and publishes a new snapshot if anything changed.
	Refresh(ctx context.Context) error

	// -----------------------------------------------------------------------------

	// Start runs Refresh periodically until ctx is cancelled; wg.Done is called on exit.
	Start(ctx context.Context, wg *sync.WaitGroup) error
}
