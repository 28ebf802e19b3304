package interfaces

import "market-flipper/src/models"

// IEngineObserver receives per-engine and per-tick timings.
type IEngineObserver interface {
	ObserveEngine(report models.MEngineReport)
	ObserveTick(report models.MTickReport)
}
