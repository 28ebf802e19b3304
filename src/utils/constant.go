package utils

// -----------------------------------------------------------------------------

// Defaults and floors shared by the strategy engines.
const (
	// Minimum samples before a rolling SMA / Bollinger baseline is trusted.
	MinBaselineSamples = 5
	// Floor applied to the configured pair correlation window.
	MinCorrelationWindow = 10

	// Pair discovery scan.
	DefaultTopNByVolume   = 300
	DefaultScanEveryTicks = 30
	DefaultMinCorrSamples = 30
	DefaultMaxCandidates  = 100
	// Spread history needed before discovery reports a z-score.
	MinSpreadHistoryForZ = 10
	// Floor for the discovery spread history capacity.
	MinSpreadHistoryCapacity = 30
	// Cap on the "half window" universe sample requirement.
	MaxUniverseSampleFloor = 60
)
