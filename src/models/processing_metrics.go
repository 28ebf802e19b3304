package models

// Engine names used across metrics, journal, health and the API.
const (
	EngineSpread        = "spread"
	EngineMeanReversion = "mean_reversion"
	EnginePairTrading   = "pair_trading"
	EnginePairDiscovery = "pair_discovery"
)

// AllEngines lists engine names in a stable order.
var AllEngines = []string{EngineSpread, EngineMeanReversion, EnginePairTrading, EnginePairDiscovery}

// MEngineReport describes one engine's work during a tick.
type MEngineReport struct {
	Engine          string  `json:"engine"`
	DurationSeconds float64 `json:"duration_seconds"`
	Candidates      int     `json:"candidates"`
	Published       bool    `json:"published"`
	Error           string  `json:"error,omitempty"`
}

// MTickReport represents the performance metrics of one tick.
type MTickReport struct {
	Tick                 int64           `json:"tick"`
	Timestamp            int64           `json:"timestamp"`
	TotalDurationSeconds float64         `json:"total_duration_seconds"`
	FeedReady            bool            `json:"feed_ready"`
	Engines              []MEngineReport `json:"engines"`
}
