package models

// MSpreadCandidate is a bid/ask spread opportunity.
type MSpreadCandidate struct {
	ItemID           int     `json:"item_id"`
	Name             string  `json:"name"`
	Low              int     `json:"low"`
	High             int     `json:"high"`
	Volume24h        int     `json:"volume_24h"`
	SpreadPercent    float64 `json:"spread_pct"`
	NetSpreadPercent float64 `json:"net_spread_pct"`
	NetProfitPerUnit int     `json:"net_profit_per_unit"`
	NetRoiPercent    float64 `json:"net_roi_pct"`
	PlannedQuantity  int     `json:"planned_qty"`
}

// ExpectedProfit is the ranking key: per-unit profit times planned quantity.
func (c MSpreadCandidate) ExpectedProfit() int64 {
	return int64(c.NetProfitPerUnit) * int64(c.PlannedQuantity)
}

// -----------------------------------------------------------------------------

// Baseline sources for mean reversion.
const (
	BaselineBollinger = "bollinger"
	BaselineSMA       = "sma"
	BaselineDaily     = "avg_24h"
)

// MMeanReversionCandidate is an item trading below its baseline.
type MMeanReversionCandidate struct {
	ItemID           int     `json:"item_id"`
	Name             string  `json:"name"`
	CurrentLow       int     `json:"current_low"`
	Baseline         float64 `json:"baseline"`
	BaselineSource   string  `json:"baseline_source"`
	DeviationPercent float64 `json:"deviation_pct"`
	TargetPrice      int     `json:"target_price"`
	ExpectedProfit   int     `json:"expected_profit"`
	PlannedQuantity  int     `json:"planned_qty"`
}

// -----------------------------------------------------------------------------

// MPairSignal is a z-scored relative-value entry on a registered pair.
type MPairSignal struct {
	Key         MPairKey `json:"key"`
	NameA       string   `json:"name_a"`
	NameB       string   `json:"name_b"`
	DevA        float64  `json:"dev_a"`
	DevB        float64  `json:"dev_b"`
	Spread      float64  `json:"spread"`
	ZScore      float64  `json:"z_score"`
	Correlation float64  `json:"correlation"`
	// LongAShortB is true when A is the cheap leg. Only the cheap leg is bought.
	LongAShortB     bool `json:"long_a_short_b"`
	CheapLegID      int  `json:"cheap_leg_id"`
	CheapLegPrice   int  `json:"cheap_leg_price"`
	ExpectedProfit  int  `json:"expected_profit"`
	PlannedQuantity int  `json:"planned_qty"`
}

// -----------------------------------------------------------------------------

// MPairCandidate is a pair surfaced by the discovery scan.
type MPairCandidate struct {
	Key               MPairKey `json:"key"`
	NameA             string   `json:"name_a"`
	NameB             string   `json:"name_b"`
	Correlation       float64  `json:"correlation"`
	Samples           int      `json:"samples"`
	DevA              float64  `json:"dev_a"`
	DevB              float64  `json:"dev_b"`
	Spread            float64  `json:"spread"`
	SpreadZ           *float64 `json:"spread_z,omitempty"` // nil until enough spread history
	CombinedVolume24h int      `json:"combined_volume_24h"`
}

// AbsZ returns |SpreadZ|, treating a missing z-score as 0.
func (c MPairCandidate) AbsZ() float64 {
	if c.SpreadZ == nil {
		return 0
	}
	if *c.SpreadZ < 0 {
		return -*c.SpreadZ
	}
	return *c.SpreadZ
}
