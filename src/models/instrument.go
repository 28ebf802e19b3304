package models

// Interval window names understood by IMarketData.IntervalStats.
const (
	Window1h  = "1h"
	Window24h = "24h"
)

// MInstrument is the static metadata of a tradeable item.
type MInstrument struct {
	ID       int    `json:"id"`
	Name     string `json:"name"`
	Examine  string `json:"examine,omitempty"`
	Members  bool   `json:"members"`
	BuyLimit *int   `json:"limit,omitempty"` // nil means unlimited
	LowAlch  int    `json:"lowalch"`
	HighAlch int    `json:"highalch"`
}

// MQuote is the latest instant-buy/instant-sell pair for an item.
type MQuote struct {
	ID       int   `json:"id"`
	Low      int   `json:"low"`  // insta-sell
	High     int   `json:"high"` // insta-buy
	LowTime  int64 `json:"lowTime"`
	HighTime int64 `json:"highTime"`
}

// Usable reports whether both sides are priced.
func (q MQuote) Usable() bool {
	return q.Low > 0 && q.High > 0
}

// MIntervalStat is an averaged window (1h / 24h) for an item.
type MIntervalStat struct {
	AvgHighPrice    int `json:"avgHighPrice"`
	AvgLowPrice     int `json:"avgLowPrice"`
	HighPriceVolume int `json:"highPriceVolume"`
	LowPriceVolume  int `json:"lowPriceVolume"`
}
