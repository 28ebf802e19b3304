package models

// -----------------------------------------------------------------------------
// Server state pushed to WebSocket clients and served over REST
// -----------------------------------------------------------------------------

type MLatestData struct {
	Type          string                    `json:"type"` // "INITIAL" or "UPDATE"
	Spread        []MSpreadCandidate        `json:"spread"`
	MeanReversion []MMeanReversionCandidate `json:"mean_reversion"`
	PairSignals   []MPairSignal             `json:"pair_signals"`
	PairDiscovery []MPairCandidate          `json:"pair_discovery"`
	Timestamp     int64                     `json:"timestamp"`
	Report        MTickReport               `json:"report"`
}

// -----------------------------------------------------------------------------
// SubscribeCommand for client messages
// -----------------------------------------------------------------------------

type MSubscribeCommand struct {
	Command string   `json:"command"`
	Engines []string `json:"engines"`
	ItemIDs []int    `json:"item_ids"`
}
