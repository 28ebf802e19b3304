package models

import "time"

// MJournalEntry is one ranked row of a published candidate list.
type MJournalEntry struct {
	Rank        int     `json:"rank"`
	InstrumentA int     `json:"instrument_a"`
	InstrumentB int     `json:"instrument_b,omitempty"` // 0 for single-instrument engines
	Score       float64 `json:"score"`                  // the engine's ranking key
	Payload     []byte  `json:"-"`                      // JSON of the full record
}

// MJournalSnapshot is a published list as written to the journal.
type MJournalSnapshot struct {
	RunID     string          `json:"run_id"`
	Engine    string          `json:"engine"`
	Tick      int64           `json:"tick"`
	CreatedAt time.Time       `json:"created_at"`
	Entries   []MJournalEntry `json:"entries"`
}
