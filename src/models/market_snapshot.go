package models

import "sort"

// StaleAfterSeconds is the age after which a quote is considered stale.
const StaleAfterSeconds = 600

// MMarketSnapshot is an immutable view of the feed at one refresh.
// Producers build a fresh value and never mutate it after publishing.
type MMarketSnapshot struct {
	InstrumentMap map[int]MInstrument
	Quotes        map[int]MQuote
	Volumes       map[int]int
	Intervals     map[string]map[int]MIntervalStat

	LatestFetchedAt  int64
	VolumesFetchedAt int64
	Stats24hFetched  int64
	Stats1hFetched   int64

	// StaleQuotes counts quotes that were stale when the snapshot was built.
	StaleQuotes int
}

// -----------------------------------------------------------------------------

// NewMarketSnapshot builds a snapshot, replacing nil maps with empty ones.
func NewMarketSnapshot(
	instruments map[int]MInstrument,
	quotes map[int]MQuote,
	volumes map[int]int,
	intervals map[string]map[int]MIntervalStat,
) *MMarketSnapshot {
	if instruments == nil {
		instruments = map[int]MInstrument{}
	}
	if quotes == nil {
		quotes = map[int]MQuote{}
	}
	if volumes == nil {
		volumes = map[int]int{}
	}
	if intervals == nil {
		intervals = map[string]map[int]MIntervalStat{}
	}
	return &MMarketSnapshot{
		InstrumentMap: instruments,
		Quotes:        quotes,
		Volumes:       volumes,
		Intervals:     intervals,
	}
}

// -----------------------------------------------------------------------------

// IsReady is true once mapping, prices, volumes and 24h stats are all loaded.
func (s *MMarketSnapshot) IsReady() bool {
	if s == nil {
		return false
	}
	return len(s.InstrumentMap) > 0 &&
		len(s.Quotes) > 0 &&
		len(s.Volumes) > 0 &&
		len(s.Intervals[Window24h]) > 0
}

// InstrumentIDs returns all known ids in ascending order.
func (s *MMarketSnapshot) InstrumentIDs() []int {
	ids := make([]int, 0, len(s.InstrumentMap))
	for id := range s.InstrumentMap {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

func (s *MMarketSnapshot) Instruments() map[int]MInstrument { return s.InstrumentMap }

func (s *MMarketSnapshot) LatestQuotes() map[int]MQuote { return s.Quotes }

func (s *MMarketSnapshot) DailyVolumes() map[int]int { return s.Volumes }

// IntervalStats returns the stats for a window; unknown windows yield an empty map.
func (s *MMarketSnapshot) IntervalStats(window string) map[int]MIntervalStat {
	if m, ok := s.Intervals[window]; ok {
		return m
	}
	return map[int]MIntervalStat{}
}

// -----------------------------------------------------------------------------

// IsStale reports whether the newest side of q is older than StaleAfterSeconds at now.
func IsStale(q MQuote, now int64) bool {
	newest := q.LowTime
	if q.HighTime > newest {
		newest = q.HighTime
	}
	if newest <= 0 {
		return true
	}
	return now-newest > StaleAfterSeconds
}
