package wiki

import (
	"fmt"
	"strconv"

	"github.com/bytedance/sonic"

	"market-flipper/src/models"
)

// -----------------------------------------------------------------------------
// Wire shapes of the prices API. Prices and averages are null when no trade
// happened, hence the pointers.
// -----------------------------------------------------------------------------

type mappingRow struct {
	ID       int    `json:"id"`
	Name     string `json:"name"`
	Examine  string `json:"examine"`
	Members  bool   `json:"members"`
	Limit    *int   `json:"limit"`
	LowAlch  int    `json:"lowalch"`
	HighAlch int    `json:"highalch"`
}

type latestRow struct {
	High     *int  `json:"high"`
	HighTime int64 `json:"highTime"`
	Low      *int  `json:"low"`
	LowTime  int64 `json:"lowTime"`
}

type intervalRow struct {
	AvgHighPrice    *int `json:"avgHighPrice"`
	HighPriceVolume int  `json:"highPriceVolume"`
	AvgLowPrice     *int `json:"avgLowPrice"`
	LowPriceVolume  int  `json:"lowPriceVolume"`
}

type latestResponse struct {
	Data map[string]latestRow `json:"data"`
}

type volumesResponse struct {
	Timestamp int64          `json:"timestamp"`
	Data      map[string]int `json:"data"`
}

type intervalResponse struct {
	Timestamp int64                  `json:"timestamp"`
	Data      map[string]intervalRow `json:"data"`
}

// -----------------------------------------------------------------------------

// positive returns *p when it is a usable price.
func positive(p *int) (int, bool) {
	if p == nil || *p <= 0 {
		return 0, false
	}
	return *p, true
}

// parseID converts a JSON object key into an item id; bad keys are skipped.
func parseID(key string) (int, bool) {
	id, err := strconv.Atoi(key)
	if err != nil || id < 0 {
		return 0, false
	}
	return id, true
}

// -----------------------------------------------------------------------------

func decodeMapping(body []byte) (map[int]models.MInstrument, error) {
	var rows []mappingRow
	if err := sonic.Unmarshal(body, &rows); err != nil {
		return nil, fmt.Errorf("decode mapping: %w", err)
	}

	out := make(map[int]models.MInstrument, len(rows))
	for _, r := range rows {
		out[r.ID] = models.MInstrument{
			ID:       r.ID,
			Name:     r.Name,
			Examine:  r.Examine,
			Members:  r.Members,
			BuyLimit: r.Limit,
			LowAlch:  r.LowAlch,
			HighAlch: r.HighAlch,
		}
	}
	return out, nil
}

// -----------------------------------------------------------------------------

func decodeLatest(body []byte) (map[int]models.MQuote, error) {
	var resp latestResponse
	if err := sonic.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode latest: %w", err)
	}

	out := make(map[int]models.MQuote, len(resp.Data))
	for key, r := range resp.Data {
		id, ok := parseID(key)
		if !ok {
			continue
		}
		// both sides must be priced
		low, okLow := positive(r.Low)
		high, okHigh := positive(r.High)
		if !okLow || !okHigh {
			continue
		}
		out[id] = models.MQuote{
			ID:       id,
			Low:      low,
			High:     high,
			LowTime:  r.LowTime,
			HighTime: r.HighTime,
		}
	}
	return out, nil
}

// -----------------------------------------------------------------------------

func decodeVolumes(body []byte) (map[int]int, error) {
	var resp volumesResponse
	if err := sonic.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode volumes: %w", err)
	}

	out := make(map[int]int, len(resp.Data))
	for key, v := range resp.Data {
		if id, ok := parseID(key); ok {
			out[id] = v
		}
	}
	return out, nil
}

// -----------------------------------------------------------------------------

func decodeInterval(body []byte) (map[int]models.MIntervalStat, error) {
	var resp intervalResponse
	if err := sonic.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode interval: %w", err)
	}

	out := make(map[int]models.MIntervalStat, len(resp.Data))
	for key, r := range resp.Data {
		id, ok := parseID(key)
		if !ok {
			continue
		}
		avgLow, okLow := positive(r.AvgLowPrice)
		avgHigh, okHigh := positive(r.AvgHighPrice)
		if !okLow || !okHigh {
			continue
		}
		out[id] = models.MIntervalStat{
			AvgHighPrice:    avgHigh,
			AvgLowPrice:     avgLow,
			HighPriceVolume: r.HighPriceVolume,
			LowPriceVolume:  r.LowPriceVolume,
		}
	}
	return out, nil
}
