package analysis

import (
	"bytes"

	"market-flipper/src/logger"
	"market-flipper/src/models"
)

// testItem describes one instrument for a synthetic market snapshot.
type testItem struct {
	id       int
	members  bool
	limit    *int
	low      int
	high     int
	volume   int
	avgLow   int
	noVolume bool
}

func intPtr(v int) *int { return &v }

func quietLogger() *logger.Logger {
	return logger.NewLoggerWithWriter(nil, "test", &bytes.Buffer{})
}

func testConfig() *models.MConfig {
	return &models.MConfig{
		Filters: models.MFilterConfig{},
		Risk: models.MRiskConfig{
			MaxPricePerUnit:            1_000_000,
			MaxCapitalPerItem:          10_000,
			BuyLimitUtilizationPercent: 100,
			FeeSlippagePercent:         2,
		},
		Strategies: models.MStrategiesConfig{
			Spread: models.MSpreadConfig{
				Enable:           true,
				MaxOpenPositions: 5,
			},
			MeanReversion: models.MMeanReversionConfig{
				Enable:                true,
				LookbackTicks:         5,
				EntryDeviationPercent: 10,
				BollingerLookback:     5,
				BollingerStdDevs:      2,
				MaxPositions:          5,
			},
			PairsTrading: models.MPairsTradingConfig{
				Enable:            true,
				CorrelationWindow: 10,
				MinCorrelation:    0.8,
				EntryZScore:       2,
				MaxActivePairs:    5,
				MinNetEdgePercent: 1,
				MinNetProfitGp:    10,
			},
			Discovery: models.MDiscoveryConfig{
				Enable:         true,
				TopNByVolume:   300,
				ScanEveryTicks: 1,
				MinSamples:     3,
				MaxOutput:      100,
			},
		},
	}
}

func snapshotOf(items ...testItem) *models.MMarketSnapshot {
	instruments := map[int]models.MInstrument{}
	quotes := map[int]models.MQuote{}
	volumes := map[int]int{}
	daily := map[int]models.MIntervalStat{}

	for _, it := range items {
		instruments[it.id] = models.MInstrument{
			ID:       it.id,
			Name:     "item-" + string(rune('A'+it.id%26)),
			Members:  it.members,
			BuyLimit: it.limit,
		}
		quotes[it.id] = models.MQuote{ID: it.id, Low: it.low, High: it.high}
		if !it.noVolume {
			volumes[it.id] = it.volume
		}
		if it.avgLow > 0 {
			daily[it.id] = models.MIntervalStat{AvgLowPrice: it.avgLow, AvgHighPrice: it.avgLow}
		}
	}

	return models.NewMarketSnapshot(instruments, quotes, volumes, map[string]map[int]models.MIntervalStat{
		models.Window24h: daily,
	})
}
