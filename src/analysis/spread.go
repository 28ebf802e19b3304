package analysis

import (
	"sort"

	"market-flipper/src/analysis/core"
	"market-flipper/src/helpers"
	"market-flipper/src/interfaces"
	"market-flipper/src/logger"
	"market-flipper/src/models"
)

// -----------------------------------------------------------------------------
// SpreadEngine ranks items by the profit of buying at the instant-sell price
// and selling at the instant-buy price after fees. It keeps no history.
// -----------------------------------------------------------------------------

type SpreadEngine struct {
	Config   *models.MConfig
	Logger   *logger.Logger
	errors   *helpers.ErrorHandler
	snapshot Published[models.MSpreadCandidate]
}

// -----------------------------------------------------------------------------

func NewSpreadEngine(config *models.MConfig, log *logger.Logger) *SpreadEngine {
	return &SpreadEngine{
		Config: config,
		Logger: log,
		errors: helpers.NewErrorHandler(log),
	}
}

// -----------------------------------------------------------------------------

func (e *SpreadEngine) Name() string { return models.EngineSpread }

func (e *SpreadEngine) Count() int { return len(e.snapshot.Load()) }

func (e *SpreadEngine) Version() int64 { return e.snapshot.Version() }

// Snapshot returns the last published candidates.
func (e *SpreadEngine) Snapshot() []models.MSpreadCandidate { return e.snapshot.Load() }

// -----------------------------------------------------------------------------

func (e *SpreadEngine) OnTick(data interfaces.IMarketData) error {
	if !e.Config.Strategies.Spread.Enable {
		e.snapshot.Store(nil)
		return nil
	}
	if data == nil || !data.IsReady() {
		return nil
	}
	return publishGuarded(e.errors, e.Name(), &e.snapshot, func() ([]models.MSpreadCandidate, error) {
		return e.Evaluate(data), nil
	})
}

// -----------------------------------------------------------------------------

// Evaluate computes the ranked candidate list without publishing it.
func (e *SpreadEngine) Evaluate(data interfaces.IMarketData) []models.MSpreadCandidate {
	cfg := e.Config.Strategies.Spread
	pipeline := NewFilterPipeline(e.Config)

	instruments := data.Instruments()
	quotes := data.LatestQuotes()
	volumes := data.DailyVolumes()

	out := make([]models.MSpreadCandidate, 0)
	for _, id := range data.InstrumentIDs() {
		inst, ok := instruments[id]
		if !ok {
			continue
		}
		quote, ok := quotes[id]
		if !ok {
			continue
		}
		volume, ok := volumes[id]
		if !ok {
			continue
		}
		if c, ok := buildSpreadCandidate(inst, quote, volume, pipeline, cfg); ok {
			out = append(out, c)
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		pi, pj := out[i].ExpectedProfit(), out[j].ExpectedProfit()
		if pi != pj {
			return pi > pj
		}
		return out[i].ItemID < out[j].ItemID
	})

	limit := 2 * max(1, cfg.MaxOpenPositions)
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

// -----------------------------------------------------------------------------

func buildSpreadCandidate(
	inst models.MInstrument,
	quote models.MQuote,
	volume int,
	pipeline FilterPipeline,
	cfg models.MSpreadConfig,
) (models.MSpreadCandidate, bool) {
	low, high := quote.Low, quote.High
	if !quote.Usable() {
		return models.MSpreadCandidate{}, false
	}
	if !pipeline.Screen(inst, volume, low) {
		return models.MSpreadCandidate{}, false
	}
	if low <= 0 || high <= low {
		return models.MSpreadCandidate{}, false
	}

	spreadPct := core.Percent(float64(high-low), float64(low))
	if spreadPct < max(0, cfg.MinSpreadPercent) {
		return models.MSpreadCandidate{}, false
	}

	netPer := pipeline.NetSellPrice(high) - low
	netSpreadPct := core.Percent(float64(netPer), float64(low))
	if netSpreadPct < max(0, cfg.MinNetSpreadPercent) {
		return models.MSpreadCandidate{}, false
	}
	if netPer <= 0 || netPer < max(0, cfg.MinNetProfitGp) {
		return models.MSpreadCandidate{}, false
	}

	// ROI and net spread share a denominator (buy price).
	netRoi := netSpreadPct
	if netRoi < max(0, cfg.MinNetRoiPercent) {
		return models.MSpreadCandidate{}, false
	}

	qty := pipeline.PlannedQuantity(low, inst.BuyLimit)
	if qty <= 0 {
		return models.MSpreadCandidate{}, false
	}

	return models.MSpreadCandidate{
		ItemID:           inst.ID,
		Name:             inst.Name,
		Low:              low,
		High:             high,
		Volume24h:        volume,
		SpreadPercent:    core.Round2(spreadPct),
		NetSpreadPercent: core.Round2(netSpreadPct),
		NetProfitPerUnit: netPer,
		NetRoiPercent:    core.Round2(netRoi),
		PlannedQuantity:  qty,
	}, true
}
