package analysis

import (
	"math"
	"sort"

	"market-flipper/src/analysis/core"
	"market-flipper/src/helpers"
	"market-flipper/src/interfaces"
	"market-flipper/src/logger"
	"market-flipper/src/models"
	"market-flipper/src/utils"
)

// -----------------------------------------------------------------------------
// MeanReversionEngine flags items whose instant-sell price has dropped
// far enough below a rolling baseline to expect a bounce back.
// -----------------------------------------------------------------------------

type MeanReversionEngine struct {
	Config   *models.MConfig
	Logger   *logger.Logger
	errors   *helpers.ErrorHandler
	buffers  *utils.BufferStore[int]
	snapshot Published[models.MMeanReversionCandidate]
}

type baseline struct {
	value  float64
	source string
}

// -----------------------------------------------------------------------------

func NewMeanReversionEngine(config *models.MConfig, log *logger.Logger) *MeanReversionEngine {
	return &MeanReversionEngine{
		Config:  config,
		Logger:  log,
		errors:  helpers.NewErrorHandler(log),
		buffers: utils.NewBufferStore[int](),
	}
}

// -----------------------------------------------------------------------------

func (e *MeanReversionEngine) Name() string { return models.EngineMeanReversion }

func (e *MeanReversionEngine) Count() int { return len(e.snapshot.Load()) }

func (e *MeanReversionEngine) Version() int64 { return e.snapshot.Version() }

func (e *MeanReversionEngine) Snapshot() []models.MMeanReversionCandidate {
	return e.snapshot.Load()
}

// -----------------------------------------------------------------------------

func (e *MeanReversionEngine) OnTick(data interfaces.IMarketData) error {
	if !e.Config.Strategies.MeanReversion.Enable {
		e.buffers.Clear()
		e.snapshot.Store(nil)
		return nil
	}
	if data == nil || !data.IsReady() {
		return nil
	}
	return publishGuarded(e.errors, e.Name(), &e.snapshot, func() ([]models.MMeanReversionCandidate, error) {
		e.Update(data)
		return e.Evaluate(data), nil
	})
}

// -----------------------------------------------------------------------------

// bufferCapacity covers both the SMA and the Bollinger lookback.
func (e *MeanReversionEngine) bufferCapacity() int {
	cfg := e.Config.Strategies.MeanReversion
	return max(max(utils.MinBaselineSamples, cfg.LookbackTicks), max(utils.MinBaselineSamples, cfg.BollingerLookback))
}

// -----------------------------------------------------------------------------

// Update pushes the current low of every priced, known instrument.
func (e *MeanReversionEngine) Update(data interfaces.IMarketData) {
	capacity := e.bufferCapacity()
	instruments := data.Instruments()
	for id, q := range data.LatestQuotes() {
		if !q.Usable() {
			continue
		}
		if _, ok := instruments[id]; !ok {
			continue
		}
		e.buffers.Add(id, capacity, float64(q.Low))
	}
}

// -----------------------------------------------------------------------------

// Evaluate ranks candidates from the current buffers. It does not modify them.
func (e *MeanReversionEngine) Evaluate(data interfaces.IMarketData) []models.MMeanReversionCandidate {
	cfg := e.Config.Strategies.MeanReversion
	pipeline := NewFilterPipeline(e.Config)

	entry := max(0, cfg.EntryDeviationPercent)
	exit := max(0, cfg.ExitDeviationPercent)
	minProfit := max(0, cfg.MinNetProfitGp)

	instruments := data.Instruments()
	quotes := data.LatestQuotes()
	volumes := data.DailyVolumes()
	daily := data.IntervalStats(models.Window24h)

	out := make([]models.MMeanReversionCandidate, 0)
	for _, id := range data.InstrumentIDs() {
		inst, ok := instruments[id]
		if !ok {
			continue
		}
		quote, ok := quotes[id]
		if !ok || !quote.Usable() {
			continue
		}
		volume, ok := volumes[id]
		if !ok {
			continue
		}
		if !pipeline.Screen(inst, volume, quote.Low) {
			continue
		}

		base, ok := e.baseline(id, quote.Low, daily)
		if !ok || base.value <= 0 {
			continue
		}

		dev := core.DeviationPercent(base.value, float64(quote.Low))
		if dev < entry {
			continue
		}

		target := int(math.Floor(base.value * (1.0 - exit/100.0)))
		profit := target - quote.Low
		if profit < minProfit {
			continue
		}

		qty := pipeline.PlannedQuantity(quote.Low, inst.BuyLimit)
		if qty <= 0 {
			continue
		}

		out = append(out, models.MMeanReversionCandidate{
			ItemID:           id,
			Name:             inst.Name,
			CurrentLow:       quote.Low,
			Baseline:         core.Round2(base.value),
			BaselineSource:   base.source,
			DeviationPercent: core.Round2(dev),
			TargetPrice:      target,
			ExpectedProfit:   profit,
			PlannedQuantity:  qty,
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].DeviationPercent != out[j].DeviationPercent {
			return out[i].DeviationPercent > out[j].DeviationPercent
		}
		return out[i].ItemID < out[j].ItemID
	})

	limit := 2 * max(1, cfg.MaxPositions)
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

// -----------------------------------------------------------------------------

// baseline picks Bollinger, then SMA, then the 24h average low.
// In Bollinger mode a low above the entry threshold rejects the item outright.
func (e *MeanReversionEngine) baseline(id int, currentLow int, daily map[int]models.MIntervalStat) (baseline, bool) {
	cfg := e.Config.Strategies.MeanReversion
	buf := e.buffers.Get(id)

	if cfg.UseBollinger && buf != nil {
		samples := min(max(utils.MinBaselineSamples, cfg.BollingerLookback), buf.Size())
		if samples >= utils.MinBaselineSamples {
			sma := buf.Mean(samples)
			std := buf.Std(samples)
			lower := sma - max(0.5, cfg.BollingerStdDevs)*std
			threshold := max(lower, sma*(1.0-max(0, cfg.EntryDeviationPercent)/100.0))
			if float64(currentLow) > threshold {
				return baseline{}, false
			}
			return baseline{value: sma, source: models.BaselineBollinger}, true
		}
	}

	if buf != nil {
		samples := min(max(utils.MinBaselineSamples, cfg.LookbackTicks), buf.Size())
		if samples >= utils.MinBaselineSamples {
			return baseline{value: buf.Mean(samples), source: models.BaselineSMA}, true
		}
	}

	if stat, ok := daily[id]; ok && stat.AvgLowPrice > 0 {
		return baseline{value: float64(stat.AvgLowPrice), source: models.BaselineDaily}, true
	}
	return baseline{}, false
}
